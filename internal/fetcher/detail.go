package fetcher

import (
	"strings"

	"crew-radar/internal/model"
	"crew-radar/internal/textutil"

	"github.com/PuerkitoBio/goquery"
)

// detailSelectors 描述详情页各字段的候选选择器，按顺序尝试。
type detailSelectors struct {
	Title        []string
	Company      []string
	Location     []string
	Description  []string
	Requirements []string
	Benefits     []string
	Vessel       []string
	Salary       []string
	StartDate    []string
	Posted       []string
}

var genericDetail = detailSelectors{
	Title:        []string{"h1.job-title", ".job-details h1", "h1"},
	Company:      []string{".company-name", ".employer", ".job-company"},
	Location:     []string{".job-location", ".location"},
	Description:  []string{".job-description", ".job-details__description", ".full-description", ".job-details", "#job-description", "article .description"},
	Requirements: []string{".job-requirements li", ".requirements li", ".job-requirements", ".requirements"},
	Benefits:     []string{".job-benefits li", ".benefits li", ".job-benefits", ".benefits"},
	Vessel:       []string{".vessel-info", ".yacht-details", ".vessel-details"},
	Salary:       []string{".job-salary", ".salary"},
	StartDate:    []string{".start-date", ".job-start"},
	Posted:       []string{".posted-date", "time", ".date"},
}

// parseDetail 从详情页提取补充字段；缺失字段保持为空。
func parseDetail(doc *goquery.Document, pageURL string, sel detailSelectors) model.RawJobFields {
	root := doc.Selection
	raw := model.RawJobFields{
		Title:       firstText(root, sel.Title...),
		Company:     firstText(root, sel.Company...),
		Location:    firstText(root, sel.Location...),
		Description: firstBlock(root, sel.Description...),
		VesselText:  firstText(root, sel.Vessel...),
		SalaryText:  firstText(root, sel.Salary...),
		StartDate:   firstText(root, sel.StartDate...),
		PostedText:  firstText(root, sel.Posted...),
		URL:         pageURL,
	}
	raw.Requirements = listOrSplit(root, sel.Requirements)
	raw.Benefits = listOrSplit(root, sel.Benefits)

	if size, ok := textutil.ParseVesselSize(raw.VesselText + " " + raw.Description); ok {
		raw.VesselSize = size
	}
	if s := textutil.ParseSalary(raw.SalaryText); s.OK {
		raw.SalaryCurrency, raw.SalaryPeriod = s.Currency, s.Period
	}
	if raw.PostedText != "" && !textutil.LooksLikeDate(raw.PostedText) {
		raw.PostedText = ""
	}
	raw.Set("detail_url", pageURL)
	raw.Set("vessel_info", raw.VesselText)
	return raw
}

// firstBlock 保留段落换行，便于后续按行切分。
func firstBlock(root *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		node := root.Find(s).First()
		if node.Length() == 0 {
			continue
		}
		var lines []string
		for _, line := range strings.Split(node.Text(), "\n") {
			if line = textutil.Clean(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	}
	return ""
}

func listOrSplit(root *goquery.Selection, selectors []string) []string {
	for _, s := range selectors {
		if strings.HasSuffix(s, " li") {
			if items := listItems(root, s); len(items) > 0 {
				return items
			}
			continue
		}
		if block := firstBlock(root, s); block != "" {
			return textutil.SplitList(block)
		}
	}
	return nil
}
