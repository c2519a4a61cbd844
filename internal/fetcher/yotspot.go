package fetcher

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"crew-radar/internal/model"
	"crew-radar/internal/textutil"

	"github.com/PuerkitoBio/goquery"
)

const yotspotDefaultURL = "https://www.yotspot.com"

var yotspotCardSelectors = []string{"div.job-item", "div.job-listing, div.job-card", "article[class*=job]", "div[data-job-id]"}

var jobTypeWords = []string{"permanent", "temporary", "contract", "seasonal", "rotational", "rotation", "daywork", "freelance"}

// Yotspot 抓取 yotspot.com 的职位卡片列表。
type Yotspot struct {
	base
}

// NewYotspot 创建 Yotspot 适配器。
func NewYotspot(cfg Config, client *http.Client, logger *log.Logger) *Yotspot {
	return &Yotspot{base: newBase(model.SourceYotspot, yotspotDefaultURL, cfg, client, logger)}
}

func (y *Yotspot) FetchPage(ctx context.Context, page int) ([]model.RawJobFields, error) {
	pageURL := y.pageURL("/job-search.html", page)
	doc, err := y.http.Document(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("yotspot page %d: %w", page, err)
	}
	cards := pickCards(doc, yotspotCardSelectors)
	jobs := y.eachCard(cards, page, y.extractCard)
	y.http.logf("source=%s page=%d cards=%d parsed=%d", y.source, page, cards.Length(), len(jobs))
	return jobs, nil
}

func (y *Yotspot) extractCard(card *goquery.Selection) (model.RawJobFields, bool) {
	link := card.Find(".job-item__position a").First()
	if link.Length() == 0 {
		link = card.Find("h2 a, h3 a, a.job-title").First()
	}
	title := text(link)
	if title == "" {
		return model.RawJobFields{}, false
	}
	href, _ := link.Attr("href")
	jobURL := textutil.ResolveURL(y.baseURL, href)

	raw := model.RawJobFields{
		Title:   title,
		Company: firstText(card, ".job-item__company", ".company"),
		URL:     jobURL,
	}
	if raw.Company == "" {
		raw.Company = "Yotspot"
	}

	var rest []string
	card.Find("ul.job-item__info li").Each(func(_ int, li *goquery.Selection) {
		item := text(li)
		if item == "" {
			return
		}
		classifyInfoItem(&raw, item, &rest)
	})
	if raw.Location == "" && len(rest) > 0 {
		raw.Location = rest[0]
	}

	raw.Description = firstText(card, ".job-item__description", ".job-item__summary", "p")
	if raw.Description == "" {
		raw.Description = title
	}

	raw.ExternalID = textutil.IDFromURL(jobURL)
	if id, ok := card.Attr("data-job-id"); ok && strings.TrimSpace(id) != "" && raw.ExternalID == "" {
		raw.ExternalID = strings.TrimSpace(id)
	}
	if raw.ExternalID == "" {
		raw.ExternalID = textutil.SurrogateID(raw.Title, raw.Company, raw.Location, raw.PostedText)
	}
	if jobURL != "" && jobURL != y.baseURL {
		raw.DetailURL = jobURL
	}

	raw.Set("title", raw.Title)
	raw.Set("url", jobURL)
	raw.Set("info", strings.Join(rest, " | "))
	return raw, true
}

func (y *Yotspot) FetchDetail(ctx context.Context, detailURL string) (model.RawJobFields, error) {
	doc, err := y.http.Document(ctx, detailURL)
	if err != nil {
		return model.RawJobFields{}, fmt.Errorf("yotspot detail: %w", err)
	}
	raw := parseDetail(doc, detailURL, genericDetail)
	if raw.Company == "Yotspot" {
		raw.Company = ""
	}
	return raw, nil
}

// classifyInfoItem 把信息列表中的一项归入日期、薪资、雇佣类型、船长或其他。
func classifyInfoItem(raw *model.RawJobFields, item string, rest *[]string) {
	folded := textutil.Fold(item)
	switch {
	case raw.PostedText == "" && textutil.LooksLikeDate(item):
		raw.PostedText = item
	case raw.SalaryText == "" && textutil.HasCurrency(item):
		raw.SalaryText = item
		if s := textutil.ParseSalary(item); s.OK {
			raw.SalaryCurrency, raw.SalaryPeriod = s.Currency, s.Period
		}
	case raw.JobType == "" && textutil.ContainsAny(folded, jobTypeWords):
		raw.JobType = item
	case raw.VesselSize == "":
		if size, ok := textutil.ParseVesselSize(item); ok {
			raw.VesselSize = size
			raw.VesselText = item
			return
		}
		*rest = append(*rest, item)
	default:
		*rest = append(*rest, item)
	}
}

func pickCards(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, s := range selectors {
		if sel := doc.Find(s); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Find(selectors[0])
}
