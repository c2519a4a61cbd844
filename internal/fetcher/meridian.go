package fetcher

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"crew-radar/internal/model"
	"crew-radar/internal/textutil"

	"github.com/PuerkitoBio/goquery"
)

const meridianDefaultURL = "https://www.meridiango.com"

var meridianCardSelectors = []string{".job-card", ".job-listing", "article[class*=job], article[class*=listing]", "li[class*=job]"}

// MeridianGo 抓取 meridiango.com 的通用卡片列表，选择器尽量宽松。
type MeridianGo struct {
	base
}

// NewMeridianGo 创建 Meridian Go 适配器。
func NewMeridianGo(cfg Config, client *http.Client, logger *log.Logger) *MeridianGo {
	return &MeridianGo{base: newBase(model.SourceMeridianGo, meridianDefaultURL, cfg, client, logger)}
}

func (m *MeridianGo) FetchPage(ctx context.Context, page int) ([]model.RawJobFields, error) {
	pageURL := m.pageURL("/jobs", page)
	doc, err := m.http.Document(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("meridian page %d: %w", page, err)
	}
	cards := pickCards(doc, meridianCardSelectors)
	jobs := m.eachCard(cards, page, m.extractCard)
	m.http.logf("source=%s page=%d cards=%d parsed=%d", m.source, page, cards.Length(), len(jobs))
	return jobs, nil
}

func (m *MeridianGo) extractCard(card *goquery.Selection) (model.RawJobFields, bool) {
	titleEl := card.Find("h2, h3, a.title, a.job-title").First()
	if titleEl.Length() == 0 {
		titleEl = card.Find("a[href*='/jobs/']").First()
	}
	title := text(titleEl)
	if title == "" {
		return model.RawJobFields{}, false
	}

	link := titleEl
	if goquery.NodeName(link) != "a" {
		link = titleEl.Find("a").First()
	}
	if link.Length() == 0 {
		link = card.Find("a[href*='/jobs/']").First()
	}
	href, _ := link.Attr("href")
	jobURL := textutil.ResolveURL(m.baseURL, href)

	raw := model.RawJobFields{
		Title:       title,
		Company:     firstText(card, "[class*=company]", "[class*=employer]"),
		Location:    firstText(card, "[class*=location]", "[class*=place]"),
		JobType:     firstText(card, "[class*=type]", "[class*=employment]"),
		PostedText:  firstText(card, "[class*=date]", "[class*=posted]", "time"),
		SalaryText:  firstText(card, "[class*=salary]", "[class*=pay]", "[class*=compensation]"),
		Description: firstText(card, "[class*=description]", "[class*=summary]", "p"),
		URL:         jobURL,
	}
	if raw.Company == "" {
		raw.Company = "Meridian Go"
	}
	if s := textutil.ParseSalary(raw.SalaryText); s.OK {
		raw.SalaryCurrency, raw.SalaryPeriod = s.Currency, s.Period
	}
	if size, ok := textutil.ParseVesselSize(card.Text()); ok {
		raw.VesselSize = size
	}
	if raw.Description == "" {
		raw.Description = title
	}

	raw.ExternalID = textutil.IDFromURL(jobURL)
	if raw.ExternalID == "" {
		raw.ExternalID = textutil.SurrogateID(raw.Title, raw.Company, raw.Location, raw.PostedText)
	}
	if jobURL != "" {
		raw.DetailURL = jobURL
	}

	raw.Set("title", raw.Title)
	raw.Set("url", jobURL)
	raw.Set("job_type", raw.JobType)
	raw.Set("salary", raw.SalaryText)
	return raw, true
}

func (m *MeridianGo) FetchDetail(ctx context.Context, detailURL string) (model.RawJobFields, error) {
	doc, err := m.http.Document(ctx, detailURL)
	if err != nil {
		return model.RawJobFields{}, fmt.Errorf("meridian detail: %w", err)
	}
	raw := parseDetail(doc, detailURL, genericDetail)
	if raw.Company == "Meridian Go" {
		raw.Company = ""
	}
	return raw, nil
}
