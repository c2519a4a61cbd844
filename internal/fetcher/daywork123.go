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

const (
	daywork123DefaultURL = "https://www.daywork123.com"
	daywork123ListPath   = "/JobAnnouncementList.aspx"
)

var daywork123RowSelectors = []string{"#ContentPlaceHolder1_RepJobAnnouncement tr:not(.head)", "table.jobs tr:not(.head)"}

// Daywork123 抓取 daywork123.com 的表格式职位列表。
// 每行依次为：编号、标题（含链接）、地点、公司、发布日期。
type Daywork123 struct {
	base
}

// NewDaywork123 创建 Daywork123 适配器。
func NewDaywork123(cfg Config, client *http.Client, logger *log.Logger) *Daywork123 {
	return &Daywork123{base: newBase(model.SourceDaywork123, daywork123DefaultURL, cfg, client, logger)}
}

func (d *Daywork123) FetchPage(ctx context.Context, page int) ([]model.RawJobFields, error) {
	pageURL := d.pageURL(daywork123ListPath, page)
	doc, err := d.http.Document(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("daywork123 page %d: %w", page, err)
	}
	rows := pickCards(doc, daywork123RowSelectors)
	jobs := d.eachCard(rows.FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Find("th").Length() == 0
	}), page, d.extractRow)
	d.http.logf("source=%s page=%d rows=%d parsed=%d", d.source, page, rows.Length(), len(jobs))
	return jobs, nil
}

func (d *Daywork123) extractRow(row *goquery.Selection) (model.RawJobFields, bool) {
	cells := row.Find("td")
	if cells.Length() < 3 {
		return model.RawJobFields{}, false
	}
	cell := func(i int) string {
		if i >= cells.Length() {
			return ""
		}
		return text(cells.Eq(i))
	}

	jobID := cell(0)
	title := cell(1)
	if title == "" {
		return model.RawJobFields{}, false
	}
	href, _ := cells.Eq(1).Find("a").First().Attr("href")
	jobURL := textutil.ResolveURL(d.baseURL, href)

	if jobID == "" {
		jobID = textutil.IDFromURL(jobURL)
	}

	raw := model.RawJobFields{
		Title:      title,
		Location:   cell(2),
		Company:    "Daywork123",
		PostedText: cell(4),
		URL:        jobURL,
		JobType:    "daywork",
	}
	if c := cell(3); c != "" {
		raw.Company = textutil.Truncate(c, 50)
	}
	if raw.URL == "" {
		raw.URL = d.baseURL + daywork123ListPath
	} else {
		raw.DetailURL = jobURL
	}

	if jobID != "" {
		raw.ExternalID = "dw123_" + jobID
		raw.Description = "Job ID: " + jobID
	} else {
		raw.ExternalID = "dw123_" + textutil.SurrogateID(raw.Title, raw.Location, raw.PostedText)
	}

	for i := 0; i < cells.Length(); i++ {
		raw.Set(fmt.Sprintf("cell_%d", i), cell(i))
	}
	if strings.TrimSpace(href) != "" {
		raw.Set("href", href)
	}
	return raw, true
}

func (d *Daywork123) FetchDetail(ctx context.Context, detailURL string) (model.RawJobFields, error) {
	doc, err := d.http.Document(ctx, detailURL)
	if err != nil {
		return model.RawJobFields{}, fmt.Errorf("daywork123 detail: %w", err)
	}
	return parseDetail(doc, detailURL, genericDetail), nil
}
