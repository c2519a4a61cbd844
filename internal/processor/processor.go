package processor

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"crew-radar/internal/model"
	"crew-radar/internal/textutil"

	"gorm.io/datatypes"
)

// JobProcessor 描述归一化接口。
type JobProcessor interface {
	Normalize(raw model.RawJobFields, source model.Source) Result
}

// ResultOutcome 指示处理结果。
type ResultOutcome string

const (
	ResultAccepted ResultOutcome = "accepted"
	ResultRejected ResultOutcome = "rejected"
)

// Result 包含处理结果与输出。
type Result struct {
	Outcome ResultOutcome
	Job     *model.Job
	Reason  string
}

// Processor 基于规则表实现 JobProcessor。
type Processor struct {
	now    func() time.Time
	logger *log.Logger
}

// New 创建 Processor。
func New(logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New(os.Stdout, "[processor] ", log.LstdFlags)
	}
	return &Processor{now: time.Now, logger: logger}
}

// WithClock 替换时间来源，测试用。
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// Normalize 将原始字段转换为规范职位。标题为空时返回拒绝而非错误。
func (p *Processor) Normalize(raw model.RawJobFields, source model.Source) Result {
	title := textutil.Clean(raw.Title)
	if title == "" {
		return Result{Outcome: ResultRejected, Reason: "missing title"}
	}
	now := p.now()

	company := textutil.Clean(raw.Company)
	location := textutil.Clean(raw.Location)
	description := strings.TrimSpace(raw.Description)

	externalID := textutil.Clean(raw.ExternalID)
	if externalID == "" {
		externalID = textutil.SurrogateID(title, company, location, raw.PostedText)
	}
	if description == "" {
		description = fmt.Sprintf("Job ID: %s - %s", externalID, title)
	}

	// 分类匹配使用截断前的完整文本。
	foldedTitle := textutil.Fold(title)
	employment := EmploymentRules.Match(textutil.Fold(title + " " + raw.JobType))
	department := DepartmentRules.Match(foldedTitle)
	vessel := VesselRules.Match(textutil.Fold(title + " " + raw.VesselText + " " + description))

	level := textutil.Clean(raw.PositionLevel)
	if level == "" {
		level = positionLevelRules.Match(foldedTitle)
	}

	salary := textutil.ParseSalary(raw.SalaryText)
	currency := strings.ToUpper(textutil.Clean(raw.SalaryCurrency))
	if currency == "" {
		currency = salary.Currency
	}
	period := strings.ToLower(textutil.Clean(raw.SalaryPeriod))
	if period == "" {
		period = salary.Period
	}

	vesselSize := textutil.Clean(raw.VesselSize)
	if vesselSize == "" {
		vesselSize, _ = textutil.ParseVesselSize(raw.VesselText + " " + description)
	}

	posted, ok := ParsePostedDate(raw.PostedText, now)
	if !ok && strings.TrimSpace(raw.PostedText) != "" {
		p.logf("source=%s external_id=%s unparsed_posted_date=%q", source, externalID, raw.PostedText)
	}

	job := model.Job{
		Source:         source,
		ExternalID:     externalID,
		Title:          textutil.Truncate(title, model.MaxTitleLen),
		Company:        textutil.Truncate(company, model.MaxCompanyLen),
		Location:       textutil.Truncate(location, model.MaxLocationLen),
		Country:        textutil.Truncate(textutil.Clean(raw.Country), 64),
		Region:         textutil.Truncate(textutil.Clean(raw.Region), 64),
		EmploymentType: employment,
		Department:     department,
		VesselType:     vessel,
		VesselSize:     textutil.Truncate(vesselSize, 64),
		VesselName:     textutil.Truncate(textutil.Clean(raw.VesselName), 100),
		PositionLevel:  textutil.Truncate(level, 32),
		SalaryRange:    textutil.Truncate(textutil.Clean(raw.SalaryText), 128),
		SalaryCurrency: textutil.Truncate(currency, 8),
		SalaryPeriod:   textutil.Truncate(period, 16),
		StartDate:      textutil.Truncate(textutil.Clean(raw.StartDate), 64),
		Description:    textutil.Truncate(description, model.MaxDescriptionLen),
		Requirements:   cleanList(raw.Requirements),
		Benefits:       cleanList(raw.Benefits),
		SourceURL:      textutil.Truncate(strings.TrimSpace(raw.URL), 512),
		RawData:        rawSnapshot(raw),
		PostedDate:     &posted,
		ScrapedAt:      now,
	}
	job.QualityScore = QualityScore(job)

	return Result{Outcome: ResultAccepted, Job: &job}
}

func (p *Processor) logf(format string, args ...any) {
	if p.logger == nil {
		p.logger = log.New(os.Stdout, "[processor] ", log.LstdFlags)
	}
	p.logger.Printf(format, args...)
}

func cleanList(items []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(items))
	for _, item := range items {
		if item = textutil.Clean(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func rawSnapshot(raw model.RawJobFields) datatypes.JSONMap {
	snap := datatypes.JSONMap{}
	for k, v := range raw.Attrs {
		snap[k] = v
	}
	for k, v := range map[string]string{
		"external_id": raw.ExternalID,
		"title":       raw.Title,
		"posted_text": raw.PostedText,
		"job_type":    raw.JobType,
		"salary_text": raw.SalaryText,
		"vessel_text": raw.VesselText,
		"detail_url":  raw.DetailURL,
	} {
		if v != "" {
			snap[k] = v
		}
	}
	return snap
}
