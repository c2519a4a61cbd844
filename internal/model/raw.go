package model

// RawJobFields 是适配器从单张职位卡片或详情页抽取出的松散字段。
// 所有字段均可缺失；仅在归一化前存活。
type RawJobFields struct {
	ExternalID     string
	Title          string
	Company        string
	Location       string
	Country        string
	Region         string
	SalaryText     string
	SalaryCurrency string
	SalaryPeriod   string
	PostedText     string
	JobType        string
	VesselText     string
	VesselSize     string
	VesselName     string
	PositionLevel  string
	StartDate      string
	Description    string
	Requirements   []string
	Benefits       []string
	URL            string
	// DetailURL 非空时编排器可抓取详情页补全字段。
	DetailURL string
	// Attrs 保存原始抽取快照，写入 Job.RawData。
	Attrs map[string]string
}

// Merge 用详情页中非空的字段覆盖列表页字段，返回合并结果。
func (r RawJobFields) Merge(detail RawJobFields) RawJobFields {
	out := r
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&out.ExternalID, detail.ExternalID)
	pick(&out.Title, detail.Title)
	pick(&out.Company, detail.Company)
	pick(&out.Location, detail.Location)
	pick(&out.Country, detail.Country)
	pick(&out.Region, detail.Region)
	pick(&out.SalaryText, detail.SalaryText)
	pick(&out.SalaryCurrency, detail.SalaryCurrency)
	pick(&out.SalaryPeriod, detail.SalaryPeriod)
	pick(&out.PostedText, detail.PostedText)
	pick(&out.JobType, detail.JobType)
	pick(&out.VesselText, detail.VesselText)
	pick(&out.VesselSize, detail.VesselSize)
	pick(&out.VesselName, detail.VesselName)
	pick(&out.PositionLevel, detail.PositionLevel)
	pick(&out.StartDate, detail.StartDate)
	pick(&out.Description, detail.Description)
	pick(&out.URL, detail.URL)
	if len(detail.Requirements) > 0 {
		out.Requirements = append([]string(nil), detail.Requirements...)
	}
	if len(detail.Benefits) > 0 {
		out.Benefits = append([]string(nil), detail.Benefits...)
	}
	if len(detail.Attrs) > 0 {
		attrs := make(map[string]string, len(r.Attrs)+len(detail.Attrs))
		for k, v := range r.Attrs {
			attrs[k] = v
		}
		for k, v := range detail.Attrs {
			attrs["detail."+k] = v
		}
		out.Attrs = attrs
	}
	return out
}

// Set 写入一条原始属性，空值忽略。
func (r *RawJobFields) Set(key, value string) {
	if value == "" {
		return
	}
	if r.Attrs == nil {
		r.Attrs = make(map[string]string)
	}
	r.Attrs[key] = value
}
