package model

import (
	"time"

	"gorm.io/datatypes"
)

// 存储层字段长度上限，归一化阶段按此截断。
const (
	MaxTitleLen       = 200
	MaxCompanyLen     = 100
	MaxLocationLen    = 100
	MaxDescriptionLen = 20000
)

// Job 表示归一化后持久化的职位。
// 中文注释说明字段用途
// - ID: 代理主键（UUID），与自然键无关
// - Source/ExternalID: 自然键，同一来源内唯一
// - EmploymentType/Department/VesselType: 启发式分类，归一化后总有取值
// - RawData: 抽取时的原始快照，仅用于排查，不再解析
// - QualityScore: 完整度评分 [0,1]
// - CreatedAt/UpdatedAt: 由存储层维护

type Job struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	Source     Source `gorm:"size:32;not null;uniqueIndex:idx_jobs_source_external" json:"source"`
	ExternalID string `gorm:"size:191;not null;uniqueIndex:idx_jobs_source_external" json:"external_id"`

	Title    string `gorm:"size:200;not null" json:"title"`
	Company  string `gorm:"size:100" json:"company"`
	Location string `gorm:"size:100" json:"location"`
	Country  string `gorm:"size:64" json:"country,omitempty"`
	Region   string `gorm:"size:64" json:"region,omitempty"`

	EmploymentType EmploymentType `gorm:"size:16;index" json:"employment_type"`
	Department     Department     `gorm:"size:16;index" json:"department"`
	VesselType     VesselType     `gorm:"size:16;index" json:"vessel_type"`
	VesselSize     string         `gorm:"size:64" json:"vessel_size,omitempty"`
	VesselName     string         `gorm:"size:100" json:"vessel_name,omitempty"`
	PositionLevel  string         `gorm:"size:32" json:"position_level,omitempty"`

	SalaryRange    string `gorm:"size:128" json:"salary_range,omitempty"`
	SalaryCurrency string `gorm:"size:8" json:"salary_currency,omitempty"`
	SalaryPeriod   string `gorm:"size:16" json:"salary_period,omitempty"`
	StartDate      string `gorm:"size:64" json:"start_date,omitempty"`

	Description  string                      `gorm:"type:text;not null" json:"description"`
	Requirements datatypes.JSONSlice[string] `json:"requirements"`
	Benefits     datatypes.JSONSlice[string] `json:"benefits"`

	SourceURL    string            `gorm:"size:512" json:"source_url"`
	RawData      datatypes.JSONMap `json:"raw_data,omitempty"`
	QualityScore float64           `gorm:"index" json:"quality_score"`

	PostedDate *time.Time `gorm:"index" json:"posted_date"`
	ScrapedAt  time.Time  `json:"scraped_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Key 返回自然键的可读形式，便于日志与错误信息。
func (j Job) Key() string {
	return string(j.Source) + "/" + j.ExternalID
}
