package model

import (
	"time"

	"gorm.io/datatypes"
)

// ScrapeRun 是一次来源抓取的汇总结果。
// 编排器只负责生成；是否落库由调度器等外层决定。
type ScrapeRun struct {
	ID          uint                        `gorm:"primaryKey" json:"id,omitempty"`
	Source      Source                      `gorm:"size:32;index" json:"source"`
	Success     bool                        `json:"success"`
	JobsFound   int                         `json:"jobs_found"`
	NewJobs     int                         `json:"new_jobs"`
	UpdatedJobs int                         `json:"updated_jobs"`
	Skipped     int                         `json:"skipped"`
	Failed      int                         `json:"failed"`
	Errors      datatypes.JSONSlice[string] `json:"errors"`
	DurationMS  int64                       `json:"duration_ms"`
	StartedAt   time.Time                   `gorm:"index" json:"timestamp"`
	CreatedAt   time.Time                   `json:"-"`

	// Inserted 为本次新增的职位，仅在内存中传递给通知器。
	Inserted []Job `gorm:"-" json:"-"`
}

// Duration 返回运行耗时。
func (r ScrapeRun) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// AddError 追加一条错误信息。
func (r *ScrapeRun) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
