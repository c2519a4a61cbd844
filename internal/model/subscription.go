package model

import (
	"time"

	"gorm.io/datatypes"
)

// Subscription 记录新职位提醒订阅。
// Departments/VesselTypes/EmploymentTypes 为空表示不过滤该维度。
type Subscription struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	Email           string                      `gorm:"size:254;not null" json:"email"`
	Channel         string                      `gorm:"size:16" json:"channel"`
	Departments     datatypes.JSONSlice[string] `json:"departments"`
	VesselTypes     datatypes.JSONSlice[string] `json:"vessel_types"`
	EmploymentTypes datatypes.JSONSlice[string] `json:"employment_types"`
	MinQuality      float64                     `json:"min_quality"`
	CreatedAt       time.Time                   `json:"created_at"`
}

// Matches 判断职位是否满足订阅条件。
func (s Subscription) Matches(job Job) bool {
	if job.QualityScore < s.MinQuality {
		return false
	}
	if !matchAny(s.Departments, job.Department.String()) {
		return false
	}
	if !matchAny(s.VesselTypes, job.VesselType.String()) {
		return false
	}
	return matchAny(s.EmploymentTypes, job.EmploymentType.String())
}

func matchAny(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}
