package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Source 表示一个外部职位来源站点。
// 运行时的合法集合由 scraper.Registry 中注册的来源决定。
type Source string

const (
	SourceYotspot    Source = "yotspot"
	SourceDaywork123 Source = "daywork123"
	SourceMeridianGo Source = "meridian_go"
)

func (s Source) String() string { return string(s) }

// EmploymentType 雇佣类型，零值表示未分类。
type EmploymentType uint8

const (
	EmploymentUnknown EmploymentType = iota
	EmploymentPermanent
	EmploymentTemporary
	EmploymentRotational
	EmploymentDaywork
	EmploymentSeasonal
	EmploymentContract
)

var employmentNames = [...]string{
	EmploymentUnknown:    "",
	EmploymentPermanent:  "permanent",
	EmploymentTemporary:  "temporary",
	EmploymentRotational: "rotational",
	EmploymentDaywork:    "daywork",
	EmploymentSeasonal:   "seasonal",
	EmploymentContract:   "contract",
}

// Department 船上部门。
type Department uint8

const (
	DepartmentUnknown Department = iota
	DepartmentDeck
	DepartmentInterior
	DepartmentEngineering
	DepartmentGalley
	DepartmentBridge
	DepartmentOther
)

var departmentNames = [...]string{
	DepartmentUnknown:     "",
	DepartmentDeck:        "deck",
	DepartmentInterior:    "interior",
	DepartmentEngineering: "engineering",
	DepartmentGalley:      "galley",
	DepartmentBridge:      "bridge",
	DepartmentOther:       "other",
}

// VesselType 船型。
type VesselType uint8

const (
	VesselUnknown VesselType = iota
	VesselMotorYacht
	VesselSailingYacht
	VesselCatamaran
	VesselSuperYacht
	VesselExpedition
	VesselChaseBoat
)

var vesselNames = [...]string{
	VesselUnknown:      "",
	VesselMotorYacht:   "motor_yacht",
	VesselSailingYacht: "sailing_yacht",
	VesselCatamaran:    "catamaran",
	VesselSuperYacht:   "super_yacht",
	VesselExpedition:   "expedition",
	VesselChaseBoat:    "chase_boat",
}

// EmploymentTypes 返回全部已知雇佣类型（不含 Unknown），用于元数据接口。
func EmploymentTypes() []EmploymentType {
	return []EmploymentType{EmploymentPermanent, EmploymentTemporary, EmploymentRotational, EmploymentDaywork, EmploymentSeasonal, EmploymentContract}
}

// Departments 返回全部已知部门。
func Departments() []Department {
	return []Department{DepartmentDeck, DepartmentInterior, DepartmentEngineering, DepartmentGalley, DepartmentBridge, DepartmentOther}
}

// VesselTypes 返回全部已知船型。
func VesselTypes() []VesselType {
	return []VesselType{VesselMotorYacht, VesselSailingYacht, VesselCatamaran, VesselSuperYacht, VesselExpedition, VesselChaseBoat}
}

func (e EmploymentType) String() string {
	if int(e) < len(employmentNames) {
		return employmentNames[e]
	}
	return ""
}

func (d Department) String() string {
	if int(d) < len(departmentNames) {
		return departmentNames[d]
	}
	return ""
}

func (v VesselType) String() string {
	if int(v) < len(vesselNames) {
		return vesselNames[v]
	}
	return ""
}

// ParseEmploymentType 将字符串解析为雇佣类型，忽略大小写。
func ParseEmploymentType(s string) (EmploymentType, bool) {
	i, ok := lookup(employmentNames[:], s)
	return EmploymentType(i), ok
}

// ParseDepartment 将字符串解析为部门。
func ParseDepartment(s string) (Department, bool) {
	i, ok := lookup(departmentNames[:], s)
	return Department(i), ok
}

// ParseVesselType 将字符串解析为船型。
func ParseVesselType(s string) (VesselType, bool) {
	i, ok := lookup(vesselNames[:], s)
	return VesselType(i), ok
}

func lookup(names []string, s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	for i, name := range names {
		if name != "" && name == s {
			return i, true
		}
	}
	return 0, false
}

func (e EmploymentType) MarshalText() ([]byte, error) { return []byte(e.String()), nil }
func (d Department) MarshalText() ([]byte, error)     { return []byte(d.String()), nil }
func (v VesselType) MarshalText() ([]byte, error)     { return []byte(v.String()), nil }

func (e *EmploymentType) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*e = EmploymentUnknown
		return nil
	}
	v, ok := ParseEmploymentType(string(b))
	if !ok {
		return fmt.Errorf("unknown employment type %q", b)
	}
	*e = v
	return nil
}

func (d *Department) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = DepartmentUnknown
		return nil
	}
	v, ok := ParseDepartment(string(b))
	if !ok {
		return fmt.Errorf("unknown department %q", b)
	}
	*d = v
	return nil
}

func (v *VesselType) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*v = VesselUnknown
		return nil
	}
	parsed, ok := ParseVesselType(string(b))
	if !ok {
		return fmt.Errorf("unknown vessel type %q", b)
	}
	*v = parsed
	return nil
}

// 数据库边界：以字符串列存储，未分类写入 NULL。

func (EmploymentType) GormDataType() string { return "string" }
func (Department) GormDataType() string     { return "string" }
func (VesselType) GormDataType() string     { return "string" }

func (e EmploymentType) Value() (driver.Value, error) { return enumValue(e.String()) }
func (d Department) Value() (driver.Value, error)     { return enumValue(d.String()) }
func (v VesselType) Value() (driver.Value, error)     { return enumValue(v.String()) }

func (e *EmploymentType) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan employment type: %w", err)
	}
	return e.UnmarshalText([]byte(s))
}

func (d *Department) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan department: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

func (v *VesselType) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan vessel type: %w", err)
	}
	return v.UnmarshalText([]byte(s))
}

func enumValue(s string) (driver.Value, error) {
	if s == "" {
		return nil, nil
	}
	return s, nil
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported type %T", src)
	}
}
