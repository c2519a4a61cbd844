package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"crew-radar/internal/model"

	"gorm.io/datatypes"
)

// ErrInvalid 表示请求参数校验失败。
var ErrInvalid = errors.New("invalid subscription")

// Store 定义持久化接口。
type Store interface {
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
}

// Config 控制可用渠道。
type Config struct {
	AllowedChannels []string `yaml:"allowed_channels" json:"allowed_channels"`
}

// Request 表示前端订阅请求。
type Request struct {
	Email           string   `json:"email"`
	Channel         string   `json:"channel"`
	Departments     []string `json:"departments"`
	VesselTypes     []string `json:"vessel_types"`
	EmploymentTypes []string `json:"employment_types"`
	MinQuality      float64  `json:"min_quality"`
}

// Service 负责验证与写入订阅偏好。
type Service struct {
	store    Store
	channels map[string]struct{}
}

// NewService 创建订阅服务。
func NewService(store Store, cfg Config) *Service {
	channelMap := make(map[string]struct{})
	for _, ch := range cfg.AllowedChannels {
		if trimmed := strings.ToLower(strings.TrimSpace(ch)); trimmed != "" {
			channelMap[trimmed] = struct{}{}
		}
	}
	if len(channelMap) == 0 {
		channelMap["email"] = struct{}{}
	}
	return &Service{store: store, channels: channelMap}
}

// Create 校验请求并写入数据库。
func (s *Service) Create(ctx context.Context, req Request) (model.Subscription, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return model.Subscription{}, fmt.Errorf("%w: email required", ErrInvalid)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.Subscription{}, fmt.Errorf("%w: invalid email: %v", ErrInvalid, err)
	}

	channel := strings.ToLower(strings.TrimSpace(req.Channel))
	if channel == "" {
		channel = "email"
	}
	if _, ok := s.channels[channel]; !ok {
		return model.Subscription{}, fmt.Errorf("%w: unsupported channel %s", ErrInvalid, channel)
	}
	if req.MinQuality < 0 || req.MinQuality > 1 {
		return model.Subscription{}, fmt.Errorf("%w: min_quality must be within [0,1]", ErrInvalid)
	}

	departments, err := canonical(req.Departments, "department", func(v string) (string, bool) {
		d, ok := model.ParseDepartment(v)
		return d.String(), ok
	})
	if err != nil {
		return model.Subscription{}, err
	}
	vessels, err := canonical(req.VesselTypes, "vessel type", func(v string) (string, bool) {
		vt, ok := model.ParseVesselType(v)
		return vt.String(), ok
	})
	if err != nil {
		return model.Subscription{}, err
	}
	employment, err := canonical(req.EmploymentTypes, "employment type", func(v string) (string, bool) {
		e, ok := model.ParseEmploymentType(v)
		return e.String(), ok
	})
	if err != nil {
		return model.Subscription{}, err
	}

	sub := model.Subscription{
		Email:           email,
		Channel:         channel,
		Departments:     departments,
		VesselTypes:     vessels,
		EmploymentTypes: employment,
		MinQuality:      req.MinQuality,
	}
	if err := s.store.CreateSubscription(ctx, &sub); err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}

// canonical 将过滤值转换为规范名称并去重，未知值返回 ErrInvalid。
func canonical(values []string, kind string, parse func(string) (string, bool)) (datatypes.JSONSlice[string], error) {
	out := datatypes.JSONSlice[string]{}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		name, ok := parse(v)
		if !ok {
			return nil, fmt.Errorf("%w: unknown %s %s", ErrInvalid, kind, v)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}
