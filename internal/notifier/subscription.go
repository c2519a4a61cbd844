package notifier

import (
	"context"
	"fmt"
	"strings"

	"crew-radar/internal/model"
)

// SubscriptionStore 定义订阅读取接口。
type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
}

// SubscriptionNotifier 会按订阅偏好推送通知。
type SubscriptionNotifier struct {
	store    SubscriptionStore
	emailCfg EmailConfig
	sender   EmailSender
	fallback jobNotifier
}

// NewSubscriptionNotifier 创建实例。
func NewSubscriptionNotifier(store SubscriptionStore, cfg EmailConfig, sender EmailSender, fallback jobNotifier) *SubscriptionNotifier {
	return &SubscriptionNotifier{
		store:    store,
		emailCfg: cfg,
		sender:   sender,
		fallback: fallback,
	}
}

// Notify 根据订阅的部门、船型、雇佣类型与质量分过滤后发送。
func (n *SubscriptionNotifier) Notify(ctx context.Context, jobs []model.Job) error {
	if len(jobs) == 0 || n.store == nil {
		return nil
	}

	subs, err := n.store.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		if n.fallback != nil {
			return n.fallback.Notify(ctx, jobs)
		}
		return nil
	}

	for _, sub := range subs {
		matches := filterJobsBySubscription(sub, jobs)
		if len(matches) == 0 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(sub.Channel)) {
		case "email", "":
			cfg := n.emailCfg
			cfg.To = []string{sub.Email}
			email := NewEmailNotifier(cfg, n.sender)
			if err := email.Notify(ctx, matches); err != nil {
				return err
			}
		default:
			continue
		}
	}

	return nil
}

func filterJobsBySubscription(sub model.Subscription, jobs []model.Job) []model.Job {
	filtered := make([]model.Job, 0, len(jobs))
	for _, job := range jobs {
		if sub.Matches(job) {
			filtered = append(filtered, job)
		}
	}
	return filtered
}
