package notifier

import (
	"context"
	"errors"

	"crew-radar/internal/model"
)

// jobNotifier 提供统一通知接口。
type jobNotifier interface {
	Notify(ctx context.Context, jobs []model.Job) error
}

// Multi 依次调用所有通知器，单个失败不影响其余通知器。
type Multi []jobNotifier

// NewMulti 组合多个通知器，忽略 nil。
func NewMulti(ns ...jobNotifier) Multi {
	out := make(Multi, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Notify 返回所有失败的合并错误。
func (m Multi) Notify(ctx context.Context, jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, jobs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
