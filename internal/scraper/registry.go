package scraper

import (
	"errors"
	"fmt"
	"sync"

	"crew-radar/internal/fetcher"
	"crew-radar/internal/model"
)

var (
	// ErrUnknownSource 表示请求的来源未注册。
	ErrUnknownSource = errors.New("unknown source")
	// ErrDuplicateSource 表示同名来源重复注册。
	ErrDuplicateSource = errors.New("source already registered")
)

// Factory 创建一个来源适配器实例。
type Factory func() (fetcher.Adapter, error)

// Registry 保存来源名到适配器工厂的映射，在进程启动时显式构建后注入编排器。
type Registry struct {
	mu        sync.RWMutex
	factories map[model.Source]Factory
	order     []model.Source
}

// NewRegistry 创建空的注册表。
func NewRegistry() *Registry {
	return &Registry{factories: make(map[model.Source]Factory)}
}

// Register 注册一个来源。
func (r *Registry) Register(source model.Source, factory Factory) error {
	if source == "" {
		return errors.New("register: empty source name")
	}
	if factory == nil {
		return fmt.Errorf("register %s: nil factory", source)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[source]; ok {
		return fmt.Errorf("register %s: %w", source, ErrDuplicateSource)
	}
	r.factories[source] = factory
	r.order = append(r.order, source)
	return nil
}

// Names 按注册顺序返回来源名。
func (r *Registry) Names() []model.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Source(nil), r.order...)
}

// Has 判断来源是否已注册。
func (r *Registry) Has(source model.Source) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[source]
	return ok
}

// New 实例化来源适配器。
func (r *Registry) New(source model.Source) (fetcher.Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[source]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	adapter, err := factory()
	if err != nil {
		return nil, fmt.Errorf("create adapter %s: %w", source, err)
	}
	return adapter, nil
}
