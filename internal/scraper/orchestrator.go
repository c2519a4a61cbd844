package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"crew-radar/internal/fetcher"
	"crew-radar/internal/model"
	"crew-radar/internal/processor"
	"crew-radar/internal/storage"

	"golang.org/x/sync/errgroup"
)

// Config 定义编排参数。
type Config struct {
	MaxPages          int
	PageTimeout       time.Duration
	DetailTimeout     time.Duration
	DetailConcurrency int
	FetchDetails      bool
	PageDelay         time.Duration
	SourceDelay       time.Duration
}

// DefaultConfig 返回默认编排参数。
func DefaultConfig() Config {
	return Config{
		MaxPages:          5,
		PageTimeout:       30 * time.Second,
		DetailTimeout:     15 * time.Second,
		DetailConcurrency: 4,
		FetchDetails:      true,
		PageDelay:         2 * time.Second,
		SourceDelay:       30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = d.PageTimeout
	}
	if c.DetailTimeout <= 0 {
		c.DetailTimeout = d.DetailTimeout
	}
	if c.DetailConcurrency <= 0 {
		c.DetailConcurrency = d.DetailConcurrency
	}
	if c.PageDelay < 0 {
		c.PageDelay = 0
	}
	if c.SourceDelay < 0 {
		c.SourceDelay = 0
	}
	return c
}

// JobStore 是编排器需要的持久化能力。
type JobStore interface {
	UpsertJobs(ctx context.Context, jobs []model.Job) (storage.BatchResult, error)
}

// Health 是单个来源的连通性探测结果。
type Health struct {
	Accessible bool   `json:"accessible"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Orchestrator 驱动适配器分页抓取，归一化后写入存储并汇总运行结果。
// 同一来源内按页顺序执行，来源之间串行并留出间隔。
type Orchestrator struct {
	registry  *Registry
	processor processor.JobProcessor
	store     JobStore
	cfg       Config
	logger    *log.Logger
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
}

// New 创建 Orchestrator。
func New(registry *Registry, proc processor.JobProcessor, store JobStore, cfg Config, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(os.Stdout, "[scraper] ", log.LstdFlags)
	}
	return &Orchestrator{
		registry:  registry,
		processor: proc,
		store:     store,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Sources 返回已注册的来源。
func (o *Orchestrator) Sources() []model.Source {
	return o.registry.Names()
}

// Config 返回生效的编排参数。
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Run 抓取单个来源的 1..maxPages 页。maxPages<=0 时使用配置值。
// 仅在来源未注册时返回 error；其余失败都体现在 ScrapeRun 中。
func (o *Orchestrator) Run(ctx context.Context, source model.Source, maxPages int) (model.ScrapeRun, error) {
	start := o.now()
	run := model.ScrapeRun{Source: source, StartedAt: start, Success: true}

	adapter, err := o.registry.New(source)
	if err != nil {
		if errors.Is(err, ErrUnknownSource) {
			return model.ScrapeRun{}, err
		}
		run.Success = false
		run.AddError(err.Error())
		o.finish(&run, start)
		return run, nil
	}
	if maxPages <= 0 {
		maxPages = o.cfg.MaxPages
	}

	var cutoff time.Time
	if al, ok := adapter.(fetcher.AgeLimited); ok && al.MaxAge() > 0 {
		cutoff = start.Add(-al.MaxAge())
	}
	o.logf("start source=%s max_pages=%d cutoff=%s", source, maxPages, formatCutoff(cutoff))

	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			if err := o.sleep(ctx, o.cfg.PageDelay); err != nil {
				run.Success = false
				run.AddError(fmt.Sprintf("cancelled before page %d: %v", page, err))
				break
			}
		}

		pageCtx, cancel := context.WithTimeout(ctx, o.cfg.PageTimeout)
		raws, err := adapter.FetchPage(pageCtx, page)
		cancel()
		if err != nil {
			if page == 1 {
				run.Success = false
				run.AddError(fmt.Sprintf("connectivity failure: cannot fetch first page of %s: %v", source, err))
				o.logf("source=%s page=1 unreachable err=%v", source, err)
				break
			}
			run.AddError(fmt.Sprintf("page %d: %v", page, err))
			o.logf("source=%s page=%d fetch_failed err=%v", source, page, err)
			break
		}
		if len(raws) == 0 {
			o.logf("source=%s page=%d end_of_listings", source, page)
			break
		}
		run.JobsFound += len(raws)

		raws = o.enrich(ctx, adapter, raws)

		jobs := make([]model.Job, 0, len(raws))
		reachedCutoff := false
		for _, raw := range raws {
			res := o.processor.Normalize(raw, source)
			if res.Outcome != processor.ResultAccepted || res.Job == nil {
				run.Skipped++
				continue
			}
			if !cutoff.IsZero() && res.Job.PostedDate != nil && res.Job.PostedDate.Before(cutoff) {
				run.Skipped++
				reachedCutoff = true
				continue
			}
			jobs = append(jobs, *res.Job)
		}

		o.commit(ctx, &run, page, jobs)
		o.logf("source=%s page=%d found=%d accepted=%d new_total=%d updated_total=%d", source, page, len(raws), len(jobs), run.NewJobs, run.UpdatedJobs)

		if reachedCutoff {
			o.logf("source=%s page=%d reached_cutoff", source, page)
			break
		}
		if ctx.Err() != nil {
			run.Success = false
			run.AddError(ctx.Err().Error())
			break
		}
	}

	o.finish(&run, start)
	return run, nil
}

func (o *Orchestrator) finish(run *model.ScrapeRun, start time.Time) {
	run.DurationMS = o.now().Sub(start).Milliseconds()
	o.logf("done source=%s success=%t found=%d new=%d updated=%d skipped=%d failed=%d errors=%d duration_ms=%d",
		run.Source, run.Success, run.JobsFound, run.NewJobs, run.UpdatedJobs, run.Skipped, run.Failed, len(run.Errors), run.DurationMS)
}

// commit 写入一页职位；整批提交失败时重试一次。
func (o *Orchestrator) commit(ctx context.Context, run *model.ScrapeRun, page int, jobs []model.Job) {
	if len(jobs) == 0 {
		return
	}
	var (
		res storage.BatchResult
		err error
	)
	for attempt := 1; attempt <= 2; attempt++ {
		batch := append([]model.Job(nil), jobs...)
		res, err = o.store.UpsertJobs(ctx, batch)
		if err == nil || ctx.Err() != nil {
			break
		}
		o.logf("source=%s page=%d batch_failed attempt=%d err=%v", run.Source, page, attempt, err)
	}
	if err != nil {
		run.Failed += len(jobs)
		run.AddError(fmt.Sprintf("page %d: store batch: %v", page, err))
		return
	}
	run.NewJobs += res.Inserted
	run.UpdatedJobs += res.Updated
	run.Failed += res.Failed
	run.Errors = append(run.Errors, res.Errors...)
	run.Inserted = append(run.Inserted, res.NewJobs...)
}

// enrich 并发抓取详情页并按原顺序合并；单个详情失败保留列表页字段。
func (o *Orchestrator) enrich(ctx context.Context, adapter fetcher.Adapter, raws []model.RawJobFields) []model.RawJobFields {
	if !o.cfg.FetchDetails {
		return raws
	}
	out := make([]model.RawJobFields, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.DetailConcurrency)
	for i, raw := range raws {
		out[i] = raw
		if raw.DetailURL == "" {
			continue
		}
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(gctx, o.cfg.DetailTimeout)
			defer cancel()
			detail, err := adapter.FetchDetail(dctx, raw.DetailURL)
			if err != nil {
				o.logf("source=%s detail_failed url=%s err=%v", adapter.Source(), raw.DetailURL, err)
				return nil
			}
			out[i] = raw.Merge(detail)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// RunAll 依次抓取所有已注册来源，来源之间等待 SourceDelay。
func (o *Orchestrator) RunAll(ctx context.Context, maxPages int) []model.ScrapeRun {
	sources := o.registry.Names()
	runs := make([]model.ScrapeRun, 0, len(sources))
	for i, source := range sources {
		if i > 0 {
			if err := o.sleep(ctx, o.cfg.SourceDelay); err != nil {
				o.logf("run_all cancelled before source=%s err=%v", source, err)
				break
			}
		}
		run, err := o.Run(ctx, source, maxPages)
		if err != nil {
			run = model.ScrapeRun{Source: source, StartedAt: o.now()}
			run.AddError(err.Error())
		}
		runs = append(runs, run)
	}
	return runs
}

// HealthCheckAll 并发探测每个来源的连通性。
func (o *Orchestrator) HealthCheckAll(ctx context.Context) map[model.Source]Health {
	sources := o.registry.Names()
	out := make(map[model.Source]Health, len(sources))
	var mu sync.Mutex
	var g errgroup.Group
	for _, source := range sources {
		g.Go(func() error {
			h := o.probe(ctx, source)
			mu.Lock()
			out[source] = h
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (o *Orchestrator) probe(ctx context.Context, source model.Source) Health {
	adapter, err := o.registry.New(source)
	if err != nil {
		return Health{Status: "error", Error: err.Error()}
	}
	pctx, cancel := context.WithTimeout(ctx, o.cfg.PageTimeout)
	defer cancel()
	code, err := adapter.Probe(pctx)
	if err != nil {
		return Health{Status: "unreachable", Error: err.Error()}
	}
	if code >= 200 && code < 400 {
		return Health{Accessible: true, Status: "healthy", StatusCode: code}
	}
	return Health{Status: "unhealthy", StatusCode: code}
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.logger == nil {
		o.logger = log.New(os.Stdout, "[scraper] ", log.LstdFlags)
	}
	o.logger.Printf(format, args...)
}

func formatCutoff(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.Format(time.RFC3339)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
