package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"crew-radar/internal/model"
	"crew-radar/internal/runlock"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRunning 表示已有一次抓取在进行中（本进程或其他持锁进程）。
var ErrAlreadyRunning = errors.New("scrape already running")

const defaultInterval = 2 * time.Hour

// Config 用于调度配置。
type Config struct {
	Interval   string   `yaml:"interval" json:"interval"`
	Schedules  []string `yaml:"schedules" json:"schedules"`
	Timeout    string   `yaml:"timeout" json:"timeout"`
	RunOnStart bool     `yaml:"run_on_start" json:"run_on_start"`
	MaxPages   int      `yaml:"max_pages" json:"max_pages"`
}

// Runner 抽象编排器，便于测试替换。
type Runner interface {
	Run(ctx context.Context, source model.Source, maxPages int) (model.ScrapeRun, error)
	RunAll(ctx context.Context, maxPages int) []model.ScrapeRun
}

// RunStore 保存运行记录。
type RunStore interface {
	RecordRun(ctx context.Context, run *model.ScrapeRun) error
}

// Notifier 用于发送新增职位通知。
type Notifier interface {
	Notify(ctx context.Context, jobs []model.Job) error
}

// Scheduler 负责周期性触发抓取、记录运行结果并推送新增职位。
type Scheduler struct {
	runner    Runner
	store     RunStore
	notif     Notifier
	locker    runlock.Locker
	logger    *log.Logger
	interval  time.Duration
	schedules []cron.Schedule
	specs     []string
	timeout   time.Duration
	maxPages  int
	onStart   bool
	running   atomic.Bool
	newTicker func(time.Duration) ticker
	now       func() time.Time
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewScheduler 创建 Scheduler，解析间隔、cron 表达式与超时。
// schedules 中任一合法表达式即启用 cron 模式；全部非法时退回固定间隔。
func NewScheduler(r Runner, s RunStore, n Notifier, cfg Config, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(os.Stdout, "[scheduler] ", log.LstdFlags)
	}
	sched := &Scheduler{
		runner:    r,
		store:     s,
		notif:     n,
		locker:    runlock.Noop{},
		logger:    logger,
		timeout:   30 * time.Minute,
		maxPages:  cfg.MaxPages,
		onStart:   cfg.RunOnStart,
		newTicker: defaultTicker,
		now:       time.Now,
	}
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
			sched.timeout = d
		} else {
			sched.logf("invalid timeout=%q, using %s", cfg.Timeout, sched.timeout)
		}
	}

	specs := append([]string(nil), cfg.Schedules...)
	sched.interval = defaultInterval
	if v := strings.TrimSpace(cfg.Interval); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			sched.interval = d
		} else {
			specs = append(specs, v)
		}
	}
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		schedule, err := cron.ParseStandard(spec)
		if err != nil {
			sched.logf("skip invalid schedule=%q err=%v", spec, err)
			continue
		}
		sched.schedules = append(sched.schedules, schedule)
		sched.specs = append(sched.specs, spec)
	}
	return sched
}

// WithLocker 设置跨进程运行锁。
func (s *Scheduler) WithLocker(l runlock.Locker) *Scheduler {
	if l != nil {
		s.locker = l
	}
	return s
}

// Describe 返回当前调度方式，便于日志与 API 展示。
func (s *Scheduler) Describe() string {
	if len(s.schedules) > 0 {
		return "cron " + strings.Join(s.specs, " | ")
	}
	return "every " + s.interval.String()
}

// Running 表示当前是否有抓取在进行。
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Start 启动调度循环，直到上下文取消。
func (s *Scheduler) Start(ctx context.Context) error {
	if s.runner == nil {
		return fmt.Errorf("scheduler missing runner")
	}
	s.logf("started schedule=%q run_on_start=%t", s.Describe(), s.onStart)

	g, ctx := errgroup.WithContext(ctx)

	if s.onStart {
		g.Go(func() error {
			s.tick(ctx)
			return nil
		})
	}

	if len(s.schedules) > 0 {
		g.Go(func() error {
			return s.startCron(ctx)
		})
	} else {
		tick := s.newTicker(s.interval)
		ch := tick.C()

		g.Go(func() error {
			defer tick.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ch:
					s.tick(ctx)
				drain:
					for {
						select {
						case <-ch:
							continue
						default:
							break drain
						}
					}
				}
			}
		})
	}

	return g.Wait()
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			s.logf("skip tick: %v", err)
			return
		}
		s.logf("run failed err=%v", err)
	}
}

// RunOnce 抓取全部来源，记录每个来源的运行结果并通知新增职位。
func (s *Scheduler) RunOnce(ctx context.Context) ([]model.ScrapeRun, error) {
	var runs []model.ScrapeRun
	err := s.guard(ctx, "all", func(ctx context.Context) error {
		runs = s.runner.RunAll(ctx, s.maxPages)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.complete(ctx, runs)
	return runs, nil
}

// RunSource 抓取单个来源，maxPages<=0 时使用配置值。
func (s *Scheduler) RunSource(ctx context.Context, source model.Source, maxPages int) (model.ScrapeRun, error) {
	if maxPages <= 0 {
		maxPages = s.maxPages
	}
	var run model.ScrapeRun
	err := s.guard(ctx, "source:"+string(source), func(ctx context.Context) error {
		var err error
		run, err = s.runner.Run(ctx, source, maxPages)
		return err
	})
	if err != nil {
		return model.ScrapeRun{}, err
	}
	s.complete(ctx, []model.ScrapeRun{run})
	return run, nil
}

// guard 保证同一时刻只有一次抓取，并在超时上下文中执行 fn。
func (s *Scheduler) guard(ctx context.Context, name string, fn func(context.Context) error) error {
	if s.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	release, err := s.locker.Acquire(ctx, name)
	if err != nil {
		if errors.Is(err, runlock.ErrNotAcquired) {
			return fmt.Errorf("%w: %v", ErrAlreadyRunning, err)
		}
		return fmt.Errorf("acquire run lock: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logf("release lock name=%s err=%v", name, err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

// complete 保存运行记录并推送新增职位；失败只记录日志。
func (s *Scheduler) complete(ctx context.Context, runs []model.ScrapeRun) {
	ctx = context.WithoutCancel(ctx)
	var fresh []model.Job
	for i := range runs {
		if s.store != nil {
			if err := s.store.RecordRun(ctx, &runs[i]); err != nil {
				s.logf("record run source=%s err=%v", runs[i].Source, err)
			}
		}
		fresh = append(fresh, runs[i].Inserted...)
	}
	if s.notif == nil || len(fresh) == 0 {
		return
	}
	if err := s.notif.Notify(ctx, fresh); err != nil {
		s.logf("notify jobs=%d err=%v", len(fresh), err)
	}
}

func defaultTicker(d time.Duration) ticker {
	t := time.NewTicker(d)
	return tickerWrapper{t}
}

type tickerWrapper struct {
	*time.Ticker
}

func (t tickerWrapper) C() <-chan time.Time { return t.Ticker.C }
func (t tickerWrapper) Stop()               { t.Ticker.Stop() }

func (s *Scheduler) startCron(ctx context.Context) error {
	for {
		next, ok := s.next(s.now())
		if !ok {
			return fmt.Errorf("no upcoming schedule for %q", s.Describe())
		}
		wait := next.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			s.tick(ctx)
		}
	}
}

// next 返回所有 cron 表达式中最早的下一次触发时间。
func (s *Scheduler) next(after time.Time) (time.Time, bool) {
	var earliest time.Time
	for _, sc := range s.schedules {
		t := sc.Next(after)
		if t.IsZero() {
			continue
		}
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	return earliest, !earliest.IsZero()
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.logger == nil {
		s.logger = log.New(os.Stdout, "[scheduler] ", log.LstdFlags)
	}
	s.logger.Printf(format, args...)
}
