package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"crew-radar/internal/api"
	"crew-radar/internal/fetcher"
	"crew-radar/internal/model"
	"crew-radar/internal/notifier"
	"crew-radar/internal/processor"
	"crew-radar/internal/runlock"
	"crew-radar/internal/scheduler"
	"crew-radar/internal/scraper"
	"crew-radar/internal/storage"
	"crew-radar/internal/subscription"
)

// appScheduler 是命令行与 HTTP 服务共用的调度能力。
type appScheduler interface {
	Start(ctx context.Context) error
	RunOnce(ctx context.Context) ([]model.ScrapeRun, error)
	RunSource(ctx context.Context, source model.Source, maxPages int) (model.ScrapeRun, error)
}

// appDeps 汇总一次进程内构建的依赖。
type appDeps struct {
	store   *storage.Store
	orch    *scraper.Orchestrator
	sched   appScheduler
	handler http.Handler
}

// appBuilder 根据配置构建依赖，返回的 cleanup 负责释放资源。
type appBuilder func(AppConfig) (appDeps, func(), error)

func newLogger(prefix string) *log.Logger {
	return log.New(os.Stdout, "["+prefix+"] ", log.LstdFlags)
}

// buildRegistry 注册所有启用的来源适配器。
func buildRegistry(cfg SourcesConfig, client *http.Client) (*scraper.Registry, error) {
	reg := scraper.NewRegistry()
	logger := newLogger("fetcher")
	entries := []struct {
		source model.Source
		cfg    fetcher.Config
		build  func() fetcher.Adapter
	}{
		{model.SourceYotspot, cfg.Yotspot, func() fetcher.Adapter { return fetcher.NewYotspot(cfg.Yotspot, client, logger) }},
		{model.SourceDaywork123, cfg.Daywork123, func() fetcher.Adapter { return fetcher.NewDaywork123(cfg.Daywork123, client, logger) }},
		{model.SourceMeridianGo, cfg.MeridianGo, func() fetcher.Adapter { return fetcher.NewMeridianGo(cfg.MeridianGo, client, logger) }},
	}
	for _, e := range entries {
		if !e.cfg.IsEnabled() {
			logger.Printf("source=%s disabled", e.source)
			continue
		}
		build := e.build
		if err := reg.Register(e.source, func() (fetcher.Adapter, error) { return build(), nil }); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// buildNotifier 组合日志、邮件、Telegram 与订阅通知。
func buildNotifier(cfg AppConfig, store *storage.Store) scheduler.Notifier {
	logNotifier := notifier.NewLogNotifier(newLogger("notify"))
	var email, telegram, subs scheduler.Notifier
	if cfg.Email.Enabled() {
		sender := notifier.NewSMTPClient(cfg.Email)
		if len(cfg.Email.To) > 0 {
			email = notifier.NewEmailNotifier(cfg.Email, sender)
		}
		subs = notifier.NewSubscriptionNotifier(store, cfg.Email, sender, nil)
	} else {
		log.Printf("email notifier disabled: missing host/from")
	}
	if cfg.Telegram.Enabled() {
		tg, err := notifier.NewTelegramNotifier(cfg.Telegram)
		if err != nil {
			log.Printf("telegram notifier disabled: %v", err)
		} else {
			telegram = tg
		}
	}
	return notifier.NewMulti(logNotifier, email, telegram, subs)
}

// buildApp 是默认的依赖构建器。
func buildApp(cfg AppConfig) (appDeps, func(), error) {
	store, err := storage.NewStore(cfg.Database)
	if err != nil {
		return appDeps{}, func() {}, fmt.Errorf("init store: %w", err)
	}
	cleanup := func() { _ = store.Close() }

	registry, err := buildRegistry(cfg.Sources, &http.Client{Timeout: 60 * time.Second})
	if err != nil {
		cleanup()
		return appDeps{}, func() {}, err
	}

	orch := scraper.New(registry, processor.New(newLogger("processor")), store, cfg.Scraper.orchestratorConfig(), newLogger("scraper"))

	schedCfg := cfg.Scheduler
	if schedCfg.MaxPages <= 0 {
		schedCfg.MaxPages = cfg.Scraper.MaxPages
	}
	sched := scheduler.NewScheduler(orch, store, buildNotifier(cfg, store), schedCfg, newLogger("scheduler"))

	if cfg.Redis.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := runlock.Dial(ctx, cfg.Redis.URL)
		cancel()
		if err != nil {
			cleanup()
			return appDeps{}, func() {}, fmt.Errorf("init run lock: %w", err)
		}
		ttl := parseDuration("redis.lock_ttl", cfg.Redis.LockTTL, 0)
		sched.WithLocker(runlock.NewRedisLocker(client, ttl))
		storeCleanup := cleanup
		cleanup = func() {
			_ = client.Close()
			storeCleanup()
		}
	}

	subs := subscription.NewService(store, cfg.Subscription)
	handler := api.NewHandler(store, sched, orch, subs, cfg.Subscription.AllowedChannels, newLogger("api"))

	return appDeps{store: store, orch: orch, sched: sched, handler: handler}, cleanup, nil
}
