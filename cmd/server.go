package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
)

// httpServer 抽象 *http.Server，便于测试。
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// backgroundScheduler 是 serve 模式下后台运行的调度器。
type backgroundScheduler interface {
	Start(ctx context.Context) error
}

// runServer 启动调度器与 HTTP 服务，ctx 取消后在 shutdownTimeout 内优雅关闭。
func runServer(ctx context.Context, srv httpServer, sched backgroundScheduler, shutdownTimeout time.Duration) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("scheduler stopped: %v", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if err != nil {
			log.Printf("server error: %v", err)
		}
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}

	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		log.Printf("scheduler did not stop within %s", shutdownTimeout)
	}
	return err
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return err
	}
	deps, cleanup, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           deps.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("listening on %s sources=%v", cfg.Server.Addr, deps.orch.Sources())

	return runServer(ctx, srv, deps.sched, 10*time.Second)
}
