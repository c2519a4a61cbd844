package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"crew-radar/internal/model"
)

// manualOptions 描述一次手动抓取。
type manualOptions struct {
	Source   string
	All      bool
	MaxPages int
}

// runOnceManual 构建依赖并执行一次抓取，Source 为空时抓取全部来源。
func runOnceManual(ctx context.Context, cfg AppConfig, opts manualOptions, build appBuilder) ([]model.ScrapeRun, error) {
	if opts.Source == "" && !opts.All {
		return nil, fmt.Errorf("either --source or --all is required")
	}
	if opts.MaxPages > 0 {
		cfg.Scheduler.MaxPages = opts.MaxPages
	}
	deps, cleanup, err := build(cfg)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	defer cleanup()

	if opts.Source != "" {
		run, err := deps.sched.RunSource(ctx, model.Source(opts.Source), opts.MaxPages)
		if err != nil {
			return nil, err
		}
		return []model.ScrapeRun{run}, nil
	}
	return deps.sched.RunOnce(ctx)
}

func scrapeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return err
	}
	runs, err := runOnceManual(ctx, cfg, manualOptions{
		Source:   cmd.String("source"),
		All:      cmd.Bool("all"),
		MaxPages: cmd.Int("max-pages"),
	}, buildApp)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(os.Stdout, runs)
	}
	printRuns(os.Stdout, runs)
	for _, run := range runs {
		if !run.Success {
			return cli.Exit("one or more sources failed", 1)
		}
	}
	return nil
}

func healthAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return err
	}
	deps, cleanup, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	results := deps.orch.HealthCheckAll(ctx)
	if cmd.Bool("json") {
		return writeJSON(os.Stdout, results)
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, string(name))
	}
	sort.Strings(names)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tSTATUS\tCODE\tERROR")
	for _, name := range names {
		h := results[model.Source(name)]
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, h.Status, h.StatusCode, h.Error)
	}
	return w.Flush()
}

func sourcesAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return err
	}
	registry, err := buildRegistry(cfg.Sources, nil)
	if err != nil {
		return err
	}
	for _, name := range registry.Names() {
		fmt.Println(name)
	}
	return nil
}

func runsAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return err
	}
	deps, cleanup, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := deps.store.ListRuns(ctx, model.Source(cmd.String("source")), cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(os.Stdout, runs)
	}
	printRuns(os.Stdout, runs)
	return nil
}

func printRuns(out io.Writer, runs []model.ScrapeRun) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSOURCE\tOK\tFOUND\tNEW\tUPDATED\tSKIPPED\tFAILED\tDURATION\tERRORS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Format(time.DateTime), r.Source, r.Success, r.JobsFound, r.NewJobs, r.UpdatedJobs,
			r.Skipped, r.Failed, r.Duration(), strings.Join(r.Errors, "; "))
	}
	_ = w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
