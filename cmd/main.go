package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "crew-radar",
		Usage: "聚合游艇船员招聘站点的职位抓取服务",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML 配置文件路径（默认读取 CONFIG_FILE 或 config.yaml）",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "环境变量文件路径",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "启动 HTTP API 与定时抓取",
				Action: serveAction,
			},
			{
				Name:  "scrape",
				Usage: "立即执行一次抓取",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "source",
						Usage: "来源名，例如 yotspot",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "抓取全部已启用来源",
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "每个来源最多抓取的页数",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "以 JSON 输出运行结果",
					},
				},
				Action: scrapeAction,
			},
			{
				Name:  "health",
				Usage: "探测各来源连通性",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "以 JSON 输出",
					},
				},
				Action: healthAction,
			},
			{
				Name:   "sources",
				Usage:  "列出已启用来源",
				Action: sourcesAction,
			},
			{
				Name:  "runs",
				Usage: "查看最近的抓取记录",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "source",
						Usage: "按来源过滤",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "最多显示条数",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "以 JSON 输出",
					},
				},
				Action: runsAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
