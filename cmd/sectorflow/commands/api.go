package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwjiang/sectorflow/internal/api"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "启动运维 API 服务",
	Long: `只启动运维 API 服务, 不启动定时器。
适合由外部系统 (如 k8s CronJob) 通过 POST /api/run 触发监控。

Endpoints:
  GET   /health                  - Health check
  GET   /api/schedules           - 各市场触发配置
  PATCH /api/schedules/{market}  - 调整触发配置
  POST  /api/run                 - 立即执行所有市场
  POST  /api/run/{market}        - 立即执行单个市场
  GET   /api/history             - 最近执行记录

Example:
  go run ./cmd/sectorflow api
  PORT=8090 go run ./cmd/sectorflow api`,
	RunE: runAPIServer,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	server := api.New(app.cfg, app.log, api.NewRouter(api.NewHandler(app.scheduler, app.log), app.log))
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("ops API listening on :%s\n", app.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
