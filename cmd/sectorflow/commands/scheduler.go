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
	"github.com/mwjiang/sectorflow/internal/contracts"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "定时器管理",
	Long: `启动或查看各市场的定时监控。

Subcommands:
  start   - 启动定时器和运维 API, Ctrl+C 退出
  list    - 查看各市场的触发时间
  run     - 立即执行指定市场
  status  - 最近的执行记录

Example:
  go run ./cmd/sectorflow scheduler start
  go run ./cmd/sectorflow scheduler list
  go run ./cmd/sectorflow scheduler run hk`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "启动定时器",
		RunE:  startScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "查看触发时间",
		RunE:  listSchedules,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [market]",
		Short: "立即执行指定市场",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduledMarket,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "最近的执行记录",
		RunE:  showHistory,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func startScheduler(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	if err := app.scheduler.Start(); err != nil {
		return err
	}

	server := api.New(app.cfg, app.log, api.NewRouter(api.NewHandler(app.scheduler, app.log), app.log))
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Println("scheduler started, press Ctrl+C to stop")
	for _, s := range mustSchedules(app) {
		fmt.Printf("  %-8s enabled=%-5v %s %s\n", s.Market, s.Enabled, s.TimeOfDay, s.ActiveDays)
	}

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
	if err := server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("server shutdown failed")
	}
	return app.scheduler.Stop(ctx)
}

func listSchedules(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	fmt.Println("market    enabled  time   days")
	for _, s := range mustSchedules(app) {
		fmt.Printf("%-9s %-8v %-6s %s\n", s.Market, s.Enabled, s.TimeOfDay, s.ActiveDays)
	}
	return nil
}

func runScheduledMarket(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	market, err := contracts.ParseMarket(args[0])
	if err != nil {
		return err
	}

	res := app.scheduler.RunMarket(context.Background(), market)
	printResult(res)
	if !res.Success {
		return fmt.Errorf("%s run failed: %s", market, res.Err)
	}
	return nil
}

func showHistory(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	records := app.scheduler.History()
	if len(records) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range records {
		fmt.Printf("%s  %-7s success=%-5v %s\n",
			r.At.Format("2006-01-02 15:04:05"), r.Trigger, r.Success, r.Summary)
	}
	return nil
}

func mustSchedules(a *app) []contracts.MarketSchedule {
	return a.scheduler.Schedules()
}
