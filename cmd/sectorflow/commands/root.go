package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sectorflow",
	Short: "多市场板块资金流向监控",
	Long: `sectorflow - 多市场板块资金流向监控

每日定时抓取 A股/美股/港股板块资金数据, 排名净流入,
检测板块轮动并推送 Markdown 报告到 Notion / Telegram。

Usage:
  go run ./cmd/sectorflow [command]

Examples:
  go run ./cmd/sectorflow run --all
  go run ./cmd/sectorflow run --market us
  go run ./cmd/sectorflow scheduler start
  go run ./cmd/sectorflow scheduler list
  go run ./cmd/sectorflow test-notify`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
