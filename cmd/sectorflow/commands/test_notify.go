package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwjiang/sectorflow/internal/publish"
	"github.com/mwjiang/sectorflow/pkg/config"
	"github.com/mwjiang/sectorflow/pkg/httputil"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

// testNotifyCmd represents the test-notify command
var testNotifyCmd = &cobra.Command{
	Use:   "test-notify",
	Short: "推送渠道连通性测试",
	Long: `向配置的推送渠道发送一条测试消息,
用于验证 Telegram / Notion 凭据是否可用。

Example:
  go run ./cmd/sectorflow test-notify`,
	RunE: runTestNotify,
}

func init() {
	rootCmd.AddCommand(testNotifyCmd)
}

func runTestNotify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg)
	client := httputil.New(cfg, log)

	publishers := publish.ForMode(cfg, client, log)
	if len(publishers) == 0 {
		return fmt.Errorf("no publisher configured for output mode %q", cfg.OutputMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().Format("2006-01-02 15:04:05")
	md := fmt.Sprintf("# sectorflow 连通性测试\n\n发送时间: %s\n", now)

	failures := 0
	for _, pub := range publishers {
		if err := pub.Publish(ctx, "sectorflow connectivity test", md, nil); err != nil {
			fmt.Printf("%-9s FAILED: %v\n", pub.Name(), err)
			failures++
			continue
		}
		fmt.Printf("%-9s ok\n", pub.Name())
	}

	if failures > 0 {
		return fmt.Errorf("%d publisher(s) failed", failures)
	}
	return nil
}
