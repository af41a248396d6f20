package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwjiang/sectorflow/internal/contracts"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "立即执行一次监控",
	Long: `立即执行一次监控, 不经过定时器。

--all 按固定顺序依次跑所有启用的市场, 汇总为一份报告;
--market 只跑指定市场并单独推送。

Example:
  go run ./cmd/sectorflow run --all
  go run ./cmd/sectorflow run --market a_share
  go run ./cmd/sectorflow run --market us`,
	RunE: runOnce,
}

var (
	runMarket string
	runAll    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runMarket, "market", "", "单个市场 (a_share|us|hk)")
	runCmd.Flags().BoolVar(&runAll, "all", false, "所有启用的市场")
}

func runOnce(cmd *cobra.Command, args []string) error {
	if runAll == (runMarket != "") {
		return fmt.Errorf("specify exactly one of --all or --market")
	}

	app, err := buildApp()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if runAll {
		ok, results := app.scheduler.RunOnce(ctx)
		for _, res := range results {
			printResult(res)
		}
		if !ok {
			return fmt.Errorf("all markets failed")
		}
		return nil
	}

	market, err := contracts.ParseMarket(runMarket)
	if err != nil {
		return err
	}
	res := app.scheduler.RunMarket(ctx, market)
	printResult(res)
	if !res.Success {
		return fmt.Errorf("%s run failed: %s", market, res.Err)
	}
	return nil
}

func printResult(res contracts.MarketResult) {
	switch {
	case res.Skipped:
		fmt.Printf("%s %s: skipped (disabled)\n", res.Market.Emoji(), res.Market.Label())
	case !res.Success:
		fmt.Printf("%s %s: FAILED - %s\n", res.Market.Emoji(), res.Market.Label(), res.Err)
	default:
		fmt.Printf("%s %s: %d sectors, %d rotation signals\n",
			res.Market.Emoji(), res.Market.Label(), len(res.Full), len(res.Signals))
		for _, row := range res.Ranked.TopN(3) {
			fmt.Printf("   #%d %s (%.2f)\n", row.Rank, row.SectorName, row.NetInflow)
		}
	}
}
