package publish

import (
	"context"

	"github.com/mwjiang/sectorflow/pkg/config"
	"github.com/mwjiang/sectorflow/pkg/httputil"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

// Publisher delivers a rendered report to one destination.
type Publisher interface {
	// Publish sends the Markdown document. chartFiles are local PNG
	// paths; destinations that cannot carry images ignore them.
	Publish(ctx context.Context, title, markdown string, chartFiles []string) error

	// Name identifies the destination in logs.
	Name() string
}

// ForMode builds the publisher set for the configured output mode.
// Destinations with missing credentials are dropped with a warning so
// a half-configured deployment still publishes where it can.
func ForMode(cfg *config.Config, client *httputil.Client, log *logger.Logger) []Publisher {
	var out []Publisher

	if cfg.OutputMode == "telegram" || cfg.OutputMode == "both" {
		if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
			log.Warn("telegram output selected but credentials are missing")
		} else {
			out = append(out, NewTelegram(cfg, client, log))
		}
	}

	if cfg.OutputMode == "notion" || cfg.OutputMode == "both" {
		if cfg.Notion.APIKey == "" || cfg.Notion.ParentPageID == "" {
			log.Warn("notion output selected but credentials are missing")
		} else {
			out = append(out, NewNotion(cfg, client, log))
		}
	}

	return out
}
