package commands

import (
	"github.com/mwjiang/sectorflow/internal/analysis"
	"github.com/mwjiang/sectorflow/internal/chart"
	"github.com/mwjiang/sectorflow/internal/fetch"
	"github.com/mwjiang/sectorflow/internal/monitor"
	"github.com/mwjiang/sectorflow/internal/publish"
	"github.com/mwjiang/sectorflow/internal/report"
	"github.com/mwjiang/sectorflow/internal/snapshot"
	"github.com/mwjiang/sectorflow/pkg/config"
	"github.com/mwjiang/sectorflow/pkg/httputil"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

// app bundles the wired collaborators every command starts from.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	scheduler *monitor.Scheduler
}

// buildApp loads config and wires the full pipeline. Construction
// happens here only; commands just pick what they need.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	// Provider endpoints throttle aggressive pollers; the fetch client
	// gets a dedicated budget while publishing uses its own client.
	fetchClient := httputil.New(cfg, log).WithRateLimit(4, 8)
	pubClient := httputil.New(cfg, log)

	store := snapshot.NewStore(cfg.DataPath, log)
	engine := analysis.NewEngine(log)

	var renderer *chart.Renderer
	if cfg.Chart.Enabled {
		renderer = chart.NewRenderer(cfg, pubClient, log)
	}

	job := monitor.NewJob(store, engine, renderer, fetch.Options{
		HTTP:   fetchClient,
		Logger: log,
		HKMode: cfg.HKDataMode,
	}, log)

	publishers := publish.ForMode(cfg, pubClient, log)
	scheduler := monitor.NewScheduler(cfg, job, engine, report.New(log), publishers, log)

	return &app{cfg: cfg, log: log, scheduler: scheduler}, nil
}
