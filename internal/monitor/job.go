package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mwjiang/sectorflow/internal/analysis"
	"github.com/mwjiang/sectorflow/internal/chart"
	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/internal/fetch"
	"github.com/mwjiang/sectorflow/internal/snapshot"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

const (
	reportTopN      = 10
	prevTableTopN   = 20
	trendWindowDays = 10
	trendLeaders    = 3
	chartLeaders    = 5
)

// Job runs one market's daily monitoring pipeline: fetch, rank,
// persist, compare against the previous session, score trends and
// render charts. Every failure mode lands in the returned result; Run
// never returns an error.
type Job struct {
	store     *snapshot.Store
	engine    *analysis.Engine
	renderer  *chart.Renderer // nil disables chart output
	logger    *logger.Logger
	fetchOpts fetch.Options

	// Fetchers are built once per market and reused across runs.
	mu         sync.Mutex
	fetchers   map[contracts.Market]fetch.Fetcher
	newFetcher func(contracts.Market, fetch.Options) (fetch.Fetcher, error)

	now func() time.Time
}

func NewJob(store *snapshot.Store, engine *analysis.Engine, renderer *chart.Renderer, opts fetch.Options, log *logger.Logger) *Job {
	return &Job{
		store:      store,
		engine:     engine,
		renderer:   renderer,
		logger:     log.WithField("component", "monitor"),
		fetchOpts:  opts,
		fetchers:   make(map[contracts.Market]fetch.Fetcher),
		newFetcher: fetch.New,
		now:        time.Now,
	}
}

// Run executes the pipeline for one market and assembles the result in
// a single place once every step has finished.
func (j *Job) Run(ctx context.Context, market contracts.Market) contracts.MarketResult {
	log := j.logger.WithField("market", string(market))
	today := j.now()
	dateKey := today.Format("20060102")

	fetcher, err := j.fetcher(market)
	if err != nil {
		return failed(market, err.Error())
	}

	// Step 1: fetch today's table.
	rows, err := fetcher.SectorData(ctx, dateKey)
	if err != nil {
		log.WithError(err).Error("sector data fetch failed")
		return failed(market, fmt.Sprintf("fetch failed: %v", err))
	}
	if len(rows) == 0 {
		return failed(market, "fetch returned empty dataset")
	}

	// Step 2: rank. Ranks cover the full table; the report view is
	// trimmed to the leaders.
	full := j.engine.RankByInflow(rows, 0)
	top := &contracts.RankedSnapshot{Rows: full.TopN(reportTopN)}
	log.WithField("top3", topNames(top, 3)).Info("sector ranking computed")

	// Step 3: persist today's snapshot before anything can fail later.
	if _, err := j.store.Save(market, today.Format("2006-01-02"), rows); err != nil {
		log.WithError(err).Error("snapshot save failed")
		return failed(market, fmt.Sprintf("snapshot save failed: %v", err))
	}

	// Step 4: rotation against the previous session, when we have one.
	var signals []contracts.RotationSignal
	prevDate := contracts.PrevTradingDate(market, today)
	prevRows, err := j.store.Load(market, prevDate.Format("2006-01-02"))
	if err != nil {
		log.WithError(err).Warn("previous snapshot unreadable, skipping rotation")
	} else if len(prevRows) > 0 {
		prevRanked := j.engine.RankByInflow(prevRows, prevTableTopN)
		signals = j.engine.DetectRotation(full, prevRanked, reportTopN)
	}

	// Step 5: trend strength for the leading sectors.
	trends := j.scoreTrends(market, top, today)

	// Step 6: charts, best effort.
	var chartFiles []string
	if j.renderer != nil && j.renderer.Enabled() {
		chartFiles = j.renderCharts(ctx, market, top, today, log)
	}

	return contracts.MarketResult{
		Market:     market,
		Success:    true,
		Ranked:     top,
		Full:       rows,
		Signals:    signals,
		Trends:     trends,
		ChartFiles: chartFiles,
	}
}

func (j *Job) scoreTrends(market contracts.Market, top *contracts.RankedSnapshot, today time.Time) map[string]contracts.TrendResult {
	history, err := j.store.LoadRange(market, today.AddDate(0, 0, -trendWindowDays), today)
	if err != nil || len(history) == 0 {
		return nil
	}

	trends := make(map[string]contracts.TrendResult)
	for _, row := range top.TopN(trendLeaders) {
		res := j.engine.TrendStrength(history, row.SectorName, trendWindowDays)
		if res.Reason != "" {
			continue
		}
		trends[row.SectorName] = res
	}
	if len(trends) == 0 {
		return nil
	}
	return trends
}

func (j *Job) renderCharts(ctx context.Context, market contracts.Market, top *contracts.RankedSnapshot, today time.Time, log *logger.Logger) []string {
	var files []string
	dateKey := today.Format("20060102")

	if path, err := j.renderer.FlowBarChart(ctx, market, top, dateKey); err != nil {
		log.WithError(err).Warn("flow chart render failed")
	} else {
		files = append(files, path)
	}

	history, err := j.store.LoadRange(market, today.AddDate(0, 0, -trendWindowDays), today)
	if err != nil || len(history) == 0 {
		return files
	}
	var leaders []string
	for _, row := range top.TopN(chartLeaders) {
		leaders = append(leaders, row.SectorName)
	}
	if path, err := j.renderer.TrendChart(ctx, market, history, leaders, dateKey); err != nil {
		log.WithError(err).Warn("trend chart render failed")
	} else {
		files = append(files, path)
	}

	return files
}

// fetcher returns the cached fetcher for market, building it on first
// use.
func (j *Job) fetcher(market contracts.Market) (fetch.Fetcher, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if f, ok := j.fetchers[market]; ok {
		return f, nil
	}
	f, err := j.newFetcher(market, j.fetchOpts)
	if err != nil {
		return nil, err
	}
	j.fetchers[market] = f
	return f, nil
}

func failed(market contracts.Market, msg string) contracts.MarketResult {
	return contracts.MarketResult{Market: market, Err: msg}
}

func topNames(s *contracts.RankedSnapshot, n int) string {
	var names []string
	for _, row := range s.TopN(n) {
		names = append(names, row.SectorName)
	}
	return strings.Join(names, " > ")
}
