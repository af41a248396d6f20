package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mwjiang/sectorflow/internal/analysis"
	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/internal/publish"
	"github.com/mwjiang/sectorflow/internal/report"
	"github.com/mwjiang/sectorflow/pkg/config"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

const maxHistory = 50

// RunRecord is one entry of the in-memory run history.
type RunRecord struct {
	At       time.Time          `json:"at"`
	Trigger  string             `json:"trigger"` // "cron", "manual"
	Market   contracts.Market   `json:"market,omitempty"`
	Markets  []contracts.Market `json:"markets,omitempty"`
	Success  bool               `json:"success"`
	Summary  string             `json:"summary"`
	Duration time.Duration      `json:"duration"`
}

// Scheduler triggers per-market monitoring runs on independent cron
// schedules and pushes the rendered reports to the configured
// destinations. Schedules live only in memory and can be changed at
// runtime.
type Scheduler struct {
	cron       *cron.Cron
	job        *Job
	engine     *analysis.Engine
	reporter   *report.Reporter
	publishers []publish.Publisher
	logger     *logger.Logger

	mu        sync.RWMutex
	schedules map[contracts.Market]contracts.MarketSchedule
	entries   map[contracts.Market]cron.EntryID

	histMu  sync.Mutex
	history []RunRecord
}

func NewScheduler(cfg *config.Config, job *Job, engine *analysis.Engine, reporter *report.Reporter, publishers []publish.Publisher, log *logger.Logger) *Scheduler {
	s := &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		job:        job,
		engine:     engine,
		reporter:   reporter,
		publishers: publishers,
		logger:     log.WithField("component", "scheduler"),
		schedules:  make(map[contracts.Market]contracts.MarketSchedule),
		entries:    make(map[contracts.Market]cron.EntryID),
	}

	s.schedules[contracts.MarketDomestic] = scheduleFrom(contracts.MarketDomestic, cfg.Domestic)
	s.schedules[contracts.MarketUS] = scheduleFrom(contracts.MarketUS, cfg.US)
	s.schedules[contracts.MarketHK] = scheduleFrom(contracts.MarketHK, cfg.HK)

	return s
}

func scheduleFrom(m contracts.Market, mc config.MarketConfig) contracts.MarketSchedule {
	return contracts.MarketSchedule{
		Market:     m,
		Enabled:    mc.Enabled,
		TimeOfDay:  mc.TimeOfDay,
		ActiveDays: mc.ActiveDays,
	}
}

// Start registers cron entries for the enabled markets and starts the
// cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range contracts.AllMarkets() {
		sched := s.schedules[m]
		if !sched.Enabled {
			s.logger.WithField("market", string(m)).Info("market disabled, not scheduling")
			continue
		}
		if err := s.registerLocked(sched); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for any in-flight run to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// registerLocked adds a cron entry for one market. Caller holds s.mu.
func (s *Scheduler) registerLocked(sched contracts.MarketSchedule) error {
	spec, err := cronSpec(sched)
	if err != nil {
		return fmt.Errorf("schedule for %s: %w", sched.Market, err)
	}

	market := sched.Market
	id, err := s.cron.AddFunc(spec, func() {
		s.runScheduled(market)
	})
	if err != nil {
		return fmt.Errorf("register cron entry for %s: %w", market, err)
	}

	s.entries[market] = id
	s.logger.WithFields(map[string]interface{}{
		"market": string(market),
		"spec":   spec,
	}).Info("market scheduled")
	return nil
}

// cronSpec builds the seconds-field cron expression for a schedule,
// e.g. "0 5 15 * * MON-FRI" for 15:05 on weekdays.
func cronSpec(sched contracts.MarketSchedule) (string, error) {
	at, err := time.Parse("15:04", sched.TimeOfDay)
	if err != nil {
		return "", fmt.Errorf("invalid time of day %q: %w", sched.TimeOfDay, err)
	}
	days := sched.ActiveDays
	if days == "" {
		days = "*"
	}
	return fmt.Sprintf("0 %d %d * * %s", at.Minute(), at.Hour(), days), nil
}

func (s *Scheduler) runScheduled(market contracts.Market) {
	ctx := context.Background()
	start := time.Now()

	res := s.job.Run(ctx, market)
	s.publishSingle(ctx, res)

	s.record(RunRecord{
		At:       start,
		Trigger:  "cron",
		Market:   market,
		Success:  res.Success,
		Summary:  s.reporter.Summary(res),
		Duration: time.Since(start),
	})
}

// RunMarket runs one market immediately and publishes its report.
func (s *Scheduler) RunMarket(ctx context.Context, market contracts.Market) contracts.MarketResult {
	start := time.Now()
	res := s.job.Run(ctx, market)
	s.publishSingle(ctx, res)

	s.record(RunRecord{
		At:       start,
		Trigger:  "manual",
		Market:   market,
		Success:  res.Success,
		Summary:  s.reporter.Summary(res),
		Duration: time.Since(start),
	})
	return res
}

// RunAllMarkets runs every enabled market sequentially in the fixed
// enumeration order. Disabled markets yield a Skipped result. No
// reports are published; callers decide what to do with the results.
func (s *Scheduler) RunAllMarkets(ctx context.Context) map[contracts.Market]contracts.MarketResult {
	out := make(map[contracts.Market]contracts.MarketResult, len(contracts.AllMarkets()))

	for _, m := range contracts.AllMarkets() {
		s.mu.RLock()
		enabled := s.schedules[m].Enabled
		s.mu.RUnlock()

		if !enabled {
			out[m] = contracts.MarketResult{Market: m, Skipped: true}
			continue
		}
		out[m] = s.job.Run(ctx, m)
	}
	return out
}

// RunOnce runs every enabled market sequentially and publishes one
// combined report. It reports success when at least one market
// succeeded.
func (s *Scheduler) RunOnce(ctx context.Context) (bool, []contracts.MarketResult) {
	start := time.Now()

	byMarket := s.RunAllMarkets(ctx)

	var results []contracts.MarketResult
	var markets []contracts.Market
	anySuccess := false
	for _, m := range contracts.AllMarkets() {
		res := byMarket[m]
		results = append(results, res)
		if res.Skipped {
			continue
		}
		markets = append(markets, m)
		anySuccess = anySuccess || res.Success
	}

	summary := fmt.Sprintf("ran %d markets", len(markets))
	if anySuccess {
		s.publishCombined(ctx, results)
	} else {
		s.logger.Warn("all markets failed, skipping publish")
	}

	s.record(RunRecord{
		At:       start,
		Trigger:  "manual",
		Markets:  markets,
		Success:  anySuccess,
		Summary:  summary,
		Duration: time.Since(start),
	})
	return anySuccess, results
}

func (s *Scheduler) publishSingle(ctx context.Context, res contracts.MarketResult) {
	if !res.Success {
		s.logger.WithField("market", string(res.Market)).
			WithField("error", res.Err).
			Warn("run failed, publishing failure notice")
	}

	date := s.job.now().Format("2006-01-02")
	md := s.reporter.SingleMarkdown(date, res, s.engine.FlowBreadth(res.Full))
	title := fmt.Sprintf("%s %s 板块资金流向 %s", res.Market.Emoji(), res.Market.Label(), date)
	s.deliver(ctx, title, md, res.ChartFiles)
}

func (s *Scheduler) publishCombined(ctx context.Context, results []contracts.MarketResult) {
	date := s.job.now().Format("2006-01-02")

	stats := make(map[contracts.Market]analysis.FlowStats)
	var charts []string
	for _, res := range results {
		if res.Success {
			stats[res.Market] = s.engine.FlowBreadth(res.Full)
			charts = append(charts, res.ChartFiles...)
		}
	}

	md := s.reporter.MultiMarkdown(date, results, stats)
	title := fmt.Sprintf("多市场板块资金流向 %s", date)
	s.deliver(ctx, title, md, charts)
}

func (s *Scheduler) deliver(ctx context.Context, title, md string, charts []string) {
	for _, pub := range s.publishers {
		if err := pub.Publish(ctx, title, md, charts); err != nil {
			s.logger.WithField("publisher", pub.Name()).WithError(err).
				Error("report publish failed")
		}
	}
}

// Schedules returns the current schedule table in fixed market order.
func (s *Scheduler) Schedules() []contracts.MarketSchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contracts.MarketSchedule, 0, len(s.schedules))
	for _, m := range contracts.AllMarkets() {
		out = append(out, s.schedules[m])
	}
	return out
}

// UpdateSchedule replaces one market's schedule at runtime, moving its
// cron entry accordingly. The change is not persisted.
func (s *Scheduler) UpdateSchedule(sched contracts.MarketSchedule) error {
	if _, err := cronSpec(sched); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[sched.Market]; !ok {
		return fmt.Errorf("unknown market %q", sched.Market)
	}

	if id, ok := s.entries[sched.Market]; ok {
		s.cron.Remove(id)
		delete(s.entries, sched.Market)
	}

	s.schedules[sched.Market] = sched
	if sched.Enabled {
		if err := s.registerLocked(sched); err != nil {
			return err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"market":  string(sched.Market),
		"enabled": sched.Enabled,
		"time":    sched.TimeOfDay,
		"days":    sched.ActiveDays,
	}).Info("schedule updated")
	return nil
}

// History returns recent run records, newest first.
func (s *Scheduler) History() []RunRecord {
	s.histMu.Lock()
	defer s.histMu.Unlock()

	out := make([]RunRecord, len(s.history))
	copy(out, s.history)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (s *Scheduler) record(r RunRecord) {
	s.histMu.Lock()
	defer s.histMu.Unlock()

	s.history = append(s.history, r)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}
