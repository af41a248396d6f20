package contracts

// MarketSchedule is one market's trigger configuration. It lives only
// in the scheduler's memory for the process lifetime and may be changed
// at runtime; it is never persisted.
type MarketSchedule struct {
	Market     Market
	Enabled    bool
	TimeOfDay  string // HH:MM, local clock
	ActiveDays string // cron day-of-week range, e.g. MON-FRI
}

// MarketResult is the outcome of one market's monitoring run. It is
// assembled once when the job finishes and never mutated afterwards.
type MarketResult struct {
	Market     Market
	Success    bool
	Skipped    bool // market disabled, job not run
	Ranked     *RankedSnapshot
	Full       []SectorRow // today's complete table, for flow analysis
	Signals    []RotationSignal
	Trends     map[string]TrendResult // keyed by sector name, leaders only
	ChartFiles []string
	Err        string // non-empty when Success is false and not skipped
}
