package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/internal/monitor"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

// Handler exposes the scheduler over HTTP.
type Handler struct {
	scheduler *monitor.Scheduler
	logger    *logger.Logger
}

func NewHandler(s *monitor.Scheduler, log *logger.Logger) *Handler {
	return &Handler{scheduler: s, logger: log}
}

type scheduleView struct {
	Market     string `json:"market"`
	Enabled    bool   `json:"enabled"`
	TimeOfDay  string `json:"time_of_day"`
	ActiveDays string `json:"active_days"`
}

type schedulePatch struct {
	Enabled    *bool   `json:"enabled"`
	TimeOfDay  *string `json:"time_of_day"`
	ActiveDays *string `json:"active_days"`
}

type runView struct {
	Market  string   `json:"market"`
	Success bool     `json:"success"`
	Skipped bool     `json:"skipped,omitempty"`
	Error   string   `json:"error,omitempty"`
	Top     []string `json:"top,omitempty"`
	Signals int      `json:"signals"`
}

// GetSchedules returns the current schedule table.
func (h *Handler) GetSchedules(w http.ResponseWriter, r *http.Request) {
	var out []scheduleView
	for _, s := range h.scheduler.Schedules() {
		out = append(out, scheduleView{
			Market:     string(s.Market),
			Enabled:    s.Enabled,
			TimeOfDay:  s.TimeOfDay,
			ActiveDays: s.ActiveDays,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateSchedule applies a partial schedule change to one market.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	market, err := contracts.ParseMarket(mux.Vars(r)["market"])
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown market")
		return
	}

	var patch schedulePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var current contracts.MarketSchedule
	for _, s := range h.scheduler.Schedules() {
		if s.Market == market {
			current = s
			break
		}
	}

	if patch.Enabled != nil {
		current.Enabled = *patch.Enabled
	}
	if patch.TimeOfDay != nil {
		current.TimeOfDay = *patch.TimeOfDay
	}
	if patch.ActiveDays != nil {
		current.ActiveDays = *patch.ActiveDays
	}

	if err := h.scheduler.UpdateSchedule(current); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, scheduleView{
		Market:     string(current.Market),
		Enabled:    current.Enabled,
		TimeOfDay:  current.TimeOfDay,
		ActiveDays: current.ActiveDays,
	})
}

// RunMarket triggers one market's pipeline immediately.
func (h *Handler) RunMarket(w http.ResponseWriter, r *http.Request) {
	market, err := contracts.ParseMarket(mux.Vars(r)["market"])
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown market")
		return
	}

	res := h.scheduler.RunMarket(r.Context(), market)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resultView(res))
}

// RunAll triggers all enabled markets sequentially.
func (h *Handler) RunAll(w http.ResponseWriter, r *http.Request) {
	ok, results := h.scheduler.RunOnce(r.Context())

	views := make([]runView, 0, len(results))
	for _, res := range results {
		views = append(views, resultView(res))
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]interface{}{
		"success": ok,
		"results": views,
	})
}

// GetHistory returns recent run records, newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scheduler.History())
}

func resultView(res contracts.MarketResult) runView {
	v := runView{
		Market:  string(res.Market),
		Success: res.Success,
		Skipped: res.Skipped,
		Error:   res.Err,
		Signals: len(res.Signals),
	}
	for _, row := range res.Ranked.TopN(3) {
		v.Top = append(v.Top, row.SectorName)
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
