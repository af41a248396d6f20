package chart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/pkg/config"
	"github.com/mwjiang/sectorflow/pkg/httputil"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

// Renderer turns sector tables into PNG charts through a
// QuickChart-compatible rendering endpoint. Chart failures are never
// fatal to a run; callers log and continue without the image.
type Renderer struct {
	http    *httputil.Client
	logger  *logger.Logger
	baseURL string
	outDir  string
	enabled bool
}

func NewRenderer(cfg *config.Config, client *httputil.Client, log *logger.Logger) *Renderer {
	return &Renderer{
		http:    client,
		logger:  log.WithField("component", "chart"),
		baseURL: cfg.Chart.BaseURL,
		outDir:  cfg.ChartsPath,
		enabled: cfg.Chart.Enabled,
	}
}

// Enabled reports whether chart rendering is switched on.
func (r *Renderer) Enabled() bool { return r.enabled }

type renderRequest struct {
	Chart           map[string]interface{} `json:"chart"`
	Width           int                    `json:"width"`
	Height          int                    `json:"height"`
	Format          string                 `json:"format"`
	BackgroundColor string                 `json:"backgroundColor"`
}

// FlowBarChart renders a horizontal bar chart of the day's ranked net
// inflows, green for inflow and red for outflow. Returns the saved
// file path.
func (r *Renderer) FlowBarChart(ctx context.Context, market contracts.Market, ranked *contracts.RankedSnapshot, dateKey string) (string, error) {
	if ranked.Empty() {
		return "", fmt.Errorf("no rows to chart for %s", market)
	}

	var labels []string
	var values []float64
	var colors []string
	for _, row := range ranked.Rows {
		labels = append(labels, row.SectorName)
		values = append(values, row.NetInflow)
		if row.NetInflow >= 0 {
			colors = append(colors, "rgba(75, 192, 112, 0.8)")
		} else {
			colors = append(colors, "rgba(235, 87, 87, 0.8)")
		}
	}

	chart := map[string]interface{}{
		"type": "horizontalBar",
		"data": map[string]interface{}{
			"labels": labels,
			"datasets": []map[string]interface{}{{
				"label":           "Net inflow",
				"data":            values,
				"backgroundColor": colors,
			}},
		},
		"options": map[string]interface{}{
			"title": map[string]interface{}{
				"display": true,
				"text":    fmt.Sprintf("%s sector net inflow %s", market.Label(), dateKey),
			},
			"legend": map[string]interface{}{"display": false},
		},
	}

	return r.render(ctx, chart, r.fileName(market, "flow", dateKey))
}

var trendPalette = []string{
	"rgba(54, 162, 235, 1)",
	"rgba(255, 99, 132, 1)",
	"rgba(75, 192, 112, 1)",
	"rgba(255, 159, 64, 1)",
	"rgba(153, 102, 255, 1)",
}

// TrendChart renders the daily net inflow history of several sectors
// as one multi-series line chart. History may span all sectors; one
// dataset is built per requested sector name, with gaps where a sector
// has no observation for a date.
func (r *Renderer) TrendChart(ctx context.Context, market contracts.Market, history []contracts.SectorRow, sectors []string, dateKey string) (string, error) {
	if len(history) == 0 || len(sectors) == 0 {
		return "", fmt.Errorf("no history to chart for %s", market)
	}

	// X axis: unique dates ascending.
	dateSet := make(map[string]bool)
	for _, row := range history {
		if row.TradeDate != "" {
			dateSet[row.TradeDate] = true
		}
	}
	labels := make([]string, 0, len(dateSet))
	for d := range dateSet {
		labels = append(labels, d)
	}
	sort.Strings(labels)

	byKey := make(map[string]float64, len(history))
	for _, row := range history {
		byKey[row.SectorName+"\x00"+row.TradeDate] = row.NetInflow
	}

	var datasets []map[string]interface{}
	for i, sector := range sectors {
		values := make([]interface{}, len(labels))
		for j, d := range labels {
			if v, ok := byKey[sector+"\x00"+d]; ok {
				values[j] = v
			}
		}
		datasets = append(datasets, map[string]interface{}{
			"label":       sector,
			"data":        values,
			"fill":        false,
			"borderColor": trendPalette[i%len(trendPalette)],
			"tension":     0.1,
		})
	}

	chart := map[string]interface{}{
		"type": "line",
		"data": map[string]interface{}{
			"labels":   labels,
			"datasets": datasets,
		},
		"options": map[string]interface{}{
			"title": map[string]interface{}{
				"display": true,
				"text":    fmt.Sprintf("%s sector net inflow trend", market.Label()),
			},
		},
	}

	return r.render(ctx, chart, r.fileName(market, "trend", dateKey))
}

func (r *Renderer) render(ctx context.Context, chart map[string]interface{}, fileName string) (string, error) {
	req := renderRequest{
		Chart:           chart,
		Width:           800,
		Height:          450,
		Format:          "png",
		BackgroundColor: "white",
	}

	resp, err := r.http.PostJSON(ctx, r.baseURL+"/chart", req)
	if err != nil {
		return "", fmt.Errorf("chart render request: %w", err)
	}
	png, err := httputil.ReadBody(resp)
	if err != nil {
		return "", fmt.Errorf("chart render response: %w", err)
	}
	if len(png) == 0 {
		return "", fmt.Errorf("chart renderer returned empty image")
	}

	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create charts dir: %w", err)
	}
	path := filepath.Join(r.outDir, fileName)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write chart file: %w", err)
	}

	r.logger.WithField("path", path).Debug("chart rendered")
	return path, nil
}

func (r *Renderer) fileName(market contracts.Market, kind, dateKey string) string {
	return fmt.Sprintf("%s_%s_%s.png", market, kind, dateKey)
}
