package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mwjiang/sectorflow/internal/contracts"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

// Store persists one sector table per (market, date) as a CSV file
// under a configured root directory. It is the only persistent state in
// the system. A re-run for the same key overwrites the file wholesale.
type Store struct {
	root   string
	logger *logger.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, log *logger.Logger) *Store {
	return &Store{
		root:   dir,
		logger: log.WithField("module", "snapshot"),
	}
}

var header = []string{
	"sector_name", "market", "net_inflow", "change_pct",
	"volume", "symbol", "close_price", "trade_date",
}

// Save serializes rows to the file for (market, date), creating the
// root directory if needed. The write goes to a temp file first and is
// renamed into place, so readers never see a partial table.
func (s *Store) Save(market contracts.Market, date string, rows []contracts.SectorRow) (string, error) {
	key, err := canonicalDate(date)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	path := s.path(market, key)
	tmp, err := os.CreateTemp(s.root, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.SectorName,
			row.Market.String(),
			strconv.FormatFloat(row.NetInflow, 'f', -1, 64),
			strconv.FormatFloat(row.ChangePct, 'f', -1, 64),
			strconv.FormatInt(row.Volume, 10),
			row.Symbol,
			strconv.FormatFloat(row.ClosePrice, 'f', -1, 64),
			row.TradeDate,
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return "", fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename snapshot into place: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"market": market.String(),
		"date":   key,
		"rows":   len(rows),
		"path":   path,
	}).Info("Snapshot saved")

	return path, nil
}

// Load reads the table for (market, date). A missing file is not an
// error: it returns (nil, nil) so callers can degrade gracefully.
// Columns the store does not recognize are ignored; recognized columns
// that are absent yield zero values.
func (s *Store) Load(market contracts.Market, date string) ([]contracts.SectorRow, error) {
	key, err := canonicalDate(date)
	if err != nil {
		return nil, err
	}

	path := s.path(market, key)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.WithFields(map[string]interface{}{
				"market": market.String(),
				"date":   key,
			}).Warn("Snapshot file not found")
			return nil, nil
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged tables
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.TrimSpace(name)] = i
	}

	rows := make([]contracts.SectorRow, 0, len(records)-1)
	for _, record := range records[1:] {
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		row := contracts.SectorRow{
			SectorName: field("sector_name"),
			Market:     contracts.Market(field("market")),
			Symbol:     field("symbol"),
			TradeDate:  field("trade_date"),
		}
		row.NetInflow, _ = strconv.ParseFloat(field("net_inflow"), 64)
		row.ChangePct, _ = strconv.ParseFloat(field("change_pct"), 64)
		row.Volume, _ = strconv.ParseInt(field("volume"), 10, 64)
		row.ClosePrice, _ = strconv.ParseFloat(field("close_price"), 64)
		rows = append(rows, row)
	}

	s.logger.WithFields(map[string]interface{}{
		"market": market.String(),
		"date":   key,
		"rows":   len(rows),
	}).Debug("Snapshot loaded")

	return rows, nil
}

// LoadRange concatenates the daily snapshots for market between from
// and to inclusive. Days without a snapshot are skipped. Each row is
// stamped with its snapshot date when the stored table lacks one.
func (s *Store) LoadRange(market contracts.Market, from, to time.Time) ([]contracts.SectorRow, error) {
	var all []contracts.SectorRow

	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dateStr := d.Format("2006-01-02")
		rows, err := s.Load(market, dateStr)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.TradeDate == "" {
				row.TradeDate = dateStr
			}
			all = append(all, row)
		}
	}

	return all, nil
}

func (s *Store) path(market contracts.Market, dateKey string) string {
	return filepath.Join(s.root, fmt.Sprintf("%s_sector_flow_%s.csv", market, dateKey))
}

// canonicalDate normalizes YYYY-MM-DD or YYYYMMDD to the 8-digit
// storage key.
func canonicalDate(date string) (string, error) {
	key := strings.ReplaceAll(strings.TrimSpace(date), "-", "")
	if len(key) != 8 {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD or YYYYMMDD)", date)
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD or YYYYMMDD)", date)
		}
	}
	return key, nil
}
