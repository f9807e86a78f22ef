package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"pricecast/internal/model"
)

// CSVFetcher reads a price table with a date column and a close column.
// The symbol argument is ignored; one file holds one instrument.
type CSVFetcher struct {
	Path        string
	DateColumn  string
	ValueColumn string
}

// NewCSVFetcher creates a fetcher for path with the default "Date" and
// "Close" columns.
func NewCSVFetcher(path string) *CSVFetcher {
	return &CSVFetcher{Path: path, DateColumn: "Date", ValueColumn: "Close"}
}

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) FetchDailyCloses(_ context.Context, _ string, days int) ([]model.Observation, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	obs, err := ParseCSV(file, f.DateColumn, f.ValueColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	if days > 0 && len(obs) > days {
		obs = obs[len(obs)-days:]
	}
	return obs, nil
}

var dateLayouts = []string{model.DateLayout, time.RFC3339, "2006-01-02 15:04:05"}

// ParseCSV decodes rows into observations sorted by date. Rows with an empty
// close are skipped.
func ParseCSV(r io.Reader, dateCol, valueCol string) ([]model.Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: empty file")
		}
		return nil, fmt.Errorf("csv header: %w", err)
	}
	di, vi := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case dateCol:
			di = i
		case valueCol:
			vi = i
		}
	}
	if di < 0 || vi < 0 {
		return nil, fmt.Errorf("csv: columns %q and %q are required", dateCol, valueCol)
	}

	var obs []model.Observation
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		raw := strings.TrimSpace(rec[vi])
		if raw == "" {
			continue
		}
		d, err := parseDate(strings.TrimSpace(rec[di]))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: parse %s: %w", line, valueCol, err)
		}
		obs = append(obs, model.Observation{Date: d, Value: v})
	}

	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	return obs, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
