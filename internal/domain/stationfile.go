package domain

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// extratropicalLeadRows is the number of leading forecast hours emitted by
// the 192-step extratropical runs that belong to the previous day and are
// discarded before persistence.
const extratropicalLeadRows = 25

// hourlySeriesLen is the expected forecast horizon of a standard run.
const hourlySeriesLen = 168

// StationSeries is one station's hourly surge values in forecast order.
type StationSeries struct {
	Code   string
	Values []float64
}

// ReadStationSurgeTable reads a station surge report: a header row of
// station codes followed by one whitespace-delimited row per forecast hour.
// The optional alias map translates header tokens to canonical station
// codes; unmapped tokens are used verbatim. Series longer than 168 values
// are trimmed to their final 168 hours (extratropical runs lead with one
// extra day).
func ReadStationSurgeTable(path string, alias map[string]string) ([]StationSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("station file %s: empty", path)
	}
	codes := strings.Fields(scanner.Text())
	if len(codes) == 0 {
		return nil, fmt.Errorf("station file %s: blank header", path)
	}
	for i, c := range codes {
		if mapped, ok := alias[c]; ok {
			codes[i] = mapped
		}
	}

	columns := make([][]float64, len(codes))
	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(codes) {
			return nil, fmt.Errorf("station file %s line %d: %d values for %d stations", path, line, len(fields), len(codes))
		}
		for i, fv := range fields {
			v, err := strconv.ParseFloat(fv, 64)
			if err != nil {
				return nil, fmt.Errorf("station file %s line %d: %w", path, line, err)
			}
			columns[i] = append(columns[i], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read station file: %w", err)
	}

	series := make([]StationSeries, len(codes))
	for i, code := range codes {
		values := columns[i]
		if len(values) != hourlySeriesLen && len(values) > extratropicalLeadRows {
			values = values[extratropicalLeadRows:]
		}
		series[i] = StationSeries{Code: code, Values: values}
	}
	return series, nil
}
