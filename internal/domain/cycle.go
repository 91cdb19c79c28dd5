package domain

import (
	"fmt"
	"time"
)

// cycleStampLayout is the YYYYMMDDHH token embedded in source file names.
const cycleStampLayout = "2006010215"

// Cycle is a forecast issue instant, always exactly on a 00Z or 12Z base
// hour. It is never persisted directly; it appears only inside file names
// and as the issue timestamp on derived records.
type Cycle struct {
	time.Time
}

// NewCycle builds a cycle at the given UTC date and base hour.
func NewCycle(year int, month time.Month, day, hour int) Cycle {
	return Cycle{time.Date(year, month, day, hour, 0, 0, 0, time.UTC)}
}

// ParseCycleStamp parses a YYYYMMDDHH token back into a cycle.
func ParseCycleStamp(stamp string) (Cycle, error) {
	t, err := time.ParseInLocation(cycleStampLayout, stamp, time.UTC)
	if err != nil {
		return Cycle{}, fmt.Errorf("parse cycle stamp %q: %w", stamp, err)
	}
	return Cycle{t}, nil
}

// Stamp renders the cycle as the YYYYMMDDHH file-name token.
func (c Cycle) Stamp() string {
	return c.UTC().Format(cycleStampLayout)
}

// RelativePath is the storage subdirectory for files owned by this cycle,
// always "{year}/{zero-padded month}".
func (c Cycle) RelativePath() string {
	return c.UTC().Format("2006/01")
}

// ResolveStationCycle maps a wall-clock instant to the governing cycle for
// the station-surge and max-surge families. The asymmetric bounds at hours
// 1 and 15 match the upstream publication schedule and must not be
// "cleaned up".
func ResolveStationCycle(now time.Time) Cycle {
	now = now.UTC()
	h := now.Hour()
	switch {
	case h >= 1 && h < 15:
		d := now.AddDate(0, 0, -1)
		return NewCycle(d.Year(), d.Month(), d.Day(), 12)
	case h >= 15:
		return NewCycle(now.Year(), now.Month(), now.Day(), 0)
	default: // h < 1
		d := now.Add(-time.Hour)
		return NewCycle(d.Year(), d.Month(), d.Day(), 0)
	}
}

// ResolveWindCycle maps a wall-clock instant to the governing cycle for the
// wind-field family, which uses a window centered on the day's 00Z base.
func ResolveWindCycle(now time.Time) Cycle {
	now = now.UTC()
	h := now.Hour()
	base := NewCycle(now.Year(), now.Month(), now.Day(), 0)
	switch {
	case h >= 9 && h <= 21:
		return base
	case h < 9:
		return Cycle{base.Add(-12 * time.Hour)}
	default: // h > 21
		return Cycle{base.Add(12 * time.Hour)}
	}
}
