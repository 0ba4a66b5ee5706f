package monitor

import (
	"fmt"
	"time"
)

// Schedule picks the polling interval from the wall-clock time of day.
type Schedule struct {
	Interval     time.Duration
	PeakInterval time.Duration
	// PeakStart and PeakEnd are minutes after midnight; both ends are inclusive.
	PeakStart int
	PeakEnd   int
	Location  *time.Location
}

// ParseSchedule builds a Schedule from "HH:MM" window bounds.
func ParseSchedule(interval, peak time.Duration, start, end string, loc *time.Location) (Schedule, error) {
	if interval <= 0 || peak <= 0 {
		return Schedule{}, fmt.Errorf("intervals must be positive")
	}
	s, err := minuteOfDay(start)
	if err != nil {
		return Schedule{}, fmt.Errorf("peak start: %w", err)
	}
	e, err := minuteOfDay(end)
	if err != nil {
		return Schedule{}, fmt.Errorf("peak end: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Schedule{
		Interval:     interval,
		PeakInterval: peak,
		PeakStart:    s,
		PeakEnd:      e,
		Location:     loc,
	}, nil
}

// InPeak reports whether t falls inside the peak window. Windows whose start is
// after their end wrap past midnight.
func (s Schedule) InPeak(t time.Time) bool {
	if s.Location != nil {
		t = t.In(s.Location)
	}
	m := t.Hour()*60 + t.Minute()
	if s.PeakStart <= s.PeakEnd {
		return m >= s.PeakStart && m <= s.PeakEnd
	}
	return m >= s.PeakStart || m <= s.PeakEnd
}

// Next returns the delay before the following check.
func (s Schedule) Next(t time.Time) time.Duration {
	if s.InPeak(t) {
		return s.PeakInterval
	}
	return s.Interval
}

func minuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
