// Package schedule computes the time slots that can be offered for one
// calendar date. Times of day travel as zero-padded "HH:MM" strings, so
// lexicographic order is chronological.
package schedule

import (
	"fmt"
	"sort"
	"time"
)

// Hours is the salon's working window; Start is inclusive, End exclusive.
type Hours struct {
	Start string
	End   string
}

// ParseClock parses a zero-padded "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("bad clock value %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Grid returns the full working-hours grid: every time from hours.Start up
// to but excluding hours.End, stepping by step.
func Grid(hours Hours, step time.Duration) ([]string, error) {
	start, err := ParseClock(hours.Start)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(hours.End)
	if err != nil {
		return nil, err
	}
	stepMin := int(step / time.Minute)
	if stepMin <= 0 {
		return nil, fmt.Errorf("non-positive slot step %v", step)
	}

	var grid []string
	for t := start; t < end; t += stepMin {
		grid = append(grid, formatClock(t))
	}
	return grid, nil
}

// AvailableSlots returns the sorted offerable times for one date: the
// working-hours grid minus booked times, plus every extra (admin-opened)
// time that is neither already offered nor booked. An extra slot outside the
// grid is still offered; one that collides with a booking is suppressed.
func AvailableSlots(hours Hours, step time.Duration, booked, extra []string) ([]string, error) {
	grid, err := Grid(hours, step)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(booked))
	for _, t := range booked {
		taken[t] = true
	}

	slots := make([]string, 0, len(grid)+len(extra))
	offered := make(map[string]bool, len(grid)+len(extra))
	for _, t := range grid {
		if !taken[t] {
			slots = append(slots, t)
			offered[t] = true
		}
	}
	for _, t := range extra {
		if !offered[t] && !taken[t] {
			slots = append(slots, t)
			offered[t] = true
		}
	}

	sort.Strings(slots)
	return slots, nil
}
