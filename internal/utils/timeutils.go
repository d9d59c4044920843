package utils

import (
	"fmt"
	"time"
)

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// TickOffsets returns count timestamps spaced by step, starting one step after base.
func TickOffsets(base time.Time, step time.Duration, count int) []time.Time {
	if count <= 0 {
		return nil
	}
	out := make([]time.Time, count)
	for i := range out {
		out[i] = base.Add(time.Duration(i+1) * step)
	}
	return out
}
