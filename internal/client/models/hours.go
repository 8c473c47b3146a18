package models

import (
	"fmt"
	"strings"
	"time"
)

// DayHours is the open window of one weekday in "HH:MM" 24h notation. A
// Close earlier than Open is an overnight window ending the next day; equal
// values mean open all day.
type DayHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed,omitempty"`
}

// BusinessHours maps lower-case weekday names ("monday") to their hours in
// Timezone. An empty schedule places no restriction.
type BusinessHours struct {
	Timezone string              `json:"timezone"`
	Days     map[string]DayHours `json:"days"`
}

// IsOpen reports whether t falls inside the schedule, including the tail of
// the previous day's overnight window.
func (b BusinessHours) IsOpen(t time.Time) bool {
	if len(b.Days) == 0 {
		return true
	}

	loc := time.UTC
	if b.Timezone != "" {
		if l, err := time.LoadLocation(b.Timezone); err == nil {
			loc = l
		}
	}
	local := t.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if open, close, ok := b.window(local.Weekday()); ok {
		switch {
		case open == close:
			return true
		case open < close:
			if minute >= open && minute < close {
				return true
			}
		default:
			if minute >= open {
				return true
			}
		}
	}

	prev := (local.Weekday() + 6) % 7
	if open, close, ok := b.window(prev); ok && close < open && minute < close {
		return true
	}
	return false
}

func (b BusinessHours) window(day time.Weekday) (open, close int, ok bool) {
	h, found := b.Days[strings.ToLower(day.String())]
	if !found || h.Closed {
		return 0, 0, false
	}
	open, err := parseClock(h.Open)
	if err != nil {
		return 0, 0, false
	}
	close, err = parseClock(h.Close)
	if err != nil {
		return 0, 0, false
	}
	return open, close, true
}

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("parse %q: out of range", s)
	}
	return h*60 + m, nil
}
