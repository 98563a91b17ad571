package orchestrator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"orb_trader/internal/config"
)

// minuteOfDay is an intraday wall-clock point in exchange-local minutes.
type minuteOfDay int

func parseClock(v string) (minuteOfDay, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q, want HH:MM", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in clock %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in clock %q", v)
	}
	return minuteOfDay(h*60 + m), nil
}

type noEntryWindow struct {
	start minuteOfDay
	end   minuteOfDay
}

// SessionClock answers all "what phase of the trading day is it" questions
// in the exchange's local timezone. It is immutable after construction.
type SessionClock struct {
	loc *time.Location

	marketOpen  minuteOfDay
	rangeEnd    minuteOfDay
	entryCutoff minuteOfDay
	forceExit   minuteOfDay

	noEntry  []noEntryWindow
	holidays map[string]struct{}
}

func NewSessionClock(cfg config.SessionConfig, loc *time.Location) (*SessionClock, error) {
	sc := &SessionClock{
		loc:      loc,
		holidays: make(map[string]struct{}, len(cfg.Holidays)),
	}

	var err error
	if sc.marketOpen, err = parseClock(cfg.MarketOpen); err != nil {
		return nil, fmt.Errorf("market_open: %w", err)
	}
	if sc.rangeEnd, err = parseClock(cfg.RangeEnd); err != nil {
		return nil, fmt.Errorf("range_end: %w", err)
	}
	if sc.entryCutoff, err = parseClock(cfg.EntryCutoff); err != nil {
		return nil, fmt.Errorf("entry_cutoff: %w", err)
	}
	if sc.forceExit, err = parseClock(cfg.ForceExit); err != nil {
		return nil, fmt.Errorf("force_exit: %w", err)
	}
	if sc.marketOpen >= sc.rangeEnd || sc.rangeEnd > sc.entryCutoff || sc.entryCutoff > sc.forceExit {
		return nil, fmt.Errorf("session times out of order: open %s, range end %s, cutoff %s, force exit %s",
			cfg.MarketOpen, cfg.RangeEnd, cfg.EntryCutoff, cfg.ForceExit)
	}

	for _, w := range cfg.NoEntryWindows {
		start, err := parseClock(w.Start)
		if err != nil {
			return nil, fmt.Errorf("no_entry_windows: %w", err)
		}
		end, err := parseClock(w.End)
		if err != nil {
			return nil, fmt.Errorf("no_entry_windows: %w", err)
		}
		sc.noEntry = append(sc.noEntry, noEntryWindow{start: start, end: end})
	}

	for _, h := range cfg.Holidays {
		if _, err := time.ParseInLocation("2006-01-02", h, loc); err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		sc.holidays[h] = struct{}{}
	}

	return sc, nil
}

func (sc *SessionClock) minuteOf(t time.Time) minuteOfDay {
	local := t.In(sc.loc)
	return minuteOfDay(local.Hour()*60 + local.Minute())
}

// TradeDate formats t as the exchange-local trading date.
func (sc *SessionClock) TradeDate(t time.Time) string {
	return t.In(sc.loc).Format("2006-01-02")
}

// IsTradingDay reports whether t falls on a session day at all.
func (sc *SessionClock) IsTradingDay(t time.Time) bool {
	local := t.In(sc.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := sc.holidays[sc.TradeDate(t)]
	return !holiday
}

// InSession reports whether t is between market open and force exit on a
// trading day.
func (sc *SessionClock) InSession(t time.Time) bool {
	if !sc.IsTradingDay(t) {
		return false
	}
	m := sc.minuteOf(t)
	return m >= sc.marketOpen && m < sc.forceExit
}

// RangeWindowOver reports whether the opening-range window has closed.
func (sc *SessionClock) RangeWindowOver(t time.Time) bool {
	return sc.minuteOf(t) >= sc.rangeEnd
}

// EntryAllowed reports whether new entries may be initiated at t: past the
// range window, before the cutoff, and outside every no-entry window.
func (sc *SessionClock) EntryAllowed(t time.Time) bool {
	if !sc.InSession(t) {
		return false
	}
	m := sc.minuteOf(t)
	if m < sc.rangeEnd || m >= sc.entryCutoff {
		return false
	}
	for _, w := range sc.noEntry {
		if m >= w.start && m < w.end {
			return false
		}
	}
	return true
}

// ForceExitDue reports whether the unconditional end-of-session flatten
// should run.
func (sc *SessionClock) ForceExitDue(t time.Time) bool {
	return sc.IsTradingDay(t) && sc.minuteOf(t) >= sc.forceExit
}

// NextOpen returns the next market-open instant strictly after t, skipping
// weekends and holidays.
func (sc *SessionClock) NextOpen(t time.Time) time.Time {
	local := t.In(sc.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, sc.loc)
	open := day.Add(time.Duration(sc.marketOpen) * time.Minute)
	if !local.Before(open) || !sc.IsTradingDay(open) {
		day = day.AddDate(0, 0, 1)
	}
	for !sc.IsTradingDay(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day.Add(time.Duration(sc.marketOpen) * time.Minute)
}
