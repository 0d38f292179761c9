package catalog

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/shopassist/internal/domain"
)

// Window is an opening interval within a day, "HH:MM" in the shop timezone.
// Close may be earlier than Open for windows that run past midnight.
type Window struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Schedule holds weekly opening hours and holiday closures.
// Hours is keyed by lowercase English weekday name.
// A schedule without any hours is treated as always open.
type Schedule struct {
	Timezone string              `json:"timezone,omitempty"`
	Hours    map[string][]Window `json:"hours,omitempty"`
	Holidays []string            `json:"holidays,omitempty"`
}

// Status is the open/closed state of a shop at an instant.
type Status struct {
	Open    bool
	Reason  domain.ClosedReason
	OpensAt string
}

// StatusAt evaluates whether the shop accepts orders at now.
func (s *Shop) StatusAt(now time.Time) Status {
	if !s.AcceptingOrders {
		return Status{Reason: domain.ClosedManually}
	}
	return s.Schedule.StatusAt(now)
}

// StatusAt evaluates the schedule alone.
func (sc Schedule) StatusAt(now time.Time) Status {
	local := now
	if sc.Timezone != "" {
		if loc, err := time.LoadLocation(sc.Timezone); err == nil {
			local = now.In(loc)
		}
	}
	today := local.Format(time.DateOnly)
	for _, h := range sc.Holidays {
		if h == today {
			return Status{Reason: domain.ClosedHoliday}
		}
	}
	if len(sc.Hours) == 0 {
		return Status{Open: true}
	}

	minute := local.Hour()*60 + local.Minute()
	if sc.openAt(local.Weekday(), minute) {
		return Status{Open: true}
	}
	// overnight window from yesterday
	prev := (local.Weekday() + 6) % 7
	for _, w := range sc.Hours[dayKey(prev)] {
		o, c, ok := w.bounds()
		if ok && c < o && minute < c {
			return Status{Open: true}
		}
	}
	return Status{Reason: domain.ClosedOutsideHours, OpensAt: sc.nextOpening(local.Weekday(), minute)}
}

func (sc Schedule) openAt(day time.Weekday, minute int) bool {
	for _, w := range sc.Hours[dayKey(day)] {
		o, c, ok := w.bounds()
		if !ok {
			continue
		}
		if c > o && minute >= o && minute < c {
			return true
		}
		if c <= o && minute >= o {
			return true
		}
	}
	return false
}

func (sc Schedule) nextOpening(day time.Weekday, minute int) string {
	for offset := 0; offset <= 7; offset++ {
		d := (day + time.Weekday(offset)) % 7
		best := -1
		for _, w := range sc.Hours[dayKey(d)] {
			o, _, ok := w.bounds()
			if !ok || (offset == 0 && o <= minute) {
				continue
			}
			if best < 0 || o < best {
				best = o
			}
		}
		if best < 0 {
			continue
		}
		hhmm := fmt.Sprintf("%02d:%02d", best/60, best%60)
		if offset == 0 {
			return hhmm
		}
		return fmt.Sprintf("%s %s", d.String(), hhmm)
	}
	return ""
}

func (w Window) bounds() (open, closing int, ok bool) {
	o, err := parseClock(w.Open)
	if err != nil {
		return 0, 0, false
	}
	c, err := parseClock(w.Close)
	if err != nil {
		return 0, 0, false
	}
	return o, c, true
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func dayKey(d time.Weekday) string {
	return [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}[d]
}
