// Package slicing plans the bounded monthly query windows the upstream API
// requires for intraday data. Planning is pure: given the same bounds and the
// same injected clock it always yields the same windows.
package slicing

import (
	"fmt"
	"time"
)

// Clock supplies the anchor "now" for window computation. Injectable so
// tests are deterministic.
type Clock func() time.Time

// Window identifies one of the 24 trailing one-month query windows, in the
// upstream's own "year{Y}month{M}" notation (Y in 1..2, M in 1..12).
// Windows are computed per request and never persisted.
type Window string

// UniverseSize is the number of trailing monthly windows the upstream serves.
const UniverseSize = 24

// DefaultPadding is the extra windows requested on each side of the selected
// range. The upstream's month-boundary reporting is inexact, so boundary days
// can land one window off; the padding is a tuned heuristic, not a documented
// contract, which is why it stays configurable.
const DefaultPadding = 1

// windowID renders the upstream identifier for the i-th window
// (i in 1..24, most recent first).
func windowID(i int) Window {
	return Window(fmt.Sprintf("year%dmonth%d", (i-1)/12+1, (i-1)%12+1))
}

// Planner computes the ordered slice windows covering a requested range.
type Planner struct {
	clock   Clock
	padding int
}

// NewPlanner builds a planner. A nil clock falls back to time.Now and a
// negative padding falls back to DefaultPadding.
func NewPlanner(clock Clock, padding int) *Planner {
	if clock == nil {
		clock = time.Now
	}
	if padding < 0 {
		padding = DefaultPadding
	}
	return &Planner{clock: clock, padding: padding}
}

// PlanSlices returns the ordered windows (most recent first) whose monthly
// range overlaps [start, end], widened by the configured padding on each
// side and clamped to the 24-window universe.
//
// Window i covers the calendar month ending i-1 months before now, with
// boundaries computed by calendar-month subtraction. Nil bounds default to
// start = now minus two years and end = now; with both nil the full universe
// is returned. A range that predates the universe entirely yields no
// windows.
func (p *Planner) PlanSlices(start, end *time.Time) []Window {
	if start == nil && end == nil {
		return p.universe()
	}

	now := p.clock()
	lo := now.AddDate(-2, 0, 0)
	hi := now
	if start != nil {
		lo = *start
	}
	if end != nil {
		hi = *end
	}

	first, last := 0, 0
	for i := 1; i <= UniverseSize; i++ {
		winStart := now.AddDate(0, -i, 0)
		winEnd := now.AddDate(0, -(i - 1), 0)
		if winEnd.Before(lo) || winStart.After(hi) {
			continue
		}
		if first == 0 {
			first = i
		}
		last = i
	}
	if first == 0 {
		return nil
	}

	first -= p.padding
	last += p.padding
	if first < 1 {
		first = 1
	}
	if last > UniverseSize {
		last = UniverseSize
	}

	out := make([]Window, 0, last-first+1)
	for i := first; i <= last; i++ {
		out = append(out, windowID(i))
	}
	return out
}

func (p *Planner) universe() []Window {
	out := make([]Window, 0, UniverseSize)
	for i := 1; i <= UniverseSize; i++ {
		out = append(out, windowID(i))
	}
	return out
}
