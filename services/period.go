package services

import (
	"fmt"
	"strings"
	"time"

	"listen-history/models"
)

// PeriodKind names a period selector.
type PeriodKind string

const (
	AllTime      PeriodKind = "all"
	CurrentMonth PeriodKind = "month"
	CurrentYear  PeriodKind = "year"
	CustomRange  PeriodKind = "custom"
)

// PeriodSelector picks a subset of the dataset. Start and End are only read
// for CustomRange and are compared as calendar dates, both inclusive.
type PeriodSelector struct {
	Kind  PeriodKind
	Start *time.Time
	End   *time.Time
}

// String renders the selector for logs and report titles.
func (p PeriodSelector) String() string {
	switch p.Kind {
	case CurrentMonth:
		return "this month"
	case CurrentYear:
		return "this year"
	case CustomRange:
		if p.Start == nil || p.End == nil {
			return "all time"
		}
		return p.Start.Format("2006-01-02") + " to " + p.End.Format("2006-01-02")
	default:
		return "all time"
	}
}

// ParsePeriod builds a selector from user input. Dates use YYYY-MM-DD and
// may be empty; an empty bound makes a custom range behave as all time.
func ParsePeriod(kind, start, end string) (PeriodSelector, error) {
	sel := PeriodSelector{Kind: PeriodKind(strings.ToLower(strings.TrimSpace(kind)))}
	switch sel.Kind {
	case "", "all", "all-time":
		sel.Kind = AllTime
	case CurrentMonth, CurrentYear:
	case CustomRange:
		var err error
		if sel.Start, err = parseDay(start); err != nil {
			return sel, fmt.Errorf("period: start date: %w", err)
		}
		if sel.End, err = parseDay(end); err != nil {
			return sel, fmt.Errorf("period: end date: %w", err)
		}
	default:
		return sel, fmt.Errorf("period: unknown period %q (want all, month, year or custom)", kind)
	}
	return sel, nil
}

func parseDay(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FilterByPeriod returns the listens matching sel, in their original order.
// now is the reference for CurrentMonth and CurrentYear. A custom range with
// a missing bound returns the full dataset instead of failing.
func FilterByPeriod(ds models.Dataset, sel PeriodSelector, now time.Time) models.Dataset {
	var keep func(l *models.Listen) bool

	switch sel.Kind {
	case CurrentMonth:
		keep = func(l *models.Listen) bool {
			return l.Date.Year() == now.Year() && l.Date.Month() == now.Month()
		}
	case CurrentYear:
		keep = func(l *models.Listen) bool {
			return l.Date.Year() == now.Year()
		}
	case CustomRange:
		if sel.Start == nil || sel.End == nil {
			return ds
		}
		from := dayKey(*sel.Start)
		to := dayKey(*sel.End)
		keep = func(l *models.Listen) bool {
			d := dayKey(l.Date)
			return d >= from && d <= to
		}
	default:
		return ds
	}

	out := make(models.Dataset, 0)
	for _, l := range ds {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// dayKey orders calendar dates without regard to time zone or time of day.
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
