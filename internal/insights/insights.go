// Package insights derives views from an entry list: time-window filters,
// averages, chronological order and chart series. Every function is pure and
// leaves its input untouched.
package insights

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pbaille/checkin/internal/domain"
)

// View selects a time window over the entries.
type View string

const (
	ViewToday View = "today"
	ViewWeek  View = "week"
	ViewAll   View = "all"
)

// ParseView maps user input to a View. Anything unrecognized is today.
func ParseView(raw string) View {
	switch v := View(strings.ToLower(strings.TrimSpace(raw))); v {
	case ViewWeek, ViewAll:
		return v
	default:
		return ViewToday
	}
}

// FilterByView keeps the entries inside view as seen from now. Membership
// depends on the entry's Date only, compared as calendar dates in now's
// location. The week window starts seven days before today, inclusive.
func FilterByView(entries []domain.Entry, view View, now time.Time) []domain.Entry {
	today := now.Format(domain.DateLayout)

	var keep func(domain.Entry) bool
	switch view {
	case ViewAll:
		return slices.Clone(entries)
	case ViewWeek:
		cutoff := now.AddDate(0, 0, -7).Format(domain.DateLayout)
		keep = func(e domain.Entry) bool {
			if _, err := time.Parse(domain.DateLayout, e.Date); err != nil {
				return false
			}
			return e.Date >= cutoff
		}
	default:
		keep = func(e domain.Entry) bool { return e.Date == today }
	}

	out := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Insights summarizes a set of entries.
type Insights struct {
	Count           int
	AvgEnergy       decimal.Decimal
	AvgStress       decimal.Decimal
	AvgProductivity decimal.Decimal
	// HighStress counts entries with stress >= 4.
	HighStress int
	// LowEnergy counts entries with energy <= 2.
	LowEnergy int
}

// ComputeInsights returns nil for no entries. Averages are rounded half away
// from zero to one decimal place.
func ComputeInsights(entries []domain.Entry) *Insights {
	if len(entries) == 0 {
		return nil
	}

	in := &Insights{
		Count:           len(entries),
		AvgEnergy:       average(entries, func(e domain.Entry) int { return e.Energy }, 1),
		AvgStress:       average(entries, func(e domain.Entry) int { return e.Stress }, 1),
		AvgProductivity: average(entries, func(e domain.Entry) int { return e.Productivity }, 1),
	}
	for _, e := range entries {
		if e.Stress >= 4 {
			in.HighStress++
		}
		if e.Energy <= 2 {
			in.LowEnergy++
		}
	}
	return in
}

func average(entries []domain.Entry, pick func(domain.Entry) int, places int32) decimal.Decimal {
	var sum int64
	for _, e := range entries {
		sum += int64(pick(e))
	}
	return decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(entries)))).Round(places)
}

// DayEnergyMean is the rounded mean energy of the entries dated date, or the
// neutral rating when there are none.
func DayEnergyMean(entries []domain.Entry, date string) int {
	var day []domain.Entry
	for _, e := range entries {
		if e.Date == date {
			day = append(day, e)
		}
	}
	if len(day) == 0 {
		return domain.NeutralRating
	}
	return int(average(day, func(e domain.Entry) int { return e.Energy }, 0).IntPart())
}

// SortChronological returns a copy ordered by Date then Time. Entries with the
// same date and time keep their relative order.
func SortChronological(entries []domain.Entry) []domain.Entry {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b domain.Entry) int {
		return cmp.Or(strings.Compare(a.Date, b.Date), strings.Compare(a.Time, b.Time))
	})
	return sorted
}

// CategoryStat is the activity seen for one task type.
type CategoryStat struct {
	Category  string
	Count     int
	AvgEnergy decimal.Decimal
}

// CategoryBreakdown groups entries by TaskType, most frequent first and then
// by name.
func CategoryBreakdown(entries []domain.Entry) []CategoryStat {
	groups := make(map[string][]domain.Entry)
	for _, e := range entries {
		groups[e.TaskType] = append(groups[e.TaskType], e)
	}

	stats := make([]CategoryStat, 0, len(groups))
	for category, group := range groups {
		stats = append(stats, CategoryStat{
			Category:  category,
			Count:     len(group),
			AvgEnergy: average(group, func(e domain.Entry) int { return e.Energy }, 1),
		})
	}
	slices.SortFunc(stats, func(a, b CategoryStat) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), strings.Compare(a.Category, b.Category))
	})
	return stats
}
