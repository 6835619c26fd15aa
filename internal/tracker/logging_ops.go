package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/checkin/internal/domain"
	"github.com/pbaille/checkin/internal/insights"
)

// DefaultCategory is preselected for detailed entries.
const DefaultCategory = "Study"

// DetailedInput is the full check-in form. Empty Date or Time mean now.
type DetailedInput struct {
	Date         string
	Time         string
	Task         string
	Category     string
	Duration     *int
	Energy       int
	Stress       int
	Productivity int
	Notes        string
}

// LogDetailed records a full check-in. A blank task, bad date or time, unknown
// category or out-of-range rating is an ErrValidation and nothing is saved.
func (t *Tracker) LogDetailed(ctx context.Context, in DetailedInput) (domain.Entry, error) {
	task := strings.TrimSpace(in.Task)
	if task == "" {
		return domain.Entry{}, fmt.Errorf("%w: task description is required", domain.ErrValidation)
	}

	now := t.now()
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = now.Format(domain.DateLayout)
	} else if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return domain.Entry{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", domain.ErrValidation, date)
	}

	clock := strings.TrimSpace(in.Time)
	if clock == "" {
		clock = now.Format(domain.TimeLayout)
	} else if _, err := time.Parse(domain.TimeLayout, clock); err != nil {
		return domain.Entry{}, fmt.Errorf("%w: time %q is not HH:MM", domain.ErrValidation, clock)
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}
	if !domain.IsCategory(category) {
		return domain.Entry{}, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, category)
	}

	id, err := newEntryID()
	if err != nil {
		return domain.Entry{}, err
	}

	return t.record(ctx, domain.Entry{
		ID:           id,
		Date:         date,
		Time:         clock,
		Timestamp:    now.UTC(),
		Task:         task,
		TaskType:     category,
		Duration:     in.Duration,
		Energy:       in.Energy,
		Stress:       in.Stress,
		Productivity: in.Productivity,
		Notes:        strings.TrimSpace(in.Notes),
		Kind:         domain.KindFull,
	})
}

// LogQuick records a one-tap energy check-in stamped now.
func (t *Tracker) LogQuick(ctx context.Context, energy int) (domain.Entry, error) {
	return t.logShort(ctx, domain.KindQuick, energy, domain.QuickTask)
}

// LogSimple records an energy level with an optional note that stands in for
// the task description.
func (t *Tracker) LogSimple(ctx context.Context, energy int, note string) (domain.Entry, error) {
	task := strings.TrimSpace(note)
	if task == "" {
		task = domain.QuickTask
	}
	return t.logShort(ctx, domain.KindSimple, energy, task)
}

func (t *Tracker) logShort(ctx context.Context, kind domain.Kind, energy int, task string) (domain.Entry, error) {
	id, err := newEntryID()
	if err != nil {
		return domain.Entry{}, err
	}

	now := t.now()
	return t.record(ctx, domain.Entry{
		ID:           id,
		Date:         now.Format(domain.DateLayout),
		Time:         now.Format(domain.TimeLayout),
		Timestamp:    now.UTC(),
		Task:         task,
		TaskType:     domain.CategoryCheckIn,
		Energy:       energy,
		Stress:       domain.NeutralRating,
		Productivity: domain.NeutralRating,
		Kind:         kind,
	})
}

// LogEndOfDay records the day's reflection at 23:59. Without an explicit
// energy it uses the rounded mean of today's entries, or 3 if there are none.
func (t *Tracker) LogEndOfDay(ctx context.Context, reflection string, energy *int) (domain.Entry, error) {
	if _, err := t.requireSession(); err != nil {
		return domain.Entry{}, err
	}

	now := t.now()
	today := now.Format(domain.DateLayout)

	level := insights.DayEnergyMean(t.entries, today)
	if energy != nil {
		level = *energy
	}

	id, err := newEntryID()
	if err != nil {
		return domain.Entry{}, err
	}

	return t.record(ctx, domain.Entry{
		ID:           id,
		Date:         today,
		Time:         domain.EndOfDayTime,
		Timestamp:    now.UTC(),
		Task:         domain.EndOfDayTask,
		TaskType:     domain.CategoryReflection,
		Energy:       level,
		Stress:       domain.NeutralRating,
		Productivity: domain.NeutralRating,
		Notes:        strings.TrimSpace(reflection),
		Kind:         domain.KindEndOfDay,
	})
}

// newEntryID returns a time-ordered unique id.
func newEntryID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate entry id: %w", err)
	}
	return "entry_" + id.String(), nil
}
