package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/checkin/internal/domain"
	"github.com/pbaille/checkin/internal/insights"
)

func sample() []domain.Entry {
	return []domain.Entry{
		{ID: "entry_0190a1b2-0000-7000-8000-00000000abcd", Date: "2026-03-14", Time: "09:00", Task: "Lecture | notes", TaskType: "Study", Energy: 2, Stress: 4, Productivity: 3},
		{ID: "entry_0190a1b2-0000-7000-8000-00000000ef01", Date: "2026-03-14", Time: "13:00", Task: "Walk", TaskType: "Exercise", Energy: 5, Stress: 1, Productivity: 4, Notes: "sunny"},
	}
}

func build(entries []domain.Entry) Report {
	return Report{
		Name:       "Alice",
		View:       insights.ViewToday,
		Generated:  time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
		Entries:    entries,
		Insights:   insights.ComputeInsights(entries),
		Categories: insights.CategoryBreakdown(entries),
		Chart:      insights.SeriesForChart(insights.SortChronological(entries)),
	}
}

func TestMarkdown_Sections(t *testing.T) {
	md := Markdown(build(sample()))

	assert.Contains(t, md, "# Today, Alice")
	assert.Contains(t, md, "- **Avg energy:** 3.5")
	assert.Contains(t, md, "- **High-stress moments:** 1")
	assert.Contains(t, md, "- **Low-energy moments:** 1")
	assert.Contains(t, md, "## By category")
	assert.Contains(t, md, "| Exercise | 1 | 5.0 |")
	assert.Contains(t, md, `Lecture \| notes`, "pipes must be escaped inside table cells")
	assert.Contains(t, md, "2 Low")
	assert.Contains(t, md, "4 High")
	assert.Contains(t, md, "0000abcd")
}

func TestMarkdown_Empty(t *testing.T) {
	md := Markdown(build(nil))
	assert.Contains(t, md, "No check-ins in this period yet.")
	assert.NotContains(t, md, "## Insights")
}

func TestSparkline(t *testing.T) {
	s := insights.Series{Points: []insights.Point{{Value: 0}, {Value: 1}, {Value: 5}, {Value: 9}}}
	assert.Equal(t, "▁▂██", Sparkline(s, 5))
}

func TestChartMarkdown(t *testing.T) {
	chart := insights.SeriesForChart(sample())
	md := ChartMarkdown(chart)

	lines := strings.Split(strings.TrimSpace(md), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[1], "energy"))
	assert.Contains(t, lines[4], "09:00 13:00")

	assert.Equal(t, "Nothing to plot.\n", ChartMarkdown(insights.SeriesForChart(nil)))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0000abcd", ShortID("entry_0190a1b2-0000-7000-8000-00000000abcd"))
	assert.Equal(t, "abc", ShortID("entry_abc"))
}

func TestRender_PlainStyle(t *testing.T) {
	out, err := Render(Markdown(build(sample())), "notty", 100)
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "Walk")
}
