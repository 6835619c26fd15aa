// Package report turns entries and their derived views into markdown, and
// renders that markdown for the terminal with glamour.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/pbaille/checkin/internal/domain"
	"github.com/pbaille/checkin/internal/insights"
)

// Report is one view's worth of data.
type Report struct {
	Name       string
	View       insights.View
	Generated  time.Time
	Entries    []domain.Entry
	Insights   *insights.Insights
	Categories []insights.CategoryStat
	Chart      insights.Chart
}

var viewTitles = map[insights.View]string{
	insights.ViewToday: "Today",
	insights.ViewWeek:  "Last 7 days",
	insights.ViewAll:   "All time",
}

// Markdown lays the report out as a markdown document.
func Markdown(r Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s, %s\n\n", viewTitles[r.View], r.Name)
	fmt.Fprintf(&sb, "_Generated %s_\n\n", r.Generated.Format("2006-01-02 15:04"))

	if r.Insights == nil {
		sb.WriteString("No check-ins in this period yet.\n")
		return sb.String()
	}

	sb.WriteString("## Insights\n\n")
	sb.WriteString(InsightsMarkdown(r.Insights))
	sb.WriteString("\n## Trend\n\n")
	sb.WriteString(ChartMarkdown(r.Chart))

	if len(r.Categories) > 0 {
		sb.WriteString("\n## By category\n\n")
		sb.WriteString("| Category | Check-ins | Avg energy |\n|---|---:|---:|\n")
		for _, c := range r.Categories {
			fmt.Fprintf(&sb, "| %s | %d | %s |\n", cell(c.Category), c.Count, c.AvgEnergy.StringFixed(1))
		}
	}

	sb.WriteString("\n## Entries\n\n")
	sb.WriteString(EntriesMarkdown(r.Entries))
	return sb.String()
}

// InsightsMarkdown is the averages and counters as a bullet list.
func InsightsMarkdown(in *insights.Insights) string {
	if in == nil {
		return "No check-ins in this period yet.\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "- **Check-ins:** %d\n", in.Count)
	fmt.Fprintf(&sb, "- **Avg energy:** %s\n", in.AvgEnergy.StringFixed(1))
	fmt.Fprintf(&sb, "- **Avg stress:** %s\n", in.AvgStress.StringFixed(1))
	fmt.Fprintf(&sb, "- **Avg productivity:** %s\n", in.AvgProductivity.StringFixed(1))
	fmt.Fprintf(&sb, "- **High-stress moments:** %d\n", in.HighStress)
	fmt.Fprintf(&sb, "- **Low-energy moments:** %d\n", in.LowEnergy)
	return sb.String()
}

// EntriesMarkdown is a table of entries in the order given.
func EntriesMarkdown(entries []domain.Entry) string {
	if len(entries) == 0 {
		return "No check-ins in this period yet.\n"
	}

	var sb strings.Builder
	sb.WriteString("| ID | Date | Time | Task | Category | Energy | Stress | Prod | Notes |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %d %s | %d %s | %d %s | %s |\n",
			ShortID(e.ID), e.Date, e.Time, cell(e.Task), cell(e.TaskType),
			e.Energy, domain.EnergyLabel(e.Energy),
			e.Stress, domain.StressLabel(e.Stress),
			e.Productivity, domain.ProductivityLabel(e.Productivity),
			cell(e.Notes),
		)
	}
	return sb.String()
}

// ChartMarkdown shows each series as a sparkline followed by its tick labels.
func ChartMarkdown(c insights.Chart) string {
	if len(c.Ticks) == 0 {
		return "Nothing to plot.\n"
	}

	var sb strings.Builder
	sb.WriteString("```\n")
	for _, s := range c.Series {
		fmt.Fprintf(&sb, "%-12s %s\n", s.Metric, Sparkline(s, c.Max))
	}
	labels := make([]string, 0, len(c.Ticks))
	for _, t := range c.Ticks {
		labels = append(labels, t.Label)
	}
	fmt.Fprintf(&sb, "%-12s %s\n", "time", strings.Join(labels, " "))
	sb.WriteString("```\n")
	return sb.String()
}

var bars = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws a series on a 0..scale axis, one rune per point.
func Sparkline(s insights.Series, scale int) string {
	if scale <= 0 {
		scale = domain.MaxRating
	}
	out := make([]rune, 0, len(s.Points))
	for _, p := range s.Points {
		v := max(0, min(p.Value, scale))
		out = append(out, bars[v*(len(bars)-1)/scale])
	}
	return string(out)
}

// ShortID trims the common prefix and keeps enough of the id to be typed.
func ShortID(id string) string {
	id = strings.TrimPrefix(id, "entry_")
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// Render formats markdown for a terminal. An empty style picks one from the
// terminal's background.
func Render(markdown, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
