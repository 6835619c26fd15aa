package insights

import "github.com/pbaille/checkin/internal/domain"

// Metric names one plotted rating.
type Metric string

const (
	MetricEnergy       Metric = "energy"
	MetricStress       Metric = "stress"
	MetricProductivity Metric = "productivity"
)

// tickTarget is roughly how many x-axis labels fit without crowding.
const tickTarget = 6

// Point is one plotted value. X runs from 0 to 1, spaced by index.
type Point struct {
	X     float64 `json:"x"`
	Value int     `json:"value"`
	Label string  `json:"label"`
}

// Series is the line for one metric.
type Series struct {
	Metric Metric  `json:"metric"`
	Points []Point `json:"points"`
}

// Tick is a labelled position on the x axis.
type Tick struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Label string  `json:"label"`
}

// Chart is everything a line renderer needs.
type Chart struct {
	Min    int      `json:"min"`
	Max    int      `json:"max"`
	Series []Series `json:"series"`
	Ticks  []Tick   `json:"ticks"`
}

// SeriesForChart lays sorted entries out evenly along the x axis, one series
// per metric on a fixed 0..5 scale. Time labels are kept for every
// ceil(n/6)-th entry and the last one.
func SeriesForChart(sorted []domain.Entry) Chart {
	chart := Chart{Min: 0, Max: domain.MaxRating}

	metrics := []struct {
		metric Metric
		pick   func(domain.Entry) int
	}{
		{MetricEnergy, func(e domain.Entry) int { return e.Energy }},
		{MetricStress, func(e domain.Entry) int { return e.Stress }},
		{MetricProductivity, func(e domain.Entry) int { return e.Productivity }},
	}

	n := len(sorted)
	denominator := float64(n - 1)
	if n < 2 {
		denominator = 1
	}
	x := func(i int) float64 { return float64(i) / denominator }

	for _, m := range metrics {
		s := Series{Metric: m.metric, Points: make([]Point, 0, n)}
		for i, e := range sorted {
			s.Points = append(s.Points, Point{X: x(i), Value: m.pick(e), Label: e.Time})
		}
		chart.Series = append(chart.Series, s)
	}

	chart.Ticks = []Tick{}
	if n == 0 {
		return chart
	}
	step := (n + tickTarget - 1) / tickTarget
	for i, e := range sorted {
		if i%step == 0 || i == n-1 {
			chart.Ticks = append(chart.Ticks, Tick{Index: i, X: x(i), Label: e.Time})
		}
	}
	return chart
}
