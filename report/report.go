// Package report implements the ICARUS data transformation engine: it
// reshapes sparse, per-observation metric rows from the warehouse into the
// dense pivot tables and per-plan chart series the dashboard renders.
//
// All transforms are pure functions over in-memory data. They allocate only
// local structures, take no locks, and are safe to call concurrently.
package report

import "time"

// Observation is one warehouse result row: the values of one or more metrics
// for a (app, plan) pair on a reporting date. A nil entry in Values means the
// metric was not reported for that row.
type Observation struct {
	App    string
	Plan   string
	Date   time.Time
	Values map[string]*float64
}

// SeriesPoint is one chart query result row: a single metric value for a plan
// on a reporting date. Value is nil when the warehouse has no figure.
type SeriesPoint struct {
	Plan  string
	Date  time.Time
	Value *float64
}

// Table is a dense pivot of observations: one column per distinct reporting
// date (most recent first) and one row per (app, plan, metric) combination.
type Table struct {
	// Columns holds the date column labels in display order.
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Row is one pivot table row. Cells is aligned with Table.Columns; a nil cell
// means no value was observed for that date.
type Row struct {
	App    string     `json:"app"`
	Plan   string     `json:"plan"`
	Metric string     `json:"metric"`
	Cells  []*float64 `json:"cells"`
}

// Chart is a render-ready line chart for one metric: one series per plan plus
// the presentation metadata the renderer needs (colors, hover templates, axis
// formats). The underlying values are never mutated by formatting.
type Chart struct {
	Title  string   `json:"title"`
	Series []Series `json:"series"`
	// Plans lists the distinct plan names in series order.
	Plans []string `json:"plans"`
	// NoData is set when the input had no rows; renderers show a placeholder.
	NoData  bool   `json:"no_data,omitempty"`
	Message string `json:"message,omitempty"`
	// XMin and XMax bound the x axis. Points outside the bounds are still
	// part of the series; the range only clamps the axis.
	XMin        time.Time `json:"x_min,omitzero"`
	XMax        time.Time `json:"x_max,omitzero"`
	YTickPrefix string    `json:"y_tick_prefix,omitempty"`
	YTickFormat string    `json:"y_tick_format,omitempty"`
}

// Series is the time-ordered line for one plan.
type Series struct {
	Plan          string  `json:"plan"`
	Color         string  `json:"color"`
	Points        []Point `json:"points"`
	HoverTemplate string  `json:"hover_template"`
}

// Point is one chart point. Missing values are already substituted with 0 by
// the series builder.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ColorAssigner maps an ordered set of plan names to display colors. The
// assignment must be a pure function of the name set so a plan keeps its
// color across charts and reloads.
type ColorAssigner interface {
	Assign(plans []string) map[string]string
}
