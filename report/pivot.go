package report

import (
	"sort"
	"time"
)

// dateColumnLayout matches the dashboard's MM/DD/YYYY column headers.
const dateColumnLayout = "01/02/2006"

type planKey struct {
	app  string
	plan string
}

type cellKey struct {
	app  string
	plan string
	date string
}

// Pivot reshapes observations into a dense display table: one column per
// distinct reporting date sorted most recent first, and one row per
// (app, plan) pair and selected metric. Row blocks are ordered by (app, plan)
// ascending; within a block, rows follow the caller's metric order.
//
// A nil result means there is nothing to render, which callers present
// differently from a table with zero rows. Missing values degrade to nil
// cells; a metric absent from the input still yields a full row of nil cells.
func Pivot(obs []Observation, metrics []string, f *Formatter, crystalBall bool) *Table {
	if len(obs) == 0 {
		return nil
	}

	// Distinct dates, descending. Keyed by day so differing wall clocks or
	// locations on the same date collapse into one column.
	seenDates := make(map[string]time.Time)
	for _, o := range obs {
		k := o.Date.Format(time.DateOnly)
		if _, ok := seenDates[k]; !ok {
			seenDates[k] = o.Date
		}
	}
	dates := make([]time.Time, 0, len(seenDates))
	for _, d := range seenDates {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	columns := make([]string, len(dates))
	for i, d := range dates {
		columns[i] = d.Format(dateColumnLayout)
	}

	// Distinct (app, plan) pairs in first-seen order, then sorted.
	seenPlans := make(map[planKey]struct{})
	plans := make([]planKey, 0)
	for _, o := range obs {
		k := planKey{app: o.App, plan: o.Plan}
		if _, ok := seenPlans[k]; ok {
			continue
		}
		seenPlans[k] = struct{}{}
		plans = append(plans, k)
	}
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].app != plans[j].app {
			return plans[i].app < plans[j].app
		}
		return plans[i].plan < plans[j].plan
	})

	// Value lookup, first occurrence wins on duplicate keys.
	lookup := make(map[cellKey]map[string]*float64, len(obs))
	for _, o := range obs {
		k := cellKey{app: o.App, plan: o.Plan, date: o.Date.Format(time.DateOnly)}
		if _, ok := lookup[k]; ok {
			continue
		}
		values := make(map[string]*float64, len(metrics))
		for _, m := range metrics {
			values[m] = o.Values[m]
		}
		lookup[k] = values
	}

	rows := make([]Row, 0, len(plans)*len(metrics))
	for _, p := range plans {
		for _, m := range metrics {
			cells := make([]*float64, len(dates))
			for i, d := range dates {
				k := cellKey{app: p.app, plan: p.plan, date: d.Format(time.DateOnly)}
				cells[i] = f.FormatValue(lookup[k][m], m, crystalBall)
			}
			rows = append(rows, Row{
				App:    p.app,
				Plan:   p.plan,
				Metric: f.DisplayLabel(m),
				Cells:  cells,
			})
		}
	}

	return &Table{Columns: columns, Rows: rows}
}
