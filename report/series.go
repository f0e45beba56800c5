package report

import (
	"fmt"
	"sort"
	"time"
)

// noDataMessage is what renderers show in place of an empty chart.
const noDataMessage = "No data available for selected filters"

// BuildSeries converts chart query rows into one time-ordered line series per
// plan. Plans are sorted ascending and colored by the assigner, so a plan
// keeps its color regardless of which charts it appears in. Missing values
// plot as 0; missing dates are simply absent, never interpolated.
//
// The format kind ("dollar", "percent", or "number") only selects hover and
// axis presentation metadata; series values are left untouched. The x axis is
// clamped to [from, to] even when the data spans a different range.
func BuildSeries(points []SeriesPoint, display, format string, from, to time.Time, cm ColorAssigner) *Chart {
	if len(points) == 0 {
		return &Chart{
			Title:   display,
			Series:  []Series{},
			Plans:   []string{},
			NoData:  true,
			Message: noDataMessage,
		}
	}

	seen := make(map[string]struct{})
	plans := make([]string, 0)
	for _, p := range points {
		if _, ok := seen[p.Plan]; ok {
			continue
		}
		seen[p.Plan] = struct{}{}
		plans = append(plans, p.Plan)
	}
	sort.Strings(plans)
	colorMap := cm.Assign(plans)

	byPlan := make(map[string][]Point, len(plans))
	for _, p := range points {
		value := 0.0
		if p.Value != nil {
			value = *p.Value
		}
		byPlan[p.Plan] = append(byPlan[p.Plan], Point{Date: p.Date, Value: value})
	}

	yPrefix, yFormat := axisFormat(format)
	series := make([]Series, 0, len(plans))
	for _, plan := range plans {
		pts := byPlan[plan]
		sort.Slice(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
		series = append(series, Series{
			Plan:          plan,
			Color:         colorMap[plan],
			Points:        pts,
			HoverTemplate: hoverTemplate(plan, format),
		})
	}

	return &Chart{
		Title:       display,
		Series:      series,
		Plans:       plans,
		XMin:        from,
		XMax:        to,
		YTickPrefix: yPrefix,
		YTickFormat: yFormat,
	}
}

// hoverTemplate builds the plotly hover string for one plan line.
func hoverTemplate(plan, format string) string {
	switch format {
	case "dollar":
		return fmt.Sprintf("<b>%s</b><br>Date: %%{x|%%B %%d, %%Y}<br>Value: $%%{y:,.2f}<extra></extra>", plan)
	case "percent":
		return fmt.Sprintf("<b>%s</b><br>Date: %%{x|%%B %%d, %%Y}<br>Value: %%{y:.2%%}<extra></extra>", plan)
	default:
		return fmt.Sprintf("<b>%s</b><br>Date: %%{x|%%B %%d, %%Y}<br>Value: %%{y:,.0f}<extra></extra>", plan)
	}
}

func axisFormat(format string) (prefix, tickFormat string) {
	switch format {
	case "dollar":
		return "$", ",.2f"
	case "percent":
		return "", ".1%"
	default:
		return "", ",d"
	}
}
