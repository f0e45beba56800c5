package report

import (
	"strings"
	"testing"

	"github.com/variant-group/icarus/colors"
)

func TestBuildSeriesEmptyInput(t *testing.T) {
	chart := BuildSeries(nil, "Revenue", "dollar", day("2024-01-01"), day("2024-03-01"), colors.Map{})
	if chart == nil {
		t.Fatal("BuildSeries(nil) returned nil, want a renderable no-data chart")
	}
	if !chart.NoData {
		t.Fatal("NoData = false, want true")
	}
	if len(chart.Series) != 0 || len(chart.Plans) != 0 {
		t.Fatalf("got %d series, %d plans, want 0, 0", len(chart.Series), len(chart.Plans))
	}
	if chart.Message == "" {
		t.Fatal("empty chart has no placeholder message")
	}
}

func TestBuildSeriesNullBecomesZero(t *testing.T) {
	points := []SeriesPoint{
		{Plan: "P1", Date: day("2024-02-01"), Value: nil},
		{Plan: "P1", Date: day("2024-01-01"), Value: fptr(5)},
	}
	chart := BuildSeries(points, "Revenue", "dollar", day("2024-01-01"), day("2024-02-01"), colors.Map{})

	if len(chart.Series) != 1 {
		t.Fatalf("got %d series, want 1", len(chart.Series))
	}
	pts := chart.Series[0].Points
	if len(pts) != 2 {
		t.Fatalf("got %d points, want 2", len(pts))
	}
	// Date ascending, nil substituted with 0.
	if pts[0].Value != 5 || pts[1].Value != 0 {
		t.Fatalf("values = [%v, %v], want [5, 0]", pts[0].Value, pts[1].Value)
	}
	if !pts[0].Date.Before(pts[1].Date) {
		t.Fatal("points not sorted ascending by date")
	}
}

func TestBuildSeriesPlansSortedAndColored(t *testing.T) {
	points := []SeriesPoint{
		{Plan: "Zeta", Date: day("2024-01-01"), Value: fptr(1)},
		{Plan: "Alpha", Date: day("2024-01-01"), Value: fptr(2)},
	}
	chart := BuildSeries(points, "Revenue", "dollar", day("2024-01-01"), day("2024-01-31"), colors.Map{})

	if len(chart.Plans) != 2 || chart.Plans[0] != "Alpha" || chart.Plans[1] != "Zeta" {
		t.Fatalf("Plans = %v, want [Alpha Zeta]", chart.Plans)
	}

	// Colors are a function of the plan set, not of input order.
	reversed := []SeriesPoint{
		{Plan: "Alpha", Date: day("2024-01-01"), Value: fptr(2)},
		{Plan: "Zeta", Date: day("2024-01-01"), Value: fptr(1)},
	}
	chart2 := BuildSeries(reversed, "Revenue", "dollar", day("2024-01-01"), day("2024-01-31"), colors.Map{})
	for i := range chart.Series {
		if chart.Series[i].Color != chart2.Series[i].Color {
			t.Fatalf("series %d color changed with input order: %q vs %q",
				i, chart.Series[i].Color, chart2.Series[i].Color)
		}
		if chart.Series[i].Color == "" {
			t.Fatalf("series %d has no color", i)
		}
	}
}

func TestBuildSeriesNoGapFilling(t *testing.T) {
	// Two points a year apart stay two points; no synthetic dates appear.
	points := []SeriesPoint{
		{Plan: "P1", Date: day("2023-01-01"), Value: fptr(1)},
		{Plan: "P1", Date: day("2024-01-01"), Value: fptr(2)},
	}
	chart := BuildSeries(points, "Revenue", "dollar", day("2023-01-01"), day("2024-01-01"), colors.Map{})
	if got := len(chart.Series[0].Points); got != 2 {
		t.Fatalf("got %d points, want 2 (gaps must not be bridged)", got)
	}
}

func TestBuildSeriesAxisClampedToRange(t *testing.T) {
	// Data lies outside the requested range; the range still wins the axis
	// and the point is still plotted.
	points := []SeriesPoint{
		{Plan: "P1", Date: day("2024-06-01"), Value: fptr(1)},
	}
	from, to := day("2024-01-01"), day("2024-03-01")
	chart := BuildSeries(points, "Revenue", "dollar", from, to, colors.Map{})

	if !chart.XMin.Equal(from) || !chart.XMax.Equal(to) {
		t.Fatalf("axis range = [%v, %v], want [%v, %v]", chart.XMin, chart.XMax, from, to)
	}
	if len(chart.Series[0].Points) != 1 {
		t.Fatal("point outside range was filtered, want it kept")
	}
}

func TestBuildSeriesFormatMetadata(t *testing.T) {
	points := []SeriesPoint{{Plan: "P1", Date: day("2024-01-01"), Value: fptr(1)}}

	dollar := BuildSeries(points, "Revenue", "dollar", day("2024-01-01"), day("2024-01-31"), colors.Map{})
	if dollar.YTickPrefix != "$" || dollar.YTickFormat != ",.2f" {
		t.Fatalf("dollar axis = (%q, %q)", dollar.YTickPrefix, dollar.YTickFormat)
	}
	if !strings.Contains(dollar.Series[0].HoverTemplate, "$%{y:,.2f}") {
		t.Fatalf("dollar hover template = %q", dollar.Series[0].HoverTemplate)
	}

	percent := BuildSeries(points, "Churn", "percent", day("2024-01-01"), day("2024-01-31"), colors.Map{})
	if percent.YTickFormat != ".1%" {
		t.Fatalf("percent axis format = %q", percent.YTickFormat)
	}

	number := BuildSeries(points, "Subs", "number", day("2024-01-01"), day("2024-01-31"), colors.Map{})
	if number.YTickFormat != ",d" || number.YTickPrefix != "" {
		t.Fatalf("number axis = (%q, %q)", number.YTickPrefix, number.YTickFormat)
	}
}
