package warehouse

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mart.sqlite")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func fptr(v float64) *float64 { return &v }

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedFacts(t *testing.T, s *Store) {
	t.Helper()

	facts := []Fact{
		{App: "Alpha", Plan: "Basic", Date: day("2024-01-01"), BC: "All", Cohort: "All", Scenario: ScenarioRegular, Status: "Active", Metric: "Revenue", Value: fptr(100.5)},
		{App: "Alpha", Plan: "Basic", Date: day("2024-01-01"), BC: "All", Cohort: "All", Scenario: ScenarioRegular, Status: "Active", Metric: "Rebills", Value: fptr(12)},
		{App: "Alpha", Plan: "Basic", Date: day("2024-02-01"), BC: "All", Cohort: "All", Scenario: ScenarioRegular, Status: "Active", Metric: "Revenue", Value: nil},
		{App: "Alpha", Plan: "Pro", Date: day("2024-01-01"), BC: "All", Cohort: "All", Scenario: ScenarioRegular, Status: "Active", Metric: "Revenue", Value: fptr(250)},
		{App: "Beta", Plan: "Plus", Date: day("2024-01-01"), BC: "All", Cohort: "All", Scenario: ScenarioCrystalBall, Status: "Active", Metric: "Revenue", Value: fptr(75)},
		{App: "Beta", Plan: "Plus", Date: day("2024-01-01"), BC: "All", Cohort: "All", Scenario: ScenarioRegular, Status: "Retired", Metric: "Revenue", Value: fptr(5)},
	}
	if err := s.Seed(context.Background(), facts); err != nil {
		t.Fatalf("Seed: %v", err)
	}
}

func TestDateBoundsEmpty(t *testing.T) {
	s := newTestStore(t)
	_, _, ok, err := s.DateBounds(context.Background())
	if err != nil {
		t.Fatalf("DateBounds: %v", err)
	}
	if ok {
		t.Fatal("DateBounds on empty mart reported ok")
	}
}

func TestDateBounds(t *testing.T) {
	s := newTestStore(t)
	seedFacts(t, s)

	min, max, ok, err := s.DateBounds(context.Background())
	if err != nil || !ok {
		t.Fatalf("DateBounds: ok=%v err=%v", ok, err)
	}
	if !min.Equal(day("2024-01-01")) || !max.Equal(day("2024-02-01")) {
		t.Fatalf("bounds = [%v, %v]", min, max)
	}
}

func TestPlanGroups(t *testing.T) {
	s := newTestStore(t)
	seedFacts(t, s)

	groups, err := s.PlanGroups(context.Background(), "Active")
	if err != nil {
		t.Fatalf("PlanGroups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %v, want Alpha and Beta", groups)
	}
	alpha := groups["Alpha"]
	if len(alpha) != 2 || alpha[0] != "Basic" || alpha[1] != "Pro" {
		t.Fatalf("Alpha plans = %v", alpha)
	}
	// Retired plans do not leak into Active.
	if len(groups["Beta"]) != 1 || groups["Beta"][0] != "Plus" {
		t.Fatalf("Beta plans = %v", groups["Beta"])
	}
}

func TestPivotData(t *testing.T) {
	s := newTestStore(t)
	seedFacts(t, s)

	q := Query{
		From: day("2024-01-01"), To: day("2024-03-01"),
		BC: "All", Cohort: "All",
		Plans:    []string{"Basic", "Pro"},
		Metrics:  []string{"Revenue", "Rebills"},
		Scenario: ScenarioRegular,
		Status:   "Active",
	}
	obs, err := s.PivotData(context.Background(), q)
	if err != nil {
		t.Fatalf("PivotData: %v", err)
	}

	// One observation per (app, plan, date): Basic x2 dates, Pro x1.
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3: %+v", len(obs), obs)
	}

	first := obs[0]
	if first.App != "Alpha" || first.Plan != "Basic" || !first.Date.Equal(day("2024-01-01")) {
		t.Fatalf("first observation = %+v", first)
	}
	if v := first.Values["Revenue"]; v == nil || *v != 100.5 {
		t.Fatalf("Revenue = %v, want 100.5", v)
	}
	if v := first.Values["Rebills"]; v == nil || *v != 12 {
		t.Fatalf("Rebills = %v, want 12", v)
	}

	// NULL mart value surfaces as a nil metric value.
	second := obs[1]
	if !second.Date.Equal(day("2024-02-01")) {
		t.Fatalf("second observation date = %v", second.Date)
	}
	if v := second.Values["Revenue"]; v != nil {
		t.Fatalf("NULL value scanned as %v, want nil", *v)
	}

	// Crystal-ball rows stay out of a Regular query.
	for _, o := range obs {
		if o.App == "Beta" {
			t.Fatalf("unexpected Beta observation: %+v", o)
		}
	}
}

func TestPivotDataEmptySelections(t *testing.T) {
	s := newTestStore(t)
	seedFacts(t, s)

	q := Query{From: day("2024-01-01"), To: day("2024-03-01"), BC: "All", Cohort: "All", Scenario: ScenarioRegular, Status: "Active"}
	obs, err := s.PivotData(context.Background(), q)
	if err != nil {
		t.Fatalf("PivotData: %v", err)
	}
	if obs != nil {
		t.Fatalf("PivotData with no plans/metrics = %+v, want nil", obs)
	}
}

func TestChartData(t *testing.T) {
	s := newTestStore(t)
	seedFacts(t, s)

	q := Query{
		From: day("2024-01-01"), To: day("2024-03-01"),
		BC: "All", Cohort: "All",
		Plans:    []string{"Basic"},
		Scenario: ScenarioRegular,
		Status:   "Active",
	}
	points, err := s.ChartData(context.Background(), q, "Revenue")
	if err != nil {
		t.Fatalf("ChartData: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Value == nil || *points[0].Value != 100.5 {
		t.Fatalf("point 0 = %+v", points[0])
	}
	if points[1].Value != nil {
		t.Fatalf("point 1 value = %v, want nil for NULL", *points[1].Value)
	}
}

func TestRefreshLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	info, err := s.LastRefresh(ctx)
	if err != nil {
		t.Fatalf("LastRefresh: %v", err)
	}
	if len(info.LastBySource) != 0 {
		t.Fatalf("fresh mart has refresh entries: %+v", info)
	}

	early := time.Date(2026, 8, 31, 5, 0, 0, 0, time.UTC)
	late := early.Add(24 * time.Hour)
	if err := s.RecordRefresh(ctx, uuid.New().String(), "warehouse", early); err != nil {
		t.Fatalf("RecordRefresh: %v", err)
	}
	if err := s.RecordRefresh(ctx, uuid.New().String(), "warehouse", late); err != nil {
		t.Fatalf("RecordRefresh: %v", err)
	}
	if err := s.RecordRefresh(ctx, uuid.New().String(), "cache", early); err != nil {
		t.Fatalf("RecordRefresh: %v", err)
	}

	info, err = s.LastRefresh(ctx)
	if err != nil {
		t.Fatalf("LastRefresh: %v", err)
	}
	if got := info.LastBySource["warehouse"]; !got.Equal(late) {
		t.Fatalf("warehouse last refresh = %v, want %v", got, late)
	}
	if got := info.LastBySource["cache"]; !got.Equal(early) {
		t.Fatalf("cache last refresh = %v, want %v", got, early)
	}
}

func TestStatuses(t *testing.T) {
	s := newTestStore(t)
	seedFacts(t, s)

	statuses, err := s.Statuses(context.Background())
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if len(statuses) != 2 || statuses[0] != "Active" || statuses[1] != "Retired" {
		t.Fatalf("statuses = %v", statuses)
	}
}
