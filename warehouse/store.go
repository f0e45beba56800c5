// Package warehouse is the query source behind the dashboard: a SQLite mart
// of per-plan metric facts plus bookkeeping for the scheduled refreshes that
// populate it. The dashboard core does not know how the facts get here.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/variant-group/icarus/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS metric_facts (
	app TEXT NOT NULL,
	plan TEXT NOT NULL,
	reporting_date TEXT NOT NULL,
	bc TEXT NOT NULL,
	cohort TEXT NOT NULL,
	scenario TEXT NOT NULL,
	status TEXT NOT NULL,
	metric TEXT NOT NULL,
	value REAL
);

CREATE INDEX IF NOT EXISTS idx_facts_lookup
	ON metric_facts(scenario, status, bc, cohort, reporting_date);
CREATE INDEX IF NOT EXISTS idx_facts_plan ON metric_facts(app, plan);

CREATE TABLE IF NOT EXISTS refresh_log (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	refreshed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_refresh_source ON refresh_log(source);
`

// Scenario names as stored in the mart.
const (
	ScenarioRegular     = "Regular"
	ScenarioCrystalBall = "Crystal Ball"
)

// Fact is one mart row: a single metric value for a plan on a date under one
// filter combination. Value nil means the figure was not reported.
type Fact struct {
	App      string
	Plan     string
	Date     time.Time
	BC       string
	Cohort   string
	Scenario string
	Status   string
	Metric   string
	Value    *float64
}

// Query selects facts for one report load.
type Query struct {
	From     time.Time
	To       time.Time
	BC       string
	Cohort   string
	Plans    []string
	Metrics  []string
	Scenario string
	Status   string
}

// RefreshInfo reports when each refresh source last ran. Zero times mean the
// source has never refreshed.
type RefreshInfo struct {
	LastBySource map[string]time.Time `json:"last_by_source"`
}

// Store is the SQLite-backed metric mart.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a mart at the given path or DSN.
func Open(dsn string) (*Store, error) {
	clean := strings.TrimSpace(dsn)
	if clean == "" {
		return nil, errors.New("warehouse: dsn is empty")
	}

	db, err := sql.Open("sqlite", clean)
	if err != nil {
		return nil, fmt.Errorf("warehouse open %q: %w", clean, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("warehouse create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DateBounds returns the earliest and latest reporting dates in the mart.
// ok is false when the mart holds no facts at all.
func (s *Store) DateBounds(ctx context.Context) (min, max time.Time, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
SELECT MIN(reporting_date), MAX(reporting_date) FROM metric_facts`)

	var minStr, maxStr sql.NullString
	if err := row.Scan(&minStr, &maxStr); err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("warehouse date bounds: %w", err)
	}
	if !minStr.Valid || !maxStr.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	min, err = parseDate(minStr.String)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	max, err = parseDate(maxStr.String)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return min, max, true, nil
}

// PlanGroups returns the distinct plans for a status, grouped by app.
func (s *Store) PlanGroups(ctx context.Context, status string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT DISTINCT app, plan FROM metric_facts
WHERE status = ?
ORDER BY app, plan`, status)
	if err != nil {
		return nil, fmt.Errorf("warehouse plan groups: %w", err)
	}
	defer rows.Close()

	groups := make(map[string][]string)
	for rows.Next() {
		var app, plan string
		if err := rows.Scan(&app, &plan); err != nil {
			return nil, fmt.Errorf("warehouse plan groups scan: %w", err)
		}
		groups[app] = append(groups[app], plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse plan groups rows: %w", err)
	}
	return groups, nil
}

// PivotData returns one observation per (app, plan, date) carrying all of the
// query's metrics, shaped for report.Pivot.
func (s *Store) PivotData(ctx context.Context, q Query) ([]report.Observation, error) {
	if len(q.Plans) == 0 || len(q.Metrics) == 0 {
		return nil, nil
	}

	args := []any{q.Scenario, q.Status, q.BC, q.Cohort, q.From.Format(time.DateOnly), q.To.Format(time.DateOnly)}
	query := `
SELECT app, plan, reporting_date, metric, value FROM metric_facts
WHERE scenario = ? AND status = ? AND bc = ? AND cohort = ?
  AND reporting_date >= ? AND reporting_date <= ?
  AND plan IN (` + placeholders(len(q.Plans)) + `)
  AND metric IN (` + placeholders(len(q.Metrics)) + `)
ORDER BY app, plan, reporting_date`
	for _, p := range q.Plans {
		args = append(args, p)
	}
	for _, m := range q.Metrics {
		args = append(args, m)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("warehouse pivot data: %w", err)
	}
	defer rows.Close()

	type obsKey struct {
		app, plan, date string
	}
	byKey := make(map[obsKey]*report.Observation)
	order := make([]obsKey, 0)

	for rows.Next() {
		var app, plan, dateStr, metric string
		var value sql.NullFloat64
		if err := rows.Scan(&app, &plan, &dateStr, &metric, &value); err != nil {
			return nil, fmt.Errorf("warehouse pivot scan: %w", err)
		}

		k := obsKey{app: app, plan: plan, date: dateStr}
		obs, ok := byKey[k]
		if !ok {
			date, err := parseDate(dateStr)
			if err != nil {
				return nil, err
			}
			obs = &report.Observation{
				App:    app,
				Plan:   plan,
				Date:   date,
				Values: make(map[string]*float64, len(q.Metrics)),
			}
			byKey[k] = obs
			order = append(order, k)
		}
		if value.Valid {
			v := value.Float64
			obs.Values[metric] = &v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse pivot rows: %w", err)
	}

	out := make([]report.Observation, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out, nil
}

// ChartData returns the (plan, date, value) rows for one chart metric, shaped
// for report.BuildSeries.
func (s *Store) ChartData(ctx context.Context, q Query, metric string) ([]report.SeriesPoint, error) {
	if len(q.Plans) == 0 {
		return nil, nil
	}

	args := []any{metric, q.Scenario, q.Status, q.BC, q.Cohort, q.From.Format(time.DateOnly), q.To.Format(time.DateOnly)}
	query := `
SELECT plan, reporting_date, value FROM metric_facts
WHERE metric = ? AND scenario = ? AND status = ? AND bc = ? AND cohort = ?
  AND reporting_date >= ? AND reporting_date <= ?
  AND plan IN (` + placeholders(len(q.Plans)) + `)
ORDER BY plan, reporting_date`
	for _, p := range q.Plans {
		args = append(args, p)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("warehouse chart data: %w", err)
	}
	defer rows.Close()

	points := make([]report.SeriesPoint, 0)
	for rows.Next() {
		var plan, dateStr string
		var value sql.NullFloat64
		if err := rows.Scan(&plan, &dateStr, &value); err != nil {
			return nil, fmt.Errorf("warehouse chart scan: %w", err)
		}
		date, err := parseDate(dateStr)
		if err != nil {
			return nil, err
		}
		p := report.SeriesPoint{Plan: plan, Date: date}
		if value.Valid {
			v := value.Float64
			p.Value = &v
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse chart rows: %w", err)
	}
	return points, nil
}

// Seed inserts facts into the mart. Used by the seed CLI command and tests.
func (s *Store) Seed(ctx context.Context, facts []Fact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("warehouse seed begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO metric_facts (app, plan, reporting_date, bc, cohort, scenario, status, metric, value)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("warehouse seed prepare: %w", err)
	}
	defer stmt.Close()

	for _, f := range facts {
		var value any
		if f.Value != nil {
			value = *f.Value
		}
		if _, err := stmt.ExecContext(ctx,
			f.App, f.Plan, f.Date.Format(time.DateOnly),
			f.BC, f.Cohort, f.Scenario, f.Status, f.Metric, value,
		); err != nil {
			return fmt.Errorf("warehouse seed insert: %w", err)
		}
	}
	return tx.Commit()
}

// RecordRefresh logs a refresh run for a source.
func (s *Store) RecordRefresh(ctx context.Context, id, source string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO refresh_log (id, source, refreshed_at) VALUES (?, ?, ?)`,
		id, source, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("warehouse record refresh: %w", err)
	}
	return nil
}

// LastRefresh reports the most recent refresh time per source.
func (s *Store) LastRefresh(ctx context.Context) (RefreshInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT source, MAX(refreshed_at) FROM refresh_log GROUP BY source`)
	if err != nil {
		return RefreshInfo{}, fmt.Errorf("warehouse last refresh: %w", err)
	}
	defer rows.Close()

	info := RefreshInfo{LastBySource: make(map[string]time.Time)}
	for rows.Next() {
		var source string
		var atStr sql.NullString
		if err := rows.Scan(&source, &atStr); err != nil {
			return RefreshInfo{}, fmt.Errorf("warehouse last refresh scan: %w", err)
		}
		if !atStr.Valid {
			continue
		}
		at, err := time.Parse(time.RFC3339Nano, atStr.String)
		if err != nil {
			return RefreshInfo{}, fmt.Errorf("warehouse last refresh parse %q: %w", atStr.String, err)
		}
		info.LastBySource[source] = at
	}
	if err := rows.Err(); err != nil {
		return RefreshInfo{}, fmt.Errorf("warehouse last refresh rows: %w", err)
	}
	return info, nil
}

// Statuses returns the distinct plan statuses present in the mart.
func (s *Store) Statuses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT status FROM metric_facts`)
	if err != nil {
		return nil, fmt.Errorf("warehouse statuses: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return nil, fmt.Errorf("warehouse statuses scan: %w", err)
		}
		out = append(out, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse statuses rows: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("warehouse parse date %q: %w", s, err)
	}
	return d, nil
}
