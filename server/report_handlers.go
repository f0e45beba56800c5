package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/variant-group/icarus/config"
	"github.com/variant-group/icarus/report"
	"github.com/variant-group/icarus/warehouse"
)

const defaultPlanStatus = "Active"

// DashboardEntry is one row of the landing-page dashboard registry.
type DashboardEntry struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// DashboardsResponse is the JSON response for GET /api/dashboards.
type DashboardsResponse struct {
	Dashboards []DashboardEntry     `json:"dashboards"`
	Refresh    map[string]time.Time `json:"refresh"`
}

// handleDashboards lists the dashboard registry with refresh bookkeeping.
func (s *Server) handleDashboards(w http.ResponseWriter, r *http.Request) {
	entries := make([]DashboardEntry, 0, len(s.dashboards))
	for _, d := range s.dashboards {
		entries = append(entries, DashboardEntry{Name: d.Name, Enabled: d.Enabled})
	}

	// Refresh info is cosmetic on the landing page; degrade to empty rather
	// than failing the whole response.
	refresh := map[string]time.Time{}
	if info, err := s.source.LastRefresh(r.Context()); err != nil {
		s.logger.Warn("refresh info unavailable", "error", err)
	} else {
		refresh = info.LastBySource
	}

	writeJSON(w, http.StatusOK, DashboardsResponse{Dashboards: entries, Refresh: refresh})
}

// FiltersResponse is the JSON response for GET /api/report/filters.
type FiltersResponse struct {
	BCOptions     []string             `json:"bc_options"`
	CohortOptions []string             `json:"cohort_options"`
	DefaultBC     string               `json:"default_bc"`
	DefaultCohort string               `json:"default_cohort"`
	DefaultPlan   string               `json:"default_plan"`
	Metrics       []string             `json:"metrics"`
	ChartMetrics  []config.ChartMetric `json:"chart_metrics"`
}

// handleFilters returns the selectable filter options and defaults.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FiltersResponse{
		BCOptions:     s.filters.BCOptions,
		CohortOptions: s.filters.CohortOptions,
		DefaultBC:     s.filters.DefaultBC,
		DefaultCohort: s.filters.DefaultCohort,
		DefaultPlan:   s.filters.DefaultPlan,
		Metrics:       s.metrics,
		ChartMetrics:  s.chartMetrics,
	})
}

// BoundsResponse is the JSON response for GET /api/report/bounds.
type BoundsResponse struct {
	Min     string `json:"min,omitempty"`
	Max     string `json:"max,omitempty"`
	HasData bool   `json:"has_data"`
}

// handleBounds returns the reporting date range of the warehouse.
func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	min, max, ok, err := s.source.DateBounds(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SOURCE_ERROR", err.Error())
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, BoundsResponse{HasData: false})
		return
	}
	writeJSON(w, http.StatusOK, BoundsResponse{
		Min:     min.Format(time.DateOnly),
		Max:     max.Format(time.DateOnly),
		HasData: true,
	})
}

// PlansResponse is the JSON response for GET /api/report/plans.
type PlansResponse struct {
	PlansByApp map[string][]string `json:"plans_by_app"`
}

// handlePlans returns the selectable plans grouped by app.
func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = defaultPlanStatus
	}

	groups, err := s.source.PlanGroups(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SOURCE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PlansResponse{PlansByApp: groups})
}

// LoadRequest is the JSON body for POST /api/report/load.
type LoadRequest struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	BC      string   `json:"bc"`
	Cohort  string   `json:"cohort"`
	Plans   []string `json:"plans"`
	Metrics []string `json:"metrics"`
}

// ChartPair carries the regular and crystal-ball charts for one metric.
type ChartPair struct {
	Metric      string        `json:"metric"`
	Display     string        `json:"display"`
	Regular     *report.Chart `json:"regular"`
	CrystalBall *report.Chart `json:"crystal_ball"`
}

// LoadResponse is the JSON response for POST /api/report/load. A nil table
// means that scenario had nothing to render, which the UI presents
// differently from a table with zero rows.
type LoadResponse struct {
	Regular     *report.Table `json:"regular"`
	CrystalBall *report.Table `json:"crystal_ball"`
	Charts      []ChartPair   `json:"charts"`
	NoData      bool          `json:"no_data"`
}

// handleLoad runs the full report: regular and crystal-ball pivot tables plus
// a chart pair per configured chart metric.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "PARSE_ERROR", err.Error())
		return
	}

	if len(req.Plans) == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "select at least one plan")
		return
	}
	if len(req.Metrics) == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "select at least one metric")
		return
	}

	from, err := time.Parse(time.DateOnly, req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf("invalid from date %q", req.From))
		return
	}
	to, err := time.Parse(time.DateOnly, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf("invalid to date %q", req.To))
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "date range is reversed")
		return
	}

	bc := req.BC
	if bc == "" {
		bc = s.filters.DefaultBC
	}
	cohort := req.Cohort
	if cohort == "" {
		cohort = s.filters.DefaultCohort
	}

	ctx, span := s.tracing.StartLoad(r.Context(), req.From, req.To, len(req.Plans), len(req.Metrics))
	started := time.Now()

	resp, err := s.loadReport(ctx, warehouse.Query{
		From: from, To: to,
		BC: bc, Cohort: cohort,
		Plans:   req.Plans,
		Metrics: req.Metrics,
		Status:  defaultPlanStatus,
	})

	elapsed := time.Since(started).Seconds()
	if err != nil {
		s.tracing.EndLoad(span, false, err)
		s.telemetry.RecordReportLoad(ctx, elapsed, false, err)
		if sess, ok := sessionFromContext(ctx); ok {
			s.logger.Error("report load failed", "user", sess.UserID, "error", err)
		}
		writeError(w, http.StatusInternalServerError, "SOURCE_ERROR", err.Error())
		return
	}

	s.tracing.EndLoad(span, resp.NoData, nil)
	s.telemetry.RecordReportLoad(ctx, elapsed, resp.NoData, nil)
	writeJSON(w, http.StatusOK, resp)
}

// loadReport assembles both scenario tables and the chart pairs.
func (s *Server) loadReport(ctx context.Context, q warehouse.Query) (*LoadResponse, error) {
	regularQ := q
	regularQ.Scenario = warehouse.ScenarioRegular
	crystalQ := q
	crystalQ.Scenario = warehouse.ScenarioCrystalBall

	regularObs, err := s.source.PivotData(ctx, regularQ)
	if err != nil {
		return nil, fmt.Errorf("load regular pivot: %w", err)
	}
	crystalObs, err := s.source.PivotData(ctx, crystalQ)
	if err != nil {
		return nil, fmt.Errorf("load crystal ball pivot: %w", err)
	}

	resp := &LoadResponse{
		Regular:     report.Pivot(regularObs, q.Metrics, s.formatter, false),
		CrystalBall: report.Pivot(crystalObs, q.Metrics, s.formatter, true),
		Charts:      make([]ChartPair, 0, len(s.chartMetrics)),
	}
	resp.NoData = resp.Regular == nil && resp.CrystalBall == nil

	for _, cm := range s.chartMetrics {
		regularPts, err := s.source.ChartData(ctx, regularQ, cm.Metric)
		if err != nil {
			return nil, fmt.Errorf("load chart %s: %w", cm.Metric, err)
		}
		crystalPts, err := s.source.ChartData(ctx, crystalQ, cm.Metric)
		if err != nil {
			return nil, fmt.Errorf("load crystal ball chart %s: %w", cm.Metric, err)
		}

		resp.Charts = append(resp.Charts, ChartPair{
			Metric:      cm.Metric,
			Display:     cm.Display,
			Regular:     report.BuildSeries(regularPts, cm.Display, cm.Format, q.From, q.To, s.colors),
			CrystalBall: report.BuildSeries(crystalPts, cm.Display+" (Crystal Ball)", cm.Format, q.From, q.To, s.colors),
		})
	}

	return resp, nil
}
