package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const defaultRefreshSource = "warehouse"

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// parseCronExpressionUTC parses a five-field cron expression. Timezone
// prefixes are rejected; refresh schedules are UTC-only.
func parseCronExpressionUTC(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("cron expression is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// RefreshRecorder logs completed refresh runs. *warehouse.Store implements it.
type RefreshRecorder interface {
	RecordRefresh(ctx context.Context, id, source string, at time.Time) error
}

// RefreshSchedulerConfig configures the background refresh bookkeeper.
type RefreshSchedulerConfig struct {
	Recorder RefreshRecorder
	// Schedule is a five-field UTC cron expression.
	Schedule string
	Source   string
	Now      func() time.Time
	Logger   *slog.Logger
}

// RefreshScheduler stamps the warehouse refresh log on a cron cadence, so the
// landing page can show when the mart was last updated.
type RefreshScheduler struct {
	recorder RefreshRecorder
	schedule cron.Schedule
	source   string
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefreshScheduler creates a refresh scheduler instance.
func NewRefreshScheduler(cfg RefreshSchedulerConfig) (*RefreshScheduler, error) {
	if cfg.Recorder == nil {
		return nil, errors.New("refresh scheduler recorder is nil")
	}
	schedule, err := parseCronExpressionUTC(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	if cfg.Source == "" {
		cfg.Source = defaultRefreshSource
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &RefreshScheduler{
		recorder: cfg.Recorder,
		schedule: schedule,
		source:   cfg.Source,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}, nil
}

// Next reports when the scheduler will fire after the given time.
func (s *RefreshScheduler) Next(after time.Time) time.Time {
	return s.schedule.Next(after.UTC())
}

// Start begins background scheduling. Calling Start twice is a no-op.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("refresh scheduler is nil")
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for {
			next := s.schedule.Next(s.now())
			timer := time.NewTimer(next.Sub(s.now()))
			select {
			case <-loopCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.runOnce(loopCtx)
			}
		}
	}()

	_ = ctx
	return nil
}

// RunOnce records a single refresh immediately.
func (s *RefreshScheduler) RunOnce(ctx context.Context) error {
	return s.record(ctx)
}

func (s *RefreshScheduler) runOnce(ctx context.Context) {
	if err := s.record(ctx); err != nil {
		s.logger.Error("refresh run failed", "source", s.source, "error", err)
		return
	}
	s.logger.Info("refresh recorded", "source", s.source)
}

func (s *RefreshScheduler) record(ctx context.Context) error {
	return s.recorder.RecordRefresh(ctx, uuid.New().String(), s.source, s.now())
}

// Stop halts background scheduling and waits for the loop to exit.
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
