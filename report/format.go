package report

import (
	"math"
	"strconv"
)

// rebillsMetric gets integer rounding in crystal-ball view; projected rebill
// counts are whole events, unlike every other metric.
const rebillsMetric = "Rebills"

// MetricConfig is the static display configuration for one metric.
type MetricConfig struct {
	Display string
	Suffix  string
	Format  string // "dollar", "percent", or "number"
}

// Formatter applies per-metric display rules to raw values.
type Formatter struct {
	metrics map[string]MetricConfig
}

// NewFormatter creates a Formatter over the given metric configuration.
func NewFormatter(metrics map[string]MetricConfig) *Formatter {
	if metrics == nil {
		metrics = map[string]MetricConfig{}
	}
	return &Formatter{metrics: metrics}
}

// FormatValue rounds a raw value for display. Rebills in crystal-ball view
// rounds to a whole number; percent metrics are scaled x100 and rounded to
// two decimals; everything else rounds to two decimals. A nil or non-finite
// input formats to nil.
func (f *Formatter) FormatValue(raw *float64, metric string, crystalBall bool) *float64 {
	if raw == nil || math.IsNaN(*raw) || math.IsInf(*raw, 0) {
		return nil
	}
	v := *raw
	if metric == rebillsMetric && crystalBall {
		rounded := math.Round(v)
		return &rounded
	}
	if f.metrics[metric].Format == "percent" {
		rounded := roundTo2(v * 100)
		return &rounded
	}
	rounded := roundTo2(v)
	return &rounded
}

// DisplayLabel returns the configured display name plus suffix for a metric.
// Unconfigured metrics fall back to the raw metric key.
func (f *Formatter) DisplayLabel(metric string) string {
	cfg, ok := f.metrics[metric]
	if !ok || cfg.Display == "" {
		return metric + f.metrics[metric].Suffix
	}
	return cfg.Display + cfg.Suffix
}

// Config returns the configuration for a metric and whether it exists.
func (f *Formatter) Config(metric string) (MetricConfig, bool) {
	cfg, ok := f.metrics[metric]
	return cfg, ok
}

// CoerceValue converts a loosely typed cell into an optional float. Values
// that cannot be read as a finite number coerce to nil rather than erroring;
// callers treat the missing value as a first-class case.
func CoerceValue(raw any) *float64 {
	var v float64
	switch x := raw.(type) {
	case nil:
		return nil
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil
		}
		v = parsed
	default:
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
