// Package config loads the dashboard's YAML configuration: the user
// directory, metric display rules, chart registry, filter options, and server
// settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/variant-group/icarus/auth"
	"github.com/variant-group/icarus/report"
)

const (
	projectConfigName = "icarus.yaml"
	homeConfigName    = "config.yaml"
)

var validFormats = map[string]bool{"dollar": true, "percent": true, "number": true}

// Config is the full application configuration.
type Config struct {
	Server       Server            `yaml:"server"`
	Warehouse    Warehouse         `yaml:"warehouse"`
	Refresh      Refresh           `yaml:"refresh"`
	Users        map[string]User   `yaml:"users"`
	Metrics      map[string]Metric `yaml:"metrics"`
	MetricOrder  []string          `yaml:"metric_order"`
	ChartMetrics []ChartMetric     `yaml:"chart_metrics"`
	Dashboards   []Dashboard       `yaml:"dashboards"`
	Filters      Filters           `yaml:"filters"`
}

// Server holds HTTP listen options.
type Server struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Warehouse points at the metric mart database.
type Warehouse struct {
	Path string `yaml:"path"`
}

// Refresh configures the scheduled warehouse refresh bookkeeping.
type Refresh struct {
	// Schedule is a five-field UTC cron expression. Empty disables the
	// scheduler.
	Schedule string `yaml:"schedule"`
	Source   string `yaml:"source"`
}

// User is one entry of the static user directory.
type User struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Metric is the display configuration for one metric key.
type Metric struct {
	Display string `yaml:"display"`
	Suffix  string `yaml:"suffix"`
	Format  string `yaml:"format"`
}

// ChartMetric selects one metric for the chart section of the report.
type ChartMetric struct {
	Metric  string `yaml:"metric"`
	Display string `yaml:"display"`
	Format  string `yaml:"format"`
}

// Dashboard is one entry of the landing-page dashboard registry.
type Dashboard struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
}

// Filters holds the selectable filter options and their defaults.
type Filters struct {
	BCOptions     []string `yaml:"bc_options"`
	CohortOptions []string `yaml:"cohort_options"`
	DefaultBC     string   `yaml:"default_bc"`
	DefaultCohort string   `yaml:"default_cohort"`
	DefaultPlan   string   `yaml:"default_plan"`
}

// Discover resolves the config file location with first-match semantics:
// the explicit path if given, then ./icarus.yaml, then ~/.icarus/config.yaml.
func Discover(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return discoverFrom(explicitPath, cwd, homeDir)
}

func discoverFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(homeDir, ".icarus", homeConfigName))
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the parts of the config that would otherwise fail at
// request time.
func (c *Config) Validate() error {
	if len(c.Users) == 0 {
		return errors.New("no users configured")
	}
	for id, u := range c.Users {
		if strings.TrimSpace(u.Password) == "" {
			return fmt.Errorf("user %q has no password", id)
		}
	}
	for key, m := range c.Metrics {
		if m.Format != "" && !validFormats[m.Format] {
			return fmt.Errorf("metric %q has unknown format %q", key, m.Format)
		}
	}
	for _, cm := range c.ChartMetrics {
		if cm.Metric == "" {
			return errors.New("chart metric entry missing metric key")
		}
		if _, ok := c.Metrics[cm.Metric]; !ok {
			return fmt.Errorf("chart metric %q not present in metrics", cm.Metric)
		}
		if cm.Format != "" && !validFormats[cm.Format] {
			return fmt.Errorf("chart metric %q has unknown format %q", cm.Metric, cm.Format)
		}
	}
	for _, key := range c.MetricOrder {
		if _, ok := c.Metrics[key]; !ok {
			return fmt.Errorf("metric_order entry %q not present in metrics", key)
		}
	}
	return nil
}

// Directory converts the configured users into the auth directory shape.
func (c *Config) Directory() auth.Directory {
	dir := make(auth.Directory, len(c.Users))
	for id, u := range c.Users {
		dir[id] = auth.User{Name: u.Name, Secret: u.Password, Role: u.Role}
	}
	return dir
}

// MetricConfigs converts the configured metrics into the report shape.
func (c *Config) MetricConfigs() map[string]report.MetricConfig {
	out := make(map[string]report.MetricConfig, len(c.Metrics))
	for key, m := range c.Metrics {
		out[key] = report.MetricConfig{Display: m.Display, Suffix: m.Suffix, Format: m.Format}
	}
	return out
}

// MetricKeys returns the selectable metric keys in display order: the
// configured metric_order first, then any remaining metrics alphabetically.
func (c *Config) MetricKeys() []string {
	seen := make(map[string]bool, len(c.Metrics))
	keys := make([]string, 0, len(c.Metrics))
	for _, key := range c.MetricOrder {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	rest := make([]string, 0, len(c.Metrics))
	for key := range c.Metrics {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
