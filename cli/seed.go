package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/variant-group/icarus/config"
	"github.com/variant-group/icarus/warehouse"
)

// demoPlans is the (app, plan) set the seed command populates.
var demoPlans = map[string][]string{
	"Alpha": {"Basic", "Pro"},
	"Beta":  {"Starter"},
}

// NewSeedCmd creates the "seed" subcommand, which fills the warehouse with a
// small demo dataset so the dashboard can be exercised without a real mart.
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the warehouse with demo data",
		RunE:  runSeed,
	}

	cmd.Flags().String("config", "", "Path to icarus.yaml")
	cmd.Flags().String("warehouse", "", "Path to the metric mart SQLite database (overrides config)")
	cmd.Flags().String("from", "", "First reporting date (YYYY-MM-DD, default: 90 days ago)")
	cmd.Flags().Int("days", 90, "Number of daily reporting dates to generate")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	explicitConfig, _ := cmd.Flags().GetString("config")
	warehouseFlag, _ := cmd.Flags().GetString("warehouse")
	fromFlag, _ := cmd.Flags().GetString("from")
	days, _ := cmd.Flags().GetInt("days")

	configPath, found, err := config.Discover(explicitConfig)
	if err != nil {
		return exitError(exitConfig, "discovering config: %v", err)
	}
	if !found {
		return exitError(exitConfig, "no config file found (looked for ./icarus.yaml and ~/.icarus/config.yaml)")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return exitError(exitConfig, "%v", err)
	}

	warehousePath := cfg.Warehouse.Path
	if warehouseFlag != "" {
		warehousePath = warehouseFlag
	}
	if warehousePath == "" {
		return exitError(exitConfig, "no warehouse path configured (set warehouse.path or --warehouse)")
	}

	start := time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)
	if fromFlag != "" {
		start, err = time.Parse(time.DateOnly, fromFlag)
		if err != nil {
			return exitError(exitConfig, "invalid from date %q", fromFlag)
		}
	}
	if days <= 0 {
		return exitError(exitConfig, "days must be positive")
	}

	store, err := warehouse.Open(warehousePath)
	if err != nil {
		return exitError(exitStore, "opening warehouse: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	facts := demoFacts(cfg, start, days)
	if err := store.Seed(cmd.Context(), facts); err != nil {
		return exitError(exitStore, "seeding warehouse: %v", err)
	}
	if err := store.RecordRefresh(cmd.Context(), uuid.New().String(), "seed", time.Now().UTC()); err != nil {
		return exitError(exitStore, "recording refresh: %v", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d facts into %s\n", len(facts), warehousePath)
	return nil
}

// demoFacts generates deterministic demo values for every configured metric,
// both scenarios, across the demo plan set. Crystal-ball values run a few
// percent above the regular ones so the two tables are distinguishable.
func demoFacts(cfg *config.Config, start time.Time, days int) []warehouse.Fact {
	metrics := cfg.MetricKeys()
	facts := make([]warehouse.Fact, 0, days*len(metrics)*6)

	planIdx := 0
	for app, plans := range demoPlans {
		for _, plan := range plans {
			planIdx++
			for d := 0; d < days; d++ {
				date := start.AddDate(0, 0, d)
				for mi, metric := range metrics {
					base := demoValue(cfg, metric, planIdx, d, mi)
					crystal := base * 1.04
					for scenario, v := range map[string]float64{
						warehouse.ScenarioRegular:     base,
						warehouse.ScenarioCrystalBall: crystal,
					} {
						value := v
						facts = append(facts, warehouse.Fact{
							App:      app,
							Plan:     plan,
							Date:     date,
							BC:       firstOption(cfg.Filters.BCOptions),
							Cohort:   firstOption(cfg.Filters.CohortOptions),
							Scenario: scenario,
							Status:   "Active",
							Metric:   metric,
							Value:    &value,
						})
					}
				}
			}
		}
	}
	return facts
}

// demoValue shapes the demo figure to the metric's display format so percent
// metrics stay fractional and dollar metrics look like revenue.
func demoValue(cfg *config.Config, metric string, planIdx, day, metricIdx int) float64 {
	format := ""
	if m, ok := cfg.Metrics[metric]; ok {
		format = m.Format
	}
	switch format {
	case "percent":
		return 0.02 + 0.001*float64((planIdx+day+metricIdx)%10)
	case "dollar":
		return float64(1000*planIdx) + 25*float64(day) + 100*float64(metricIdx)
	default:
		return float64(50*planIdx) + float64(day%14) + float64(metricIdx)
	}
}

func firstOption(options []string) string {
	if len(options) == 0 {
		return "All"
	}
	return options[0]
}
