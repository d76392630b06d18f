package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/opscart/node-cost-optimizer/pkg/consolidator"
	"github.com/opscart/node-cost-optimizer/pkg/storage"
)

func newSuggestCmd() *cobra.Command {
	inventory := &inventoryOptions{}
	report := &reportOptions{}
	var (
		scenarioName string
		save         bool
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Propose nodes to power down and where their workloads should move",
		Long: `Run a consolidation scenario over the inventory. Underutilized nodes are emptied
largest workload first onto the least loaded nodes that stay under the scenario's
maximum utilization. Nothing is migrated; the plan is advisory.`,
		Example: `  cost-optimizer suggest -i inventory.json --scenario consolidate-low-util
  cost-optimizer suggest --source kubernetes --save -f markdown`,
		RunE: func(cmd *cobra.Command, args []string) error {
			optCfg, err := loadOptimizerConfig()
			if err != nil {
				return err
			}
			scenario, err := optCfg.Scenario(scenarioName)
			if err != nil {
				return err
			}
			tariff, err := loadElectricityConfig()
			if err != nil {
				return err
			}

			inv, err := inventory.load(cmd.Context(), optCfg)
			if err != nil {
				return err
			}

			r := estimate(inv, tariff)
			r.plan = consolidator.New(scenario, tariff).BuildPlan(inv)
			log.Info("plan built",
				"scenario", scenario.Name,
				"powered_down", len(r.plan.PoweredDownNodes),
				"moves", len(r.plan.Moves),
				"monthly_savings", r.plan.EstimatedMonthlySavings)

			if save {
				if err := savePlan(cmd.Context(), cmd.ErrOrStderr(), r); err != nil {
					return err
				}
			}

			return report.render(cmd.Context(), r, optCfg)
		},
	}

	inventory.addFlags(cmd)
	report.addFlags(cmd)
	cmd.Flags().StringVar(&scenarioName, "scenario", "consolidate-low-util", "Scenario from the optimizer config")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the plan (PostgreSQL when STORAGE_ENABLED=true)")
	return cmd
}

func savePlan(ctx context.Context, w io.Writer, r *run) error {
	store, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.SavePlan(ctx, r.plan)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	if !cfg.StorageEnabled {
		fmt.Fprintf(w, "Plan %s was not persisted (storage disabled; set STORAGE_ENABLED=true and DATABASE_URL)\n", id)
		return nil
	}
	log.Info("plan saved", "id", id)
	fmt.Fprintf(w, "Saved plan %s\n", id)
	return nil
}

// openStore returns PostgreSQL when storage is enabled. Commands that read history
// require it; suggest falls back to an in-process store so the plan still gets an id.
func openStore(ctx context.Context, required bool) (storage.Store, error) {
	if !cfg.StorageEnabled {
		if required {
			return nil, fmt.Errorf("storage is disabled; set STORAGE_ENABLED=true and DATABASE_URL")
		}
		log.Warn("STORAGE_ENABLED is not set, plan is kept for this run only")
		return storage.NewMemoryStore(), nil
	}

	store, err := storage.NewPostgresStore(ctx, storage.Config{URL: cfg.DatabaseURL}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}
