package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/piwi3910/curenest/internal/engine"
	"github.com/piwi3910/curenest/internal/project"
)

var compareProblem string

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare objectives and strategies on one problem",
	Long: `Compare solves the problem under the current settings, every other
objective preset, the fallback placer alone and, when spacing is set, without
spacing. Nothing is recorded in the batch database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		problem, err := project.LoadProblem(compareProblem, catalog)
		if err != nil {
			return err
		}

		results := engine.CompareScenarios(cmd.Context(), engine.BuildDefaultScenarios(cfg.Settings), problem)

		best := -1
		for i, r := range results {
			if r.Err != nil {
				continue
			}
			if best < 0 || r.CoveredArea > results[best].CoveredArea+1e-6 ||
				(r.CoveredArea > results[best].CoveredArea-1e-6 && r.BedsUsed < results[best].BedsUsed) {
				best = i
			}
		}

		fmt.Printf("%-24s %5s %14s %8s %9s %s\n", "SCENARIO", "BEDS", "COVERED (m²)", "EFF", "UNPLACED", "STATUS")
		for i, r := range results {
			if r.Err != nil {
				fmt.Printf("%-24s %s\n", r.Scenario.Name, color.RedString(r.Err.Error()))
				continue
			}
			line := fmt.Sprintf("%-24s %5d %14.2f %7.1f%% %9d %s", r.Scenario.Name, r.BedsUsed,
				r.CoveredArea/1e6, r.Efficiency, r.UnplacedCount, r.Solution.Status)
			if i == best {
				line = color.GreenString(line + "  *")
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVarP(&compareProblem, "problem", "p", "", "problem file (YAML or JSON)")
	compareCmd.MarkFlagRequired("problem")
}
