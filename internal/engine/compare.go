package engine

import (
	"context"
	"fmt"

	"github.com/piwi3910/curenest/internal/model"
)

// ComparisonScenario defines a named set of settings to compare.
type ComparisonScenario struct {
	Name     string
	Settings model.Settings
	// FallbackOnly skips the primary search.
	FallbackOnly bool
}

// ComparisonResult holds the solution and computed statistics for a single
// scenario.
type ComparisonResult struct {
	Scenario      ComparisonScenario
	Solution      model.Solution
	BedsUsed      int
	CoveredArea   float64
	Efficiency    float64 // percent over used beds
	UnplacedCount int
	Err           error
}

// CompareScenarios solves the same problem under each scenario and returns
// the results in scenario order. Failures are reported per scenario.
func CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, problem Problem) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		res := ComparisonResult{Scenario: scenario}

		m, err := NewModel(problem, scenario.Settings)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		var sol model.Solution
		if scenario.FallbackOnly {
			sol = SolveFallback(m)
		} else {
			sol, err = New(scenario.Settings).Solve(ctx, m)
		}
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		res.Solution = sol
		res.BedsUsed = len(sol.BedsUsed())
		res.CoveredArea = sol.CoveredArea()
		res.Efficiency = sol.Efficiency() * 100
		res.UnplacedCount = len(sol.Unplaced)
		results = append(results, res)
	}

	return results
}

// BuildDefaultScenarios generates what-if alternatives around the current
// settings: the other objective presets, the fallback alone, and no spacing.
func BuildDefaultScenarios(base model.Settings) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{Name: "Current Settings", Settings: base},
	}

	for _, name := range model.ObjectiveNames() {
		if name == base.Objective.Name {
			continue
		}
		obj, _ := model.ObjectiveByName(name)
		alt := base
		alt.Objective = obj
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("Objective %s", name),
			Settings: alt,
		})
	}

	scenarios = append(scenarios, ComparisonScenario{
		Name:         "Fallback Only",
		Settings:     base,
		FallbackOnly: true,
	})

	if base.Spacing > 0 {
		noSpacing := base
		noSpacing.Spacing = 0
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "No Spacing",
			Settings: noSpacing,
		})
	}

	return scenarios
}
