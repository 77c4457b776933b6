package model

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Objective weighs the tie-break between using fewer beds and packing the
// best bed more densely. Covered area always dominates.
type Objective struct {
	Name             string  `json:"name" mapstructure:"name"`
	BedWeight        float64 `json:"bed_weight" mapstructure:"bed_weight"`               // reward per bed left unused
	EfficiencyWeight float64 `json:"efficiency_weight" mapstructure:"efficiency_weight"` // reward for best single-bed efficiency
}

var objectivePresets = []Objective{
	{Name: "balanced", BedWeight: 0.5, EfficiencyWeight: 0.5},
	{Name: "fewest-beds", BedWeight: 1, EfficiencyWeight: 0},
	{Name: "densest-bed", BedWeight: 0, EfficiencyWeight: 1},
	{Name: "area", BedWeight: 0, EfficiencyWeight: 0},
}

// ObjectiveByName returns a preset objective.
func ObjectiveByName(name string) (Objective, error) {
	for _, o := range objectivePresets {
		if o.Name == strings.ToLower(strings.TrimSpace(name)) {
			return o, nil
		}
	}
	return Objective{}, fmt.Errorf("unknown objective %q", name)
}

// ObjectiveNames lists the preset objective names.
func ObjectiveNames() []string {
	names := make([]string, 0, len(objectivePresets))
	for _, o := range objectivePresets {
		names = append(names, o.Name)
	}
	return names
}

// TuningConfig holds the thresholds the performance optimizer works from.
type TuningConfig struct {
	SmallParts         int           `json:"small_parts" mapstructure:"small_parts"`                   // at or below: whole budget to the primary solver
	LargeParts         int           `json:"large_parts" mapstructure:"large_parts"`                   // above: genetic search with capped budget
	LargePrimaryShare  float64       `json:"large_primary_share" mapstructure:"large_primary_share"`   // primary share of the budget for large instances
	MinFallbackReserve time.Duration `json:"min_fallback_reserve" mapstructure:"min_fallback_reserve"` // floor for the fallback slice
	WatchdogMargin     time.Duration `json:"watchdog_margin" mapstructure:"watchdog_margin"`
	MaxRetries         int           `json:"max_retries" mapstructure:"max_retries"`
	MaxBreadth         int           `json:"max_breadth" mapstructure:"max_breadth"` // positions per level/orientation for medium instances
	NodeLimit          int           `json:"node_limit" mapstructure:"node_limit"`
	Population         int           `json:"population" mapstructure:"population"`
	Generations        int           `json:"generations" mapstructure:"generations"`
	Seed               int64         `json:"seed" mapstructure:"seed"`
}

// Settings holds nesting configuration. It is passed explicitly into every
// solve; there are no process-wide tunables.
type Settings struct {
	TimeBudget time.Duration `json:"time_budget" mapstructure:"time_budget"`
	Spacing    float64       `json:"spacing" mapstructure:"spacing"`         // min clearance between parts, mm
	EdgeMargin float64       `json:"edge_margin" mapstructure:"edge_margin"` // unusable border along bed edges, mm
	Objective  Objective     `json:"objective" mapstructure:"objective"`
	Tuning     TuningConfig  `json:"tuning" mapstructure:"tuning"`
	Workers    int           `json:"workers" mapstructure:"workers"`
	// CycleLength is the default reservation window of a confirmed batch.
	CycleLength time.Duration `json:"cycle_length" mapstructure:"cycle_length"`
}

func DefaultTuning() TuningConfig {
	return TuningConfig{
		SmallParts:         10,
		LargeParts:         40,
		LargePrimaryShare:  0.6,
		MinFallbackReserve: 250 * time.Millisecond,
		WatchdogMargin:     200 * time.Millisecond,
		MaxRetries:         2,
		MaxBreadth:         6,
		NodeLimit:          2_000_000,
		Population:         40,
		Generations:        200,
		Seed:               42,
	}
}

func DefaultSettings() Settings {
	obj, _ := ObjectiveByName("balanced")
	return Settings{
		TimeBudget:  10 * time.Second,
		Spacing:     0,
		EdgeMargin:  0,
		Objective:   obj,
		Tuning:      DefaultTuning(),
		Workers:     runtime.NumCPU(),
		CycleLength: 8 * time.Hour,
	}
}
