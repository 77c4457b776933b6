package engine

import (
	"time"

	"github.com/piwi3910/curenest/internal/model"
)

// Strategy selects the primary search.
type Strategy string

const (
	StrategyExact   Strategy = "exact"
	StrategyGenetic Strategy = "genetic"
)

// InstanceSize is the shape of a problem as seen by Tune.
type InstanceSize struct {
	Parts  int
	Beds   int
	Levels int // bed surfaces plus active stands
}

// Params are the derived search parameters for one solve.
type Params struct {
	Strategy        Strategy
	PrimaryBudget   time.Duration
	FallbackReserve time.Duration
	WatchdogMargin  time.Duration
	Breadth         int // positions tried per level and orientation, 0 = all
	NodeLimit       int
	Population      int
	Generations     int
	MaxRetries      int
	Seed            int64
}

// Tune derives search parameters from instance size and the time budget.
// It is a pure function: equal inputs give equal outputs.
//
// Small instances give the exact search the whole budget with unlimited
// breadth. Medium instances shrink the exact share linearly towards
// LargePrimaryShare and cap breadth at MaxBreadth. Large instances switch to
// the genetic search, keeping at least MinFallbackReserve for the fallback.
func Tune(size InstanceSize, budget time.Duration, cfg model.TuningConfig) Params {
	if budget <= 0 {
		budget = time.Second
	}
	p := Params{
		Strategy:       StrategyExact,
		WatchdogMargin: cfg.WatchdogMargin,
		NodeLimit:      cfg.NodeLimit,
		Population:     cfg.Population,
		Generations:    cfg.Generations,
		MaxRetries:     cfg.MaxRetries,
		Seed:           cfg.Seed,
	}

	var slice time.Duration
	n := size.Parts
	switch {
	case n <= cfg.SmallParts:
		slice = budget
		p.Breadth = 0

	case n <= cfg.LargeParts:
		span := float64(cfg.LargeParts - cfg.SmallParts)
		frac := float64(n-cfg.SmallParts) / span
		share := 1 - (1-cfg.LargePrimaryShare)*frac
		slice = time.Duration(float64(budget) * share)
		p.Breadth = cfg.MaxBreadth
		// Several beds multiply the branching factor.
		if size.Beds > 2 && p.Breadth > 2 {
			p.Breadth = max(2, p.Breadth*2/size.Beds)
		}

	default:
		p.Strategy = StrategyGenetic
		reserve := time.Duration(float64(budget) * (1 - cfg.LargePrimaryShare))
		if reserve < cfg.MinFallbackReserve {
			reserve = cfg.MinFallbackReserve
		}
		if reserve > budget {
			reserve = budget
		}
		slice = budget - reserve
		p.Breadth = cfg.MaxBreadth
		// Larger instances decode slower; trade generations for time.
		if size.Parts > 2*cfg.LargeParts && p.Generations > 100 {
			p.Generations = 100
		}
	}

	// The watchdog margin comes out of the primary slice so that a fired
	// watchdog plus the fallback still fit the budget.
	p.FallbackReserve = budget - slice
	p.PrimaryBudget = slice - cfg.WatchdogMargin
	if p.PrimaryBudget < slice/2 {
		p.PrimaryBudget = slice / 2
	}
	return p
}

// Tighten returns stricter parameters for a retry after a failed
// validation: half the budget, narrower breadth and a smaller node limit.
func (p Params) Tighten() Params {
	t := p
	t.PrimaryBudget = p.PrimaryBudget / 2
	switch {
	case p.Breadth == 0:
		t.Breadth = 4
	case p.Breadth > 1:
		t.Breadth = p.Breadth / 2
	}
	if p.NodeLimit > 1 {
		t.NodeLimit = p.NodeLimit / 2
	}
	if p.Generations > 1 {
		t.Generations = p.Generations / 2
	}
	t.Seed = p.Seed + 1
	return t
}
