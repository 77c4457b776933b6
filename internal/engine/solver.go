package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/piwi3910/curenest/internal/model"
)

// primaryFunc runs one primary search attempt.
type primaryFunc func(ctx context.Context, m *Model, p Params) (model.Solution, error)

// Solver runs the solve pipeline: tune, primary search under a watchdog,
// validation with retries, and the fallback heuristic.
type Solver struct {
	settings model.Settings
	logger   hclog.Logger
	primary  primaryFunc
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger used for retries, violations and escalations.
func WithLogger(l hclog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

// withPrimary swaps the primary search; tests use it to inject faults.
func withPrimary(fn primaryFunc) Option {
	return func(s *Solver) {
		s.primary = fn
	}
}

func New(settings model.Settings, opts ...Option) *Solver {
	s := &Solver{
		settings: settings,
		logger:   hclog.NewNullLogger(),
		primary:  runPrimary,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the settings the solver was built with.
func (s *Solver) Settings() model.Settings {
	return s.settings
}

func runPrimary(ctx context.Context, m *Model, p Params) (model.Solution, error) {
	if p.Strategy == StrategyGenetic {
		return searchGenetic(ctx, m, p)
	}
	return searchExact(ctx, m, p)
}

type primaryOutcome struct {
	sol model.Solution
	err error
}

// SolvePrimary runs the primary search under a watchdog. The watchdog fires
// at PrimaryBudget + WatchdogMargin, cancels the search and reports
// ErrTimeout; the search itself returns its best incumbent when its own
// deadline passes. Caller cancellation yields ErrCancelled.
func (s *Solver) SolvePrimary(ctx context.Context, m *Model, p Params) (model.Solution, error) {
	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan primaryOutcome, 1)
	go func() {
		sol, err := s.primary(searchCtx, m, p)
		done <- primaryOutcome{sol: sol, err: err}
	}()

	watchdog := time.NewTimer(p.PrimaryBudget + p.WatchdogMargin)
	defer watchdog.Stop()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() != nil {
			return model.Solution{}, model.ErrCancelled
		}
		return out.sol, out.err
	case <-watchdog.C:
		cancel()
		s.logger.Warn("watchdog fired, primary search abandoned",
			"strategy", p.Strategy, "budget", p.PrimaryBudget, "margin", p.WatchdogMargin)
		return model.Solution{}, fmt.Errorf("primary search exceeded %s: %w", p.PrimaryBudget+p.WatchdogMargin, model.ErrTimeout)
	case <-ctx.Done():
		return model.Solution{}, model.ErrCancelled
	}
}

// Solve runs the full pipeline on a model. A valid solution is always
// returned unless the caller cancels (ErrCancelled) or even the fallback
// breaks an invariant (*model.ViolationError). An infeasible instance is a
// result, not an error: the solution carries StatusInfeasible.
func (s *Solver) Solve(ctx context.Context, m *Model) (model.Solution, error) {
	start := time.Now()

	if len(m.Parts) == 0 {
		sol := SolveFallback(m)
		sol.Elapsed = time.Since(start)
		return sol, nil
	}

	p := Tune(m.Size(), s.settings.TimeBudget, s.settings.Tuning)
	log := s.logger.With("parts", len(m.Parts), "beds", len(m.Beds))
	log.Debug("tuned search", "strategy", p.Strategy, "primary_budget", p.PrimaryBudget,
		"fallback_reserve", p.FallbackReserve, "breadth", p.Breadth)

	var (
		best     *model.Solution
		attempts int
	)

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		attempts++
		sol, err := s.SolvePrimary(ctx, m, p)
		if errors.Is(err, model.ErrCancelled) {
			return model.Solution{}, err
		}
		if err != nil {
			log.Warn("primary search failed, escalating to fallback", "attempt", attempts, "error", err)
			break
		}

		violations := Validate(m, sol)
		if len(violations) == 0 {
			best = &sol
			break
		}
		for _, v := range violations {
			log.Warn("candidate rejected", "attempt", attempts, "violation", v.String())
		}
		p = p.Tighten()
	}

	if best == nil || best.Status != model.StatusOptimal {
		if ctx.Err() != nil {
			return model.Solution{}, model.ErrCancelled
		}

		fb := SolveFallback(m)
		if violations := Validate(m, fb); len(violations) > 0 {
			for _, v := range violations {
				log.Error("fallback produced invalid solution", "violation", v.String())
			}
			if best == nil {
				return model.Solution{}, &model.ViolationError{Violations: violations}
			}
		} else if best == nil {
			fb.Degraded = true
			log.Info("using fallback solution", "placed", fb.PlacedCount(), "unplaced", len(fb.Unplaced))
			best = &fb
		} else if m.BetterSolution(fb, *best) {
			log.Debug("fallback beat primary incumbent", "primary", best.Solver)
			best = &fb
		}
	}

	best.Attempts = attempts
	best.Elapsed = time.Since(start)
	if len(best.Placements) == 0 {
		best.Status = model.StatusInfeasible
		best.Feasible = false
	}
	return *best, nil
}

// SolveProblem validates a problem and solves it.
func (s *Solver) SolveProblem(ctx context.Context, p Problem) (model.Solution, error) {
	m, err := NewModel(p, s.settings)
	if err != nil {
		return model.Solution{}, err
	}
	return s.Solve(ctx, m)
}
