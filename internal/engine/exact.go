package engine

import (
	"context"
	"time"

	"github.com/piwi3910/curenest/internal/model"
)

// exactSearch is a depth-first branch & bound over placement decisions. Parts
// are branched in the model order; each part either takes one of its
// candidate moves or stays unplaced.
type exactSearch struct {
	m        *Model
	p        Params
	ctx      context.Context
	deadline time.Time

	best      *layout
	bestScore score
	tie       bool

	// suffix[i] is the area of parts order[i:].
	suffix []float64

	nodes     int
	truncated bool // stopped by deadline, node cap or breadth
	cancelled bool
	complete  bool // every part placed and no tie-break to chase
}

func searchExact(ctx context.Context, m *Model, p Params) (model.Solution, error) {
	start := time.Now()
	e := &exactSearch{
		m:        m,
		p:        p,
		ctx:      ctx,
		deadline: start.Add(p.PrimaryBudget),
		tie:      m.tieMatters(),
		suffix:   make([]float64, len(m.order)+1),
	}
	for i := len(m.order) - 1; i >= 0; i-- {
		e.suffix[i] = e.suffix[i+1] + m.Parts[m.order[i]].Area()
	}

	root := newLayout(m)
	e.best = root
	e.bestScore = m.scoreOf(nil)
	e.dfs(root, 0)

	if e.cancelled {
		return model.Solution{}, model.ErrCancelled
	}

	sol := e.best.solution(model.SolverExact)
	sol.Elapsed = time.Since(start)
	// Optimal over the corner-point moves only.
	if !e.truncated {
		sol.Status = model.StatusOptimal
		sol.Gap = 0
		if len(m.Parts) > 0 && len(sol.Placements) == 0 {
			sol.Status = model.StatusInfeasible
		}
	} else if ub := m.upperBound(); ub > 0 {
		sol.Gap = (ub - e.bestScore.covered) / ub
	}
	sol.Feasible = sol.Status != model.StatusInfeasible
	return sol, nil
}

// halt polls the stop conditions. It runs at every expansion.
func (e *exactSearch) halt() bool {
	if e.cancelled || e.complete {
		return true
	}
	if e.ctx.Err() != nil {
		e.cancelled = true
		return true
	}
	if time.Now().After(e.deadline) || (e.p.NodeLimit > 0 && e.nodes >= e.p.NodeLimit) {
		e.truncated = true
		return true
	}
	return false
}

func (e *exactSearch) dfs(l *layout, depth int) {
	if e.halt() {
		return
	}
	e.nodes++

	if sc := e.m.scoreOf(l.placements); e.m.better(sc, e.bestScore) {
		e.best = l
		e.bestScore = sc
		if !e.tie && sc.covered >= e.m.totalArea-e.m.areaEps() {
			e.complete = true
			return
		}
	}
	if depth == len(e.m.order) {
		return
	}

	ub := l.covered + min(e.suffix[depth], l.freeCapacity())
	if !e.canImprove(ub) {
		return
	}

	pi := e.m.order[depth]
	moves := l.moves(pi, e.p.Breadth)
	if e.p.Breadth > 0 && !e.truncated && e.cutByBreadth(l, pi, len(moves)) {
		// Positions beyond the breadth were cut; the search is no longer exhaustive.
		e.truncated = true
	}
	for _, mv := range moves {
		child := l.clone()
		child.apply(mv)
		e.dfs(child, depth+1)
		if e.halt() {
			return
		}
	}
	e.dfs(l, depth+1)
}

func (e *exactSearch) canImprove(ub float64) bool {
	eps := e.m.areaEps()
	if e.tie {
		return ub >= e.bestScore.covered-eps
	}
	return ub > e.bestScore.covered+eps
}

// cutByBreadth reports whether the breadth limit hid any candidate move.
func (e *exactSearch) cutByBreadth(l *layout, pi, shown int) bool {
	return len(l.moves(pi, 0)) > shown
}
