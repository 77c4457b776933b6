package engine

import "github.com/piwi3910/curenest/internal/model"

// SolveFallback runs the deterministic first-fit heuristic. Parts are taken
// by area descending, then weight descending, then id; each goes to the
// first bed in input order and the first level (base before stands) where
// every constraint holds, at the lowest then leftmost free position. The
// result depends only on the model: identical inputs give identical output.
func SolveFallback(m *Model) model.Solution {
	l := newLayout(m)
	fillFirstFit(l, m.order)
	sol := l.solution(model.SolverFallback)
	if len(m.Parts) == 0 {
		sol.Status = model.StatusOptimal
	}
	if ub := m.upperBound(); ub > 0 {
		sol.Gap = (ub - l.covered) / ub
	}
	return sol
}

// ExtendFallback keeps the placements of base and places the listed parts
// into whatever room is left, in the fallback order.
func ExtendFallback(m *Model, base model.Solution, partIDs []string) model.Solution {
	l := newLayout(m)
	l.restore(base.Placements)

	want := make(map[string]bool, len(partIDs))
	for _, id := range partIDs {
		want[id] = true
	}
	var order []int
	for _, pi := range m.order {
		if want[m.Parts[pi].ID] && !l.placed[pi] {
			order = append(order, pi)
		}
	}
	fillFirstFit(l, order)

	sol := l.solution(model.SolverFallback)
	sol.Attempts = base.Attempts
	return sol
}

func fillFirstFit(l *layout, order []int) {
	for _, pi := range order {
		if mv, ok := l.firstFit(pi, l.m.Parts[pi].Orientations(), true); ok {
			l.apply(mv)
		}
	}
}
