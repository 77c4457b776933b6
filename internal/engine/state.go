package engine

import (
	"maps"
	"sort"

	"github.com/piwi3910/curenest/internal/model"
)

// move is one candidate placement decision.
type move struct {
	part    int
	bed     int
	level   model.Level
	x, y    float64
	rotated bool
}

type bedState struct {
	weight  float64
	groups  map[string]int
	base    *freeSpace
	baseCap float64 // base area not yet covered
	stands  []int   // part index per stand, -1 when empty
	loaded  int
	baseIdx []int // placement indexes on the base level
}

// layout is a partial assignment of parts to beds and levels. Every move
// applied through it satisfies the capacity, line, level and geometry rules.
type layout struct {
	m          *Model
	beds       []bedState
	placements []model.Placement
	parts      []int // part index per placement
	placed     []bool
	covered    float64
}

func newLayout(m *Model) *layout {
	l := &layout{
		m:      m,
		beds:   make([]bedState, len(m.Beds)),
		placed: make([]bool, len(m.Parts)),
	}
	for bi, b := range m.Beds {
		st := bedState{
			groups:  make(map[string]int),
			base:    newFreeSpace(m.initial[bi], m.Settings.Spacing),
			baseCap: m.baseArea[bi],
		}
		if b.HasStands() {
			st.stands = make([]int, len(b.Stands))
			for k := range st.stands {
				st.stands[k] = -1
			}
		}
		l.beds[bi] = st
	}
	return l
}

func (l *layout) clone() *layout {
	c := &layout{
		m:          l.m,
		beds:       make([]bedState, len(l.beds)),
		placements: append([]model.Placement(nil), l.placements...),
		parts:      append([]int(nil), l.parts...),
		placed:     append([]bool(nil), l.placed...),
		covered:    l.covered,
	}
	for i, b := range l.beds {
		c.beds[i] = bedState{
			weight:  b.weight,
			groups:  maps.Clone(b.groups),
			base:    b.base.clone(),
			baseCap: b.baseCap,
			stands:  append([]int(nil), b.stands...),
			loaded:  b.loaded,
			baseIdx: append([]int(nil), b.baseIdx...),
		}
	}
	return c
}

// canHost checks the weight and process-line limits of a bed for one more part.
func (l *layout) canHost(pi, bi int) bool {
	p := l.m.Parts[pi]
	b := l.m.Beds[bi]
	st := &l.beds[bi]
	if !b.WeightAllows(st.weight + p.Weight) {
		return false
	}
	lines := len(st.groups)
	if _, ok := st.groups[p.Group]; !ok {
		lines++
	}
	return b.LinesAllow(lines)
}

// baseMoves lists base-level positions for a part on one bed, ordered by
// increasing y then x. limit caps the positions per orientation (<= 0: all).
// When orientations tie on position the earlier orientation wins.
func (l *layout) baseMoves(pi, bi int, orientations []bool, limit int) []move {
	p := l.m.Parts[pi]
	st := &l.beds[bi]
	var out []move
	for _, rot := range orientations {
		w, h := p.Dims(rot)
		n := 0
		for _, pt := range st.base.candidates(w, h, 0) {
			if !l.clearsLoadedStands(bi, rect{pt.x, pt.y, w, h}, p.Thickness) {
				continue
			}
			out = append(out, move{part: pi, bed: bi, level: model.LevelBase, x: pt.x, y: pt.y, rotated: rot})
			n++
			if limit > 0 && n >= limit {
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].y != out[j].y {
			return out[i].y < out[j].y
		}
		return out[i].x < out[j].x
	})
	return out
}

func (l *layout) clearsLoadedStands(bi int, r rect, thickness float64) bool {
	b := l.m.Beds[bi]
	for k, occupant := range l.beds[bi].stands {
		if occupant >= 0 && !clearsStand(b.Stands[k], r, thickness) {
			return false
		}
	}
	return true
}

// standMoves lists the free stands of a bed that can carry a part.
func (l *layout) standMoves(pi, bi int) []move {
	p := l.m.Parts[pi]
	b := l.m.Beds[bi]
	st := &l.beds[bi]
	if !b.HasStands() || p.SolidSupport || st.loaded >= b.StandLimit() {
		return nil
	}

	var out []move
	for k, s := range b.Stands {
		if st.stands[k] >= 0 || !heightAllows(b, s, p) {
			continue
		}
		rot, ok := standOrientation(p, s)
		if !ok || !l.baseClearsStand(bi, s) {
			continue
		}
		out = append(out, move{part: pi, bed: bi, level: model.Level(k + 1), x: s.X, y: s.Y, rotated: rot})
	}
	return out
}

// baseClearsStand checks that every base part under s is low enough for the
// stand to be loaded.
func (l *layout) baseClearsStand(bi int, s model.Stand) bool {
	for _, idx := range l.beds[bi].baseIdx {
		pl := l.placements[idx]
		thickness := l.m.Parts[l.parts[idx]].Thickness
		if !clearsStand(s, rect{pl.X, pl.Y, pl.Width, pl.Height}, thickness) {
			return false
		}
	}
	return true
}

// moves lists every candidate placement of a part across all beds, bed order
// first, base level before stands.
func (l *layout) moves(pi, limit int) []move {
	var out []move
	orient := l.m.Parts[pi].Orientations()
	for bi := range l.m.Beds {
		if !l.canHost(pi, bi) {
			continue
		}
		out = append(out, l.baseMoves(pi, bi, orient, limit)...)
		out = append(out, l.standMoves(pi, bi)...)
	}
	return out
}

// firstFit finds the first bed and level where a part fits. With byPosition
// the orientations compete on (y, x); otherwise the first orientation that
// fits anywhere on the base wins.
func (l *layout) firstFit(pi int, orientations []bool, byPosition bool) (move, bool) {
	for bi := range l.m.Beds {
		if !l.canHost(pi, bi) {
			continue
		}
		if byPosition {
			if mv := l.baseMoves(pi, bi, orientations, 1); len(mv) > 0 {
				return mv[0], true
			}
		} else {
			for _, rot := range orientations {
				if mv := l.baseMoves(pi, bi, []bool{rot}, 1); len(mv) > 0 {
					return mv[0], true
				}
			}
		}
		if mv := l.standMoves(pi, bi); len(mv) > 0 {
			return mv[0], true
		}
	}
	return move{}, false
}

func (l *layout) apply(mv move) {
	p := l.m.Parts[mv.part]
	b := l.m.Beds[mv.bed]
	st := &l.beds[mv.bed]
	w, h := p.Dims(mv.rotated)

	idx := len(l.placements)
	l.placements = append(l.placements, model.Placement{
		PartID:  p.ID,
		BedID:   b.ID,
		X:       mv.x,
		Y:       mv.y,
		Rotated: mv.rotated,
		Level:   mv.level,
		Width:   w,
		Height:  h,
		Weight:  p.Weight,
		Group:   p.Group,
	})
	l.parts = append(l.parts, mv.part)
	l.placed[mv.part] = true
	l.covered += w * h

	st.weight += p.Weight
	st.groups[p.Group]++
	if mv.level.IsStand() {
		st.stands[mv.level.StandIndex()] = mv.part
		st.loaded++
		return
	}
	st.base.occupy(mv.x, mv.y, w, h)
	st.baseCap -= w * h
	st.baseIdx = append(st.baseIdx, idx)
}

// restore re-applies placements of an earlier solution. Placements that do
// not match this model are skipped and reported false.
func (l *layout) restore(placements []model.Placement) bool {
	ok := true
	for _, pl := range placements {
		pi, known := l.m.partIndex[pl.PartID]
		bi, knownBed := l.m.bedIndex[pl.BedID]
		if !known || !knownBed || l.placed[pi] {
			ok = false
			continue
		}
		if pl.Level.IsStand() && pl.Level.StandIndex() >= len(l.beds[bi].stands) {
			ok = false
			continue
		}
		l.apply(move{part: pi, bed: bi, level: pl.Level, x: pl.X, y: pl.Y, rotated: pl.Rotated})
	}
	return ok
}

// freeCapacity bounds the area still coverable.
func (l *layout) freeCapacity() float64 {
	var total float64
	for bi, b := range l.m.Beds {
		st := &l.beds[bi]
		if st.baseCap > 0 {
			total += st.baseCap
		}
		if b.HasStands() {
			total += topStandArea(b.Stands, b.StandLimit()-st.loaded, st.stands)
		}
	}
	return total
}

func (l *layout) solution(solver model.SolverName) model.Solution {
	sol := model.Solution{
		Placements: append([]model.Placement(nil), l.placements...),
		Solver:     solver,
		BedAreas:   l.m.bedAreas(),
	}
	for i, p := range l.m.Parts {
		if !l.placed[i] {
			sol.Unplaced = append(sol.Unplaced, p.ID)
		}
	}
	sol.Status = model.StatusFeasible
	if len(l.m.Parts) > 0 && len(sol.Placements) == 0 {
		sol.Status = model.StatusInfeasible
	}
	sol.Feasible = sol.Status != model.StatusInfeasible
	return sol
}
