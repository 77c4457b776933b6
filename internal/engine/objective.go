package engine

import (
	"math"

	"github.com/piwi3910/curenest/internal/model"
)

// score ranks solutions: covered area first, then the objective tie-break.
type score struct {
	covered float64
	tie     float64
}

func (m *Model) areaEps() float64 {
	return 1e-9 * math.Max(1, m.totalArea)
}

// better reports whether a beats b.
func (m *Model) better(a, b score) bool {
	eps := m.areaEps()
	if a.covered > b.covered+eps {
		return true
	}
	if a.covered < b.covered-eps {
		return false
	}
	return a.tie > b.tie+1e-12
}

// tieMatters reports whether the tie-break can separate two solutions with
// equal covered area.
func (m *Model) tieMatters() bool {
	obj := m.Settings.Objective
	return len(m.Beds) > 1 && (obj.BedWeight > 0 || obj.EfficiencyWeight > 0)
}

// scoreOf evaluates a set of placements under the model's objective. The
// tie-break rewards beds left unused and the best single-bed efficiency,
// both normalized to [0, 1].
func (m *Model) scoreOf(placements []model.Placement) score {
	perBed := make(map[string]float64, len(m.Beds))
	var covered float64
	for _, p := range placements {
		perBed[p.BedID] += p.Area()
		covered += p.Area()
	}

	var s score
	s.covered = covered
	if len(m.Beds) == 0 {
		return s
	}

	obj := m.Settings.Objective
	unused := float64(len(m.Beds)-len(perBed)) / float64(len(m.Beds))

	var bestEff float64
	for _, b := range m.Beds {
		if area := perBed[b.ID]; area > 0 && b.Area() > 0 {
			bestEff = math.Max(bestEff, area/b.Area())
		}
	}
	s.tie = obj.BedWeight*unused + obj.EfficiencyWeight*bestEff
	return s
}

// BetterSolution reports whether a ranks above b for this model.
func (m *Model) BetterSolution(a, b model.Solution) bool {
	return m.better(m.scoreOf(a.Placements), m.scoreOf(b.Placements))
}
