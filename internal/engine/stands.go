package engine

import "github.com/piwi3910/curenest/internal/model"

// standOrientation picks an orientation in which p fits on top of s,
// preferring the normal one.
func standOrientation(p model.Part, s model.Stand) (rotated bool, ok bool) {
	for _, rot := range p.Orientations() {
		w, h := p.Dims(rot)
		if w <= s.Width+tol && h <= s.Length+tol {
			return rot, true
		}
	}
	return false, false
}

func standRect(s model.Stand) rect {
	return rect{x: s.X, y: s.Y, w: s.Width, h: s.Length}
}

// heightAllows checks the load height of a part resting on a stand.
func heightAllows(b model.Bed, s model.Stand, p model.Part) bool {
	return b.MaxLoadHeight <= 0 || s.Elevation+p.Thickness <= b.MaxLoadHeight+tol
}

// clearsStand reports whether a base-level part of the given thickness at r
// can sit under a loaded stand s.
func clearsStand(s model.Stand, r rect, thickness float64) bool {
	return !rectsOverlap(standRect(s), r) || thickness <= s.Elevation+tol
}
