package engine

import (
	"sort"

	"github.com/piwi3910/curenest/internal/model"
)

// tol absorbs float noise in geometric comparisons (mm).
const tol = 0.001

type rect struct {
	x, y, w, h float64
}

func (r rect) area() float64 {
	return r.w * r.h
}

type point struct {
	x, y float64
}

// freeSpace tracks the maximal free rectangles of one bed surface. Every
// placement splits all free rectangles it intersects, so two placements can
// never share area: for any pair at least one separating axis holds.
// Placed footprints are inflated by spacing on the right and rear edges.
type freeSpace struct {
	rects   []rect
	spacing float64
}

func newFreeSpace(initial []rect, spacing float64) *freeSpace {
	rects := make([]rect, len(initial))
	copy(rects, initial)
	return &freeSpace{rects: rects, spacing: spacing}
}

func (fs *freeSpace) clone() *freeSpace {
	return newFreeSpace(fs.rects, fs.spacing)
}

// candidates returns the bottom-left corners of free rectangles that can take
// a w x h footprint, ordered by increasing y then x. A limit <= 0 returns all.
func (fs *freeSpace) candidates(w, h float64, limit int) []point {
	wk := w + fs.spacing
	hk := h + fs.spacing

	var pts []point
	for _, r := range fs.rects {
		if wk <= r.w+tol && hk <= r.h+tol {
			pts = append(pts, point{r.x, r.y})
		}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].y != pts[j].y {
			return pts[i].y < pts[j].y
		}
		return pts[i].x < pts[j].x
	})

	// Drop duplicate corners produced by overlapping maximal rects.
	out := pts[:0]
	for i, p := range pts {
		if i > 0 && p == pts[i-1] {
			continue
		}
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// bottomLeft returns the lowest, then leftmost, position for a w x h footprint.
func (fs *freeSpace) bottomLeft(w, h float64) (point, bool) {
	pts := fs.candidates(w, h, 1)
	if len(pts) == 0 {
		return point{}, false
	}
	return pts[0], true
}

// occupy marks a w x h footprint at (x, y) as used.
func (fs *freeSpace) occupy(x, y, w, h float64) {
	placed := rect{x: x, y: y, w: w + fs.spacing, h: h + fs.spacing}
	var next []rect

	for _, r := range fs.rects {
		if !rectsOverlap(r, placed) {
			next = append(next, r)
			continue
		}

		// Left strip (full height of the original rect)
		if placed.x > r.x+tol {
			next = append(next, rect{x: r.x, y: r.y, w: placed.x - r.x, h: r.h})
		}
		// Right strip
		if placed.x+placed.w < r.x+r.w-tol {
			next = append(next, rect{
				x: placed.x + placed.w, y: r.y,
				w: (r.x + r.w) - (placed.x + placed.w), h: r.h,
			})
		}
		// Front strip (full width of the original rect)
		if placed.y > r.y+tol {
			next = append(next, rect{x: r.x, y: r.y, w: r.w, h: placed.y - r.y})
		}
		// Rear strip
		if placed.y+placed.h < r.y+r.h-tol {
			next = append(next, rect{
				x: r.x, y: placed.y + placed.h,
				w: r.w, h: (r.y + r.h) - (placed.y + placed.h),
			})
		}
	}

	fs.rects = pruneContained(next)
}

// rectsOverlap returns true if two rectangles overlap (not just touch).
func rectsOverlap(a, b rect) bool {
	return a.x < b.x+b.w-tol && a.x+a.w > b.x+tol &&
		a.y < b.y+b.h-tol && a.y+a.h > b.y+tol
}

// pruneContained removes any rect that is fully contained within another.
// Of two identical rects only the first is kept.
func pruneContained(rects []rect) []rect {
	if len(rects) <= 1 {
		return rects
	}
	kept := make([]rect, 0, len(rects))
	for i, a := range rects {
		contained := false
		for j, b := range rects {
			if i == j || !containsRect(b, a) {
				continue
			}
			if containsRect(a, b) && j > i {
				continue
			}
			contained = true
			break
		}
		if !contained {
			kept = append(kept, a)
		}
	}
	return kept
}

// containsRect returns true if outer fully contains inner.
func containsRect(outer, inner rect) bool {
	return outer.x <= inner.x+tol && outer.y <= inner.y+tol &&
		outer.x+outer.w >= inner.x+inner.w-tol &&
		outer.y+outer.h >= inner.y+inner.h-tol
}

// keepoutFree returns the maximal free rectangles of a base rectangle with
// keep-out zones taken out. Zones are not inflated by spacing.
func keepoutFree(base rect, zones []model.Zone) []rect {
	fs := newFreeSpace([]rect{base}, 0)
	for _, z := range zones {
		fs.occupy(z.X, z.Y, z.Width, z.Height)
	}
	var out []rect
	for _, r := range fs.rects {
		if r.w > tol && r.h > tol {
			out = append(out, r)
		}
	}
	return out
}

// subtractZones removes keep-out zones from a base rectangle and returns the
// remaining disjoint free rectangles. Their areas sum to the free area.
func subtractZones(base rect, zones []model.Zone) []rect {
	free := []rect{base}
	for _, z := range zones {
		zr := rect{x: z.X, y: z.Y, w: z.Width, h: z.Height}
		var next []rect
		for _, f := range free {
			next = append(next, subtractRect(f, zr)...)
		}
		free = next
	}

	var out []rect
	for _, r := range free {
		if r.w > tol && r.h > tol {
			out = append(out, r)
		}
	}
	return out
}

// subtractRect subtracts one rectangle from another, returning up to four
// disjoint rectangles.
func subtractRect(base, sub rect) []rect {
	if !rectsOverlap(base, sub) {
		return []rect{base}
	}

	ix := max(base.x, sub.x)
	iy := max(base.y, sub.y)
	ixEnd := min(base.x+base.w, sub.x+sub.w)
	iyEnd := min(base.y+base.h, sub.y+sub.h)

	var out []rect
	// Left portion
	if ix > base.x {
		out = append(out, rect{x: base.x, y: base.y, w: ix - base.x, h: base.h})
	}
	// Right portion
	if ixEnd < base.x+base.w {
		out = append(out, rect{x: ixEnd, y: base.y, w: base.x + base.w - ixEnd, h: base.h})
	}
	// Front portion between left and right
	if iy > base.y {
		out = append(out, rect{x: ix, y: base.y, w: ixEnd - ix, h: iy - base.y})
	}
	// Rear portion
	if iyEnd < base.y+base.h {
		out = append(out, rect{x: ix, y: iyEnd, w: ixEnd - ix, h: base.y + base.h - iyEnd})
	}
	return out
}
