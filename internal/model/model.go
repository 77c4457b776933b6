package model

import (
	"time"

	"github.com/google/uuid"
)

// Part is a single work order to be cured. It is immutable once handed to a solve.
type Part struct {
	ID           string  `json:"id" yaml:"id"`
	Label        string  `json:"label" yaml:"label"`
	Width        float64 `json:"width" yaml:"width"`   // mm
	Height       float64 `json:"height" yaml:"height"` // mm
	Rotatable    bool    `json:"rotatable" yaml:"rotatable"`
	Weight       float64 `json:"weight" yaml:"weight"` // kg
	Group        string  `json:"group" yaml:"group"`   // cure cycle / process group tag
	SolidSupport bool    `json:"solid_support" yaml:"solid_support"`
	Thickness    float64 `json:"thickness,omitempty" yaml:"thickness,omitempty"` // mm, 0 = flat
}

func NewPart(label string, w, h, weight float64, group string) Part {
	return Part{
		ID:        uuid.New().String()[:8],
		Label:     label,
		Width:     w,
		Height:    h,
		Rotatable: true,
		Weight:    weight,
		Group:     group,
	}
}

// Area returns the footprint area in square mm.
func (p Part) Area() float64 {
	return p.Width * p.Height
}

// Dims returns the footprint for the given orientation.
func (p Part) Dims(rotated bool) (w, h float64) {
	if rotated {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}

// Orientations lists the orientations a part may take. Square parts and
// non-rotatable parts only have the normal orientation.
func (p Part) Orientations() []bool {
	if p.Rotatable && p.Width != p.Height {
		return []bool{false, true}
	}
	return []bool{false}
}

// Zone is a rectangular keep-out area on the bed surface (clamps,
// thermocouple ports, vacuum connectors).
type Zone struct {
	Label  string  `json:"label" yaml:"label"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Stand (cavalletto) is an elevated support fixture giving a second level
// above a sub-rectangle of the bed. A stand carries at most one part.
type Stand struct {
	ID        string  `json:"id" yaml:"id"`
	X         float64 `json:"x" yaml:"x"`
	Y         float64 `json:"y" yaml:"y"`
	Width     float64 `json:"width" yaml:"width"`
	Length    float64 `json:"length" yaml:"length"`
	Elevation float64 `json:"elevation" yaml:"elevation"` // mm above the bed surface
}

// Area returns the stand top area in square mm.
func (s Stand) Area() float64 {
	return s.Width * s.Length
}

// Bed is the load surface of one autoclave.
type Bed struct {
	ID            string  `json:"id" yaml:"id"`
	Label         string  `json:"label" yaml:"label"`
	Width         float64 `json:"width" yaml:"width"`           // mm
	Height        float64 `json:"height" yaml:"height"`         // mm
	MaxWeight     float64 `json:"max_weight" yaml:"max_weight"` // kg, <= 0 unlimited
	MaxLines      int     `json:"max_lines" yaml:"max_lines"`   // distinct groups, <= 0 unlimited
	TwoLevel      bool    `json:"two_level" yaml:"two_level"`
	Stands        []Stand `json:"stands,omitempty" yaml:"stands,omitempty"`
	MaxStands     int     `json:"max_stands,omitempty" yaml:"max_stands,omitempty"`           // <= 0 all stands usable
	MaxLoadHeight float64 `json:"max_load_height,omitempty" yaml:"max_load_height,omitempty"` // mm, <= 0 unchecked
	Keepouts      []Zone  `json:"keepouts,omitempty" yaml:"keepouts,omitempty"`
}

func NewBed(label string, w, h, maxWeight float64, maxLines int) Bed {
	return Bed{
		ID:        uuid.New().String()[:8],
		Label:     label,
		Width:     w,
		Height:    h,
		MaxWeight: maxWeight,
		MaxLines:  maxLines,
	}
}

// Area returns the full bed area in square mm.
func (b Bed) Area() float64 {
	return b.Width * b.Height
}

// HasStands reports whether the stand level is active for this bed. A
// two-level bed without stands behaves as a single-level bed.
func (b Bed) HasStands() bool {
	return b.TwoLevel && len(b.Stands) > 0
}

// StandLimit returns how many stands may be loaded at once.
func (b Bed) StandLimit() int {
	if b.MaxStands <= 0 || b.MaxStands > len(b.Stands) {
		return len(b.Stands)
	}
	return b.MaxStands
}

// WeightAllows reports whether a total load of w fits the weight limit.
func (b Bed) WeightAllows(w float64) bool {
	return b.MaxWeight <= 0 || w <= b.MaxWeight+1e-9
}

// LinesAllow reports whether n distinct process groups fit the line limit.
func (b Bed) LinesAllow(n int) bool {
	return b.MaxLines <= 0 || n <= b.MaxLines
}

// Level identifies the plane a part rests on: 0 is the bed surface, k >= 1
// is the k-th stand of the bed.
type Level int

const LevelBase Level = 0

// IsStand reports whether the level is a stand level.
func (l Level) IsStand() bool {
	return l > LevelBase
}

// StandIndex returns the index into Bed.Stands for a stand level.
func (l Level) StandIndex() int {
	return int(l) - 1
}

// Placement is one part placed on one bed.
type Placement struct {
	PartID  string  `json:"part_id"`
	BedID   string  `json:"bed_id"`
	X       float64 `json:"x"` // mm from left edge
	Y       float64 `json:"y"` // mm from front edge
	Rotated bool    `json:"rotated"`
	Level   Level   `json:"level"`
	Width   float64 `json:"width"`  // placed width (after rotation)
	Height  float64 `json:"height"` // placed height (after rotation)
	Weight  float64 `json:"weight"`
	Group   string  `json:"group"`
}

// Area returns the covered area of the placement.
func (p Placement) Area() float64 {
	return p.Width * p.Height
}

// Dims returns the part's own footprint, undoing the placement rotation.
func (p Placement) Dims() (w, h float64) {
	if p.Rotated {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}

// Status describes the quality of a solution.
//
// StatusOptimal means the exact search exhausted its move space, in which
// every part sits at the lower-left corner of a maximal free rectangle
// (touching bed edges, keep-outs or other parts). It is optimal over those
// layouts, not a proof over every continuous position; Gap is 0 in that
// sense only.
type Status string

const (
	StatusOptimal    Status = "optimal"    // corner-point search space exhausted
	StatusFeasible   Status = "feasible"   // valid, optimality not proven
	StatusInfeasible Status = "infeasible" // no part could be placed
)

// SolverName identifies which solver produced a solution.
type SolverName string

const (
	SolverExact    SolverName = "exact"
	SolverGenetic  SolverName = "genetic"
	SolverFallback SolverName = "fallback"
)

// Solution is an ordered set of placements plus quality metadata.
type Solution struct {
	Placements []Placement   `json:"placements"`
	Unplaced   []string      `json:"unplaced,omitempty"`
	Status     Status        `json:"status"`
	Feasible   bool          `json:"feasible"`
	Gap        float64       `json:"gap"` // relative gap to the area upper bound, 0 when the corner-point search was exhausted
	Solver     SolverName    `json:"solver"`
	Attempts   int           `json:"attempts"`
	Degraded   bool          `json:"degraded"` // produced by the fallback after primary failure
	Elapsed    time.Duration `json:"elapsed"`
	// BedAreas holds the area of every bed the solution was computed for.
	BedAreas map[string]float64 `json:"bed_areas"`
}

// CoveredArea returns the total footprint area of all placements.
func (s Solution) CoveredArea() float64 {
	var total float64
	for _, p := range s.Placements {
		total += p.Area()
	}
	return total
}

// BedsUsed returns the ids of beds carrying at least one placement, in
// first-use order.
func (s Solution) BedsUsed() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range s.Placements {
		if !seen[p.BedID] {
			seen[p.BedID] = true
			ids = append(ids, p.BedID)
		}
	}
	return ids
}

// BedEfficiency returns covered area / bed area for one bed, as a fraction.
func (s Solution) BedEfficiency(bedID string) float64 {
	area := s.BedAreas[bedID]
	if area <= 0 {
		return 0
	}
	var covered float64
	for _, p := range s.Placements {
		if p.BedID == bedID {
			covered += p.Area()
		}
	}
	return covered / area
}

// Efficiency returns covered area over the area of the beds in use, as a fraction.
func (s Solution) Efficiency() float64 {
	var total float64
	for _, id := range s.BedsUsed() {
		total += s.BedAreas[id]
	}
	if total <= 0 {
		return 0
	}
	return s.CoveredArea() / total
}

// ForBed returns the placements on one bed.
func (s Solution) ForBed(bedID string) []Placement {
	var out []Placement
	for _, p := range s.Placements {
		if p.BedID == bedID {
			out = append(out, p)
		}
	}
	return out
}

// PlacedCount returns the number of placements.
func (s Solution) PlacedCount() int {
	return len(s.Placements)
}
