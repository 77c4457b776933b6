package engine

import (
	"math"
	"sort"

	"github.com/piwi3910/curenest/internal/model"
)

// Problem is the raw input of a nesting solve.
type Problem struct {
	Parts []model.Part `json:"parts" yaml:"parts"`
	Beds  []model.Bed  `json:"beds" yaml:"beds"`
}

// Model is a validated problem bound to the settings it is solved under.
// It is read-only once built and safe to share between goroutines.
type Model struct {
	Parts    []model.Part
	Beds     []model.Bed
	Settings model.Settings

	partIndex map[string]int
	bedIndex  map[string]int

	// order is the deterministic placement order: area desc, weight desc, id asc.
	order []int
	// initial holds the free base rectangles per bed after margins and keep-outs.
	initial   [][]rect
	baseArea  []float64
	totalArea float64
}

// NewModel validates a problem and prepares it for solving. Every part must
// fit at least one bed (ignoring weight, lines and keep-outs); otherwise an
// *model.InstanceError is returned.
func NewModel(p Problem, settings model.Settings) (*Model, error) {
	return buildModel(p.Parts, p.Beds, settings, true)
}

// Restrict builds a sub-model over a subset of parts and beds. Parts that fit
// none of the given beds are kept and simply stay unplaced.
func (m *Model) Restrict(partIDs, bedIDs []string) *Model {
	parts := make([]model.Part, 0, len(partIDs))
	for _, id := range partIDs {
		if i, ok := m.partIndex[id]; ok {
			parts = append(parts, m.Parts[i])
		}
	}
	beds := make([]model.Bed, 0, len(bedIDs))
	for _, id := range bedIDs {
		if i, ok := m.bedIndex[id]; ok {
			beds = append(beds, m.Beds[i])
		}
	}
	sub, _ := buildModel(parts, beds, m.Settings, false)
	return sub
}

func buildModel(parts []model.Part, beds []model.Bed, settings model.Settings, strict bool) (*Model, error) {
	if settings.Spacing < 0 || settings.EdgeMargin < 0 {
		return nil, &model.InstanceError{Reason: "spacing and edge margin must not be negative"}
	}

	m := &Model{
		Parts:     parts,
		Beds:      beds,
		Settings:  settings,
		partIndex: make(map[string]int, len(parts)),
		bedIndex:  make(map[string]int, len(beds)),
	}

	for i, b := range beds {
		if strict {
			if err := validateBed(b, settings.EdgeMargin); err != nil {
				return nil, err
			}
			if _, dup := m.bedIndex[b.ID]; dup {
				return nil, &model.InstanceError{BedID: b.ID, Reason: "duplicate bed id"}
			}
		}
		m.bedIndex[b.ID] = i

		mg := settings.EdgeMargin
		base := rect{
			x: mg, y: mg,
			w: b.Width - 2*mg + settings.Spacing,
			h: b.Height - 2*mg + settings.Spacing,
		}
		var area float64
		for _, r := range subtractZones(base, b.Keepouts) {
			area += r.area()
		}
		m.initial = append(m.initial, keepoutFree(base, b.Keepouts))
		m.baseArea = append(m.baseArea, area)
	}

	if strict && len(parts) > 0 && len(beds) == 0 {
		return nil, &model.InstanceError{Reason: "no beds available"}
	}

	for i, p := range parts {
		if strict {
			if p.ID == "" {
				return nil, &model.InstanceError{Reason: "part without id"}
			}
			if _, dup := m.partIndex[p.ID]; dup {
				return nil, &model.InstanceError{PartID: p.ID, Reason: "duplicate part id"}
			}
			if p.Width <= 0 || p.Height <= 0 {
				return nil, &model.InstanceError{PartID: p.ID, Reason: "dimensions must be positive"}
			}
			if p.Weight < 0 || p.Thickness < 0 {
				return nil, &model.InstanceError{PartID: p.ID, Reason: "weight and thickness must not be negative"}
			}
			if !m.fitsAnyBed(p) {
				return nil, &model.InstanceError{PartID: p.ID, Reason: "fits no bed in any allowed orientation"}
			}
		}
		m.partIndex[p.ID] = i
		m.totalArea += p.Area()
	}

	m.order = make([]int, len(parts))
	for i := range m.order {
		m.order[i] = i
	}
	sort.SliceStable(m.order, func(a, b int) bool {
		pa, pb := parts[m.order[a]], parts[m.order[b]]
		if pa.Area() != pb.Area() {
			return pa.Area() > pb.Area()
		}
		if pa.Weight != pb.Weight {
			return pa.Weight > pb.Weight
		}
		return pa.ID < pb.ID
	})

	return m, nil
}

func validateBed(b model.Bed, margin float64) error {
	if b.ID == "" {
		return &model.InstanceError{Reason: "bed without id"}
	}
	if b.Width <= 0 || b.Height <= 0 {
		return &model.InstanceError{BedID: b.ID, Reason: "dimensions must be positive"}
	}
	if b.Width-2*margin <= 0 || b.Height-2*margin <= 0 {
		return &model.InstanceError{BedID: b.ID, Reason: "edge margin leaves no usable area"}
	}
	for _, s := range b.Stands {
		if s.Width <= 0 || s.Length <= 0 || s.Elevation < 0 {
			return &model.InstanceError{BedID: b.ID, Reason: "stand " + s.ID + " has invalid dimensions"}
		}
		if s.X < 0 || s.Y < 0 || s.X+s.Width > b.Width+tol || s.Y+s.Length > b.Height+tol {
			return &model.InstanceError{BedID: b.ID, Reason: "stand " + s.ID + " lies outside the bed"}
		}
	}
	for _, z := range b.Keepouts {
		if z.Width <= 0 || z.Height <= 0 {
			return &model.InstanceError{BedID: b.ID, Reason: "keep-out " + z.Label + " has invalid dimensions"}
		}
	}
	return nil
}

// fitsAnyBed reports whether a part's footprint fits the usable area of some
// bed, or some stand top when it may rest on a stand.
func (m *Model) fitsAnyBed(p model.Part) bool {
	mg := m.Settings.EdgeMargin
	for _, b := range m.Beds {
		for _, rot := range p.Orientations() {
			w, h := p.Dims(rot)
			if w <= b.Width-2*mg+tol && h <= b.Height-2*mg+tol {
				return true
			}
		}
		if !b.HasStands() || p.SolidSupport {
			continue
		}
		for _, s := range b.Stands {
			if _, ok := standOrientation(p, s); ok {
				return true
			}
		}
	}
	return false
}

// Size summarizes the instance for the performance optimizer.
func (m *Model) Size() InstanceSize {
	levels := 0
	for _, b := range m.Beds {
		levels++
		if b.HasStands() {
			levels += len(b.Stands)
		}
	}
	return InstanceSize{Parts: len(m.Parts), Beds: len(m.Beds), Levels: levels}
}

// Levels lists the levels available on a bed, base first.
func (m *Model) Levels(bi int) []model.Level {
	levels := []model.Level{model.LevelBase}
	if m.Beds[bi].HasStands() {
		for k := range m.Beds[bi].Stands {
			levels = append(levels, model.Level(k+1))
		}
	}
	return levels
}

// PartByID returns the part with the given id.
func (m *Model) PartByID(id string) (model.Part, bool) {
	i, ok := m.partIndex[id]
	if !ok {
		return model.Part{}, false
	}
	return m.Parts[i], true
}

// BedByID returns the bed with the given id.
func (m *Model) BedByID(id string) (model.Bed, bool) {
	i, ok := m.bedIndex[id]
	if !ok {
		return model.Bed{}, false
	}
	return m.Beds[i], true
}

// TotalPartArea returns the summed footprint area of all parts.
func (m *Model) TotalPartArea() float64 {
	return m.totalArea
}

// capacity is an upper bound on the area the beds could ever cover.
func (m *Model) capacity() float64 {
	var total float64
	for bi, b := range m.Beds {
		total += m.baseArea[bi]
		if b.HasStands() {
			total += topStandArea(b.Stands, b.StandLimit(), nil)
		}
	}
	return total
}

// upperBound is the best covered area any solution could reach.
func (m *Model) upperBound() float64 {
	return math.Min(m.totalArea, m.capacity())
}

func (m *Model) bedAreas() map[string]float64 {
	areas := make(map[string]float64, len(m.Beds))
	for _, b := range m.Beds {
		areas[b.ID] = b.Area()
	}
	return areas
}

// topStandArea sums the areas of the n largest stands not marked as taken.
func topStandArea(stands []model.Stand, n int, taken []int) float64 {
	var areas []float64
	for i, s := range stands {
		if taken != nil && taken[i] >= 0 {
			continue
		}
		areas = append(areas, s.Area())
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(areas)))
	var total float64
	for i := 0; i < n && i < len(areas); i++ {
		total += areas[i]
	}
	return total
}
