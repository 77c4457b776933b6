package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/curenest/internal/model"
)

func kinds(vs []model.Violation) []model.ViolationKind {
	out := make([]model.ViolationKind, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Kind)
	}
	return out
}

func TestValidate_ValidSolution(t *testing.T) {
	a, b := testPart("a", 10, 10), testPart("b", 10, 10)
	m := mustModel(t, []model.Part{a, b}, []model.Bed{testBed("B1", 100, 100)}, defaultTestSettings())

	sol := model.Solution{Placements: []model.Placement{
		placeAt(a, "B1", 0, 0, false, 0),
		placeAt(b, "B1", 10, 0, false, 0),
	}}
	assert.Empty(t, Validate(m, sol))
}

func TestValidate_Overlap(t *testing.T) {
	a, b := testPart("a", 10, 10), testPart("b", 10, 10)
	m := mustModel(t, []model.Part{a, b}, []model.Bed{testBed("B1", 100, 100)}, defaultTestSettings())

	sol := model.Solution{Placements: []model.Placement{
		placeAt(a, "B1", 0, 0, false, 0),
		placeAt(b, "B1", 5, 5, false, 0),
	}}
	vs := Validate(m, sol)
	require.Len(t, vs, 1)
	assert.Equal(t, model.ViolationOverlap, vs[0].Kind)
	assert.Equal(t, "a", vs[0].PartID)
	assert.Equal(t, "b", vs[0].Other)
}

func TestValidate_SpacingClearance(t *testing.T) {
	settings := defaultTestSettings()
	settings.Spacing = 2
	a, b := testPart("a", 10, 10), testPart("b", 10, 10)
	m := mustModel(t, []model.Part{a, b}, []model.Bed{testBed("B1", 100, 100)}, settings)

	tooClose := model.Solution{Placements: []model.Placement{
		placeAt(a, "B1", 0, 0, false, 0),
		placeAt(b, "B1", 11, 0, false, 0),
	}}
	assert.Equal(t, []model.ViolationKind{model.ViolationOverlap}, kinds(Validate(m, tooClose)))

	clear := model.Solution{Placements: []model.Placement{
		placeAt(a, "B1", 0, 0, false, 0),
		placeAt(b, "B1", 12, 0, false, 0),
	}}
	assert.Empty(t, Validate(m, clear))
}

func TestValidate_DifferentLevelsMayOverlap(t *testing.T) {
	bed := testBed("B1", 100, 100)
	bed.TwoLevel = true
	bed.Stands = []model.Stand{{ID: "S1", X: 0, Y: 0, Width: 50, Length: 50, Elevation: 100}}
	a, b := testPart("a", 40, 40), testPart("b", 40, 40)
	m := mustModel(t, []model.Part{a, b}, []model.Bed{bed}, defaultTestSettings())

	sol := model.Solution{Placements: []model.Placement{
		placeAt(a, "B1", 0, 0, false, 0),
		placeAt(b, "B1", 0, 0, false, 1),
	}}
	assert.Empty(t, Validate(m, sol))
}

func TestValidate_OutOfBounds(t *testing.T) {
	settings := defaultTestSettings()
	settings.EdgeMargin = 5
	a := testPart("a", 10, 10)
	m := mustModel(t, []model.Part{a}, []model.Bed{testBed("B1", 100, 100)}, settings)

	for _, pl := range []model.Placement{
		placeAt(a, "B1", 91, 10, false, 0),
		placeAt(a, "B1", 2, 10, false, 0),
	} {
		vs := Validate(m, model.Solution{Placements: []model.Placement{pl}})
		assert.Equal(t, []model.ViolationKind{model.ViolationOutOfBounds}, kinds(vs))
	}
}

func TestValidate_RotationNotAllowed(t *testing.T) {
	a := testPart("a", 10, 20)
	a.Rotatable = false
	m := mustModel(t, []model.Part{a}, []model.Bed{testBed("B1", 100, 100)}, defaultTestSettings())

	vs := Validate(m, model.Solution{Placements: []model.Placement{placeAt(a, "B1", 0, 0, true, 0)}})
	assert.Contains(t, kinds(vs), model.ViolationOutOfBounds)
}

func TestValidate_Keepout(t *testing.T) {
	bed := testBed("B1", 100, 100)
	bed.Keepouts = []model.Zone{{Label: "clamp", X: 0, Y: 0, Width: 20, Height: 20}}
	a := testPart("a", 10, 10)
	m := mustModel(t, []model.Part{a}, []model.Bed{bed}, defaultTestSettings())

	vs := Validate(m, model.Solution{Placements: []model.Placement{placeAt(a, "B1", 5, 5, false, 0)}})
	require.Len(t, vs, 1)
	assert.Equal(t, model.ViolationOverlap, vs[0].Kind)
	assert.Equal(t, "clamp", vs[0].Other)
}

func TestValidate_Capacity(t *testing.T) {
	bed := testBed("B1", 100, 100)
	bed.MaxWeight = 5
	bed.MaxLines = 1
	a, b := testPart("a", 10, 10), testPart("b", 10, 10)
	a.Weight, b.Weight = 3, 3
	b.Group = "other"
	m := mustModel(t, []model.Part{a, b}, []model.Bed{bed}, defaultTestSettings())

	vs := Validate(m, model.Solution{Placements: []model.Placement{
		placeAt(a, "B1", 0, 0, false, 0),
		placeAt(b, "B1", 20, 0, false, 0),
	}})
	assert.Equal(t, []model.ViolationKind{model.ViolationCapacity, model.ViolationCapacity}, kinds(vs))
}

func TestValidate_DuplicateAssignment(t *testing.T) {
	a := testPart("a", 10, 10)
	m := mustModel(t, []model.Part{a}, []model.Bed{testBed("B1", 100, 100), testBed("B2", 100, 100)}, defaultTestSettings())

	twice := model.Solution{Placements: []model.Placement{
		placeAt(a, "B1", 0, 0, false, 0),
		placeAt(a, "B2", 0, 0, false, 0),
	}}
	assert.Equal(t, []model.ViolationKind{model.ViolationDuplicate}, kinds(Validate(m, twice)))

	both := model.Solution{
		Placements: []model.Placement{placeAt(a, "B1", 0, 0, false, 0)},
		Unplaced:   []string{"a"},
	}
	assert.Equal(t, []model.ViolationKind{model.ViolationDuplicate}, kinds(Validate(m, both)))

	unknown := model.Solution{
		Placements: []model.Placement{placeAt(testPart("ghost", 1, 1), "B1", 0, 0, false, 0)},
		Unplaced:   []string{"a"},
	}
	assert.Equal(t, []model.ViolationKind{model.ViolationDuplicate}, kinds(Validate(m, unknown)))
}

func TestValidate_UnsupportedLevel(t *testing.T) {
	a := testPart("a", 10, 10)
	m := mustModel(t, []model.Part{a}, []model.Bed{testBed("B1", 100, 100)}, defaultTestSettings())

	vs := Validate(m, model.Solution{Placements: []model.Placement{placeAt(a, "B1", 0, 0, false, 2)}})
	assert.Equal(t, []model.ViolationKind{model.ViolationUnsupportedLevel}, kinds(vs))
}

func TestValidate_SolidSupportOnStand(t *testing.T) {
	bed := standBed()
	a := testPart("a", 40, 40)
	a.SolidSupport = true
	m := mustModel(t, []model.Part{a}, []model.Bed{bed}, defaultTestSettings())

	vs := Validate(m, model.Solution{Placements: []model.Placement{placeAt(a, "B1", 0, 0, false, 1)}})
	assert.Equal(t, []model.ViolationKind{model.ViolationUnsupportedLevel}, kinds(vs))
}

func TestValidate_BasePartUnderLoadedStand(t *testing.T) {
	bed := testBed("B1", 100, 100)
	bed.TwoLevel = true
	bed.Stands = []model.Stand{{ID: "S1", X: 0, Y: 0, Width: 50, Length: 50, Elevation: 20}}
	top := testPart("top", 40, 40)
	under := testPart("under", 30, 30)
	under.Thickness = 30
	m := mustModel(t, []model.Part{top, under}, []model.Bed{bed}, defaultTestSettings())

	vs := Validate(m, model.Solution{Placements: []model.Placement{
		placeAt(top, "B1", 0, 0, false, 1),
		placeAt(under, "B1", 0, 0, false, 0),
	}})
	require.Len(t, vs, 1)
	assert.Equal(t, model.ViolationUnsupportedLevel, vs[0].Kind)
	assert.Equal(t, "under", vs[0].PartID)
}

func TestValidate_StandFootprint(t *testing.T) {
	bed := testBed("B1", 100, 100)
	bed.TwoLevel = true
	bed.Stands = []model.Stand{{ID: "S1", X: 0, Y: 0, Width: 50, Length: 50, Elevation: 100}}
	a := testPart("a", 60, 40)
	m := mustModel(t, []model.Part{a}, []model.Bed{bed}, defaultTestSettings())

	vs := Validate(m, model.Solution{Placements: []model.Placement{placeAt(a, "B1", 0, 0, false, 1)}})
	assert.Equal(t, []model.ViolationKind{model.ViolationOutOfBounds}, kinds(vs))
}

func TestValidate_MissingPart(t *testing.T) {
	a, b := testPart("a", 10, 10), testPart("b", 10, 10)
	m := mustModel(t, []model.Part{a, b}, []model.Bed{testBed("B1", 100, 100)}, defaultTestSettings())

	dropped := model.Solution{Placements: []model.Placement{placeAt(a, "B1", 0, 0, false, 0)}}
	vs := Validate(m, dropped)
	require.Len(t, vs, 1)
	assert.Equal(t, model.ViolationMissing, vs[0].Kind)
	assert.Equal(t, "b", vs[0].PartID)

	accounted := model.Solution{
		Placements: []model.Placement{placeAt(a, "B1", 0, 0, false, 0)},
		Unplaced:   []string{"b"},
	}
	assert.Empty(t, Validate(m, accounted))

	none := model.Solution{Unplaced: []string{"a", "b"}}
	assert.Empty(t, Validate(m, none))
}
