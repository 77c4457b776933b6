package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/curenest/internal/model"
)

func TestSolveFallback_BottomLeftPlacement(t *testing.T) {
	parts := []model.Part{testPart("p2", 40, 50), testPart("p1", 60, 50)}
	m := mustModel(t, parts, []model.Bed{testBed("B1", 100, 50)}, defaultTestSettings())

	sol := SolveFallback(m)

	require.Len(t, sol.Placements, 2)
	assert.Equal(t, "p1", sol.Placements[0].PartID)
	assert.Equal(t, 0.0, sol.Placements[0].X)
	assert.Equal(t, "p2", sol.Placements[1].PartID)
	assert.Equal(t, 60.0, sol.Placements[1].X)
	assert.Equal(t, 0.0, sol.Placements[1].Y)
	assert.Equal(t, model.SolverFallback, sol.Solver)
	assert.Empty(t, Validate(m, sol))
}

func TestSolveFallback_Deterministic(t *testing.T) {
	var parts []model.Part
	for i, d := range [][2]float64{{30, 20}, {25, 25}, {40, 10}, {15, 35}, {20, 20}, {30, 20}, {10, 10}} {
		parts = append(parts, testPart(string(rune('a'+i)), d[0], d[1]))
	}
	beds := []model.Bed{testBed("B1", 60, 60), testBed("B2", 50, 40)}

	first := SolveFallback(mustModel(t, parts, beds, defaultTestSettings()))
	for i := 0; i < 5; i++ {
		again := SolveFallback(mustModel(t, parts, beds, defaultTestSettings()))
		assert.Equal(t, first.Placements, again.Placements)
		assert.Equal(t, first.Unplaced, again.Unplaced)
	}
}

func TestSolveFallback_FirstBedInInputOrder(t *testing.T) {
	parts := []model.Part{testPart("a", 10, 10)}
	beds := []model.Bed{testBed("B2", 50, 50), testBed("B1", 100, 100)}
	m := mustModel(t, parts, beds, defaultTestSettings())

	sol := SolveFallback(m)
	require.Len(t, sol.Placements, 1)
	assert.Equal(t, "B2", sol.Placements[0].BedID)
}

func TestSolveFallback_BaseBeforeStand(t *testing.T) {
	bed := testBed("B1", 100, 100)
	bed.TwoLevel = true
	bed.Stands = []model.Stand{{ID: "S1", X: 50, Y: 50, Width: 50, Length: 50, Elevation: 100}}
	m := mustModel(t, []model.Part{testPart("a", 40, 40)}, []model.Bed{bed}, defaultTestSettings())

	sol := SolveFallback(m)
	require.Len(t, sol.Placements, 1)
	assert.Equal(t, model.LevelBase, sol.Placements[0].Level)
}

func TestSolveFallback_UsesStandWhenBaseIsFull(t *testing.T) {
	bed := testBed("B1", 100, 100)
	bed.TwoLevel = true
	bed.Stands = []model.Stand{{ID: "S1", X: 0, Y: 0, Width: 50, Length: 50, Elevation: 100}}
	parts := []model.Part{testPart("big", 100, 100), testPart("small", 40, 40)}
	m := mustModel(t, parts, []model.Bed{bed}, defaultTestSettings())

	sol := SolveFallback(m)
	require.Len(t, sol.Placements, 2)
	assert.Equal(t, model.Level(1), sol.Placements[1].Level)
	assert.Empty(t, Validate(m, sol))
}

func TestSolveFallback_ThickPartBlocksStand(t *testing.T) {
	bed := testBed("B1", 100, 100)
	bed.TwoLevel = true
	bed.Stands = []model.Stand{{ID: "S1", X: 0, Y: 0, Width: 50, Length: 50, Elevation: 20}}
	big := testPart("big", 100, 100)
	big.Thickness = 30
	parts := []model.Part{big, testPart("small", 40, 40)}
	m := mustModel(t, parts, []model.Bed{bed}, defaultTestSettings())

	sol := SolveFallback(m)
	assert.Equal(t, []string{"small"}, sol.Unplaced)
	assert.Empty(t, Validate(m, sol))
}

func TestSolveFallback_RotatesWhenNeeded(t *testing.T) {
	m := mustModel(t, []model.Part{testPart("a", 30, 80)}, []model.Bed{testBed("B1", 100, 50)}, defaultTestSettings())

	sol := SolveFallback(m)
	require.Len(t, sol.Placements, 1)
	assert.True(t, sol.Placements[0].Rotated)
	assert.Equal(t, 80.0, sol.Placements[0].Width)
}

func TestSolveFallback_InfeasibleWhenNothingFits(t *testing.T) {
	solid := testPart("solid", 40, 40)
	solid.SolidSupport = true
	m := mustModel(t, []model.Part{solid}, []model.Bed{standBed()}, defaultTestSettings())

	sol := SolveFallback(m)
	assert.Equal(t, model.StatusInfeasible, sol.Status)
	assert.False(t, sol.Feasible)
}

func TestExtendFallback_KeepsExistingPlacements(t *testing.T) {
	a, b := testPart("a", 50, 50), testPart("b", 50, 50)
	m := mustModel(t, []model.Part{a, b}, []model.Bed{testBed("B1", 100, 50)}, defaultTestSettings())

	base := model.Solution{Placements: []model.Placement{placeAt(a, "B1", 50, 0, false, 0)}}
	sol := ExtendFallback(m, base, []string{"b"})

	require.Len(t, sol.Placements, 2)
	assert.Equal(t, base.Placements[0], sol.Placements[0])
	assert.Equal(t, "b", sol.Placements[1].PartID)
	assert.Equal(t, 0.0, sol.Placements[1].X)
	assert.Empty(t, sol.Unplaced)
	assert.Empty(t, Validate(m, sol))
}
