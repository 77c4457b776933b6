package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piwi3910/curenest/internal/model"
)

func defaultTestSettings() model.Settings {
	s := model.DefaultSettings()
	// Simplify for testing: no spacing, no margin, short budget
	s.TimeBudget = 2 * time.Second
	s.Spacing = 0
	s.EdgeMargin = 0
	s.Workers = 2
	return s
}

func testBed(id string, w, h float64) model.Bed {
	return model.Bed{ID: id, Label: id, Width: w, Height: h}
}

func testPart(id string, w, h float64) model.Part {
	return model.Part{ID: id, Label: id, Width: w, Height: h, Rotatable: true, Weight: 1, Group: "G1"}
}

func mustModel(t *testing.T, parts []model.Part, beds []model.Bed, settings model.Settings) *Model {
	t.Helper()
	m, err := NewModel(Problem{Parts: parts, Beds: beds}, settings)
	require.NoError(t, err)
	return m
}

// placeAt builds a placement for a part with its footprint taken from the part.
func placeAt(p model.Part, bedID string, x, y float64, rotated bool, level model.Level) model.Placement {
	w, h := p.Dims(rotated)
	return model.Placement{
		PartID: p.ID, BedID: bedID, X: x, Y: y, Rotated: rotated, Level: level,
		Width: w, Height: h, Weight: p.Weight, Group: p.Group,
	}
}

// standBed is a two-level bed whose whole base is blocked, leaving only
// its single stand.
func standBed() model.Bed {
	b := testBed("B1", 100, 100)
	b.TwoLevel = true
	b.Stands = []model.Stand{{ID: "S1", X: 0, Y: 0, Width: 50, Length: 50, Elevation: 200}}
	b.Keepouts = []model.Zone{{Label: "full", X: 0, Y: 0, Width: 100, Height: 100}}
	return b
}
