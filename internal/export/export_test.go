package export

import (
	"time"

	"github.com/piwi3910/curenest/internal/model"
)

func place(id, bed string, x, y, w, h float64, rotated bool, level model.Level, group string) model.Placement {
	return model.Placement{PartID: id, BedID: bed, X: x, Y: y, Width: w, Height: h, Rotated: rotated, Level: level, Weight: 5, Group: group}
}

// buildTestReport creates a two-bed report, the second bed carrying a
// loaded stand and a keep-out.
func buildTestReport() Report {
	parts := []model.Part{
		{ID: "p1", Label: "Wing Skin", Width: 1200, Height: 800, Rotatable: true, Weight: 5, Group: "C1"},
		{ID: "p2", Label: "Spar", Width: 400, Height: 1500, Rotatable: true, Weight: 5, Group: "C1"},
		{ID: "p3", Label: "Rib", Width: 300, Height: 200, Rotatable: true, Weight: 5, Group: "C2"},
		{ID: "p4", Label: "Fairing", Width: 600, Height: 500, Rotatable: true, Weight: 5, Group: "C2"},
		{ID: "u1", Label: "Too Big", Width: 9000, Height: 200, Weight: 40, Group: "C3"},
	}

	twoLevel := model.Bed{ID: "B2", Label: "AC-2L", Width: 2000, Height: 1200, TwoLevel: true,
		Stands:   []model.Stand{{ID: "S1", X: 1200, Y: 100, Width: 700, Length: 600, Elevation: 400}},
		Keepouts: []model.Zone{{Label: "TC port", X: 0, Y: 1100, Width: 200, Height: 100}},
	}
	beds := []model.Bed{
		{ID: "B1", Label: "AC-Large", Width: 3000, Height: 1500},
		twoLevel,
	}

	sol := model.Solution{
		Placements: []model.Placement{
			place("p1", "B1", 0, 0, 1200, 800, false, model.LevelBase, "C1"),
			place("p2", "B1", 1200, 0, 1500, 400, true, model.LevelBase, "C1"),
			place("p3", "B2", 0, 0, 300, 200, false, model.LevelBase, "C2"),
			place("p4", "B2", 1200, 100, 600, 500, false, model.Level(1), "C2"),
		},
		Unplaced: []string{"u1"},
		Status:   model.StatusFeasible,
	}

	settings := model.DefaultSettings()
	settings.Spacing = 10
	settings.TimeBudget = 5 * time.Second
	return NewReport("Test Load Plan", parts, beds, sol, settings)
}
