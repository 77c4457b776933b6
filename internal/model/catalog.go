package model

import "github.com/google/uuid"

// AutoclavePreset is a reusable autoclave bed definition.
type AutoclavePreset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bed  Bed    `json:"bed"`
}

// NewAutoclavePreset creates a preset with a generated ID.
func NewAutoclavePreset(name string, bed Bed) AutoclavePreset {
	if bed.Label == "" {
		bed.Label = name
	}
	return AutoclavePreset{
		ID:   uuid.New().String()[:8],
		Name: name,
		Bed:  bed,
	}
}

// ToBed returns a copy of the preset bed with a fresh ID so it can be used
// in a submission independently of the catalog entry.
func (p AutoclavePreset) ToBed() Bed {
	b := p.Bed
	b.ID = uuid.New().String()[:8]
	b.Stands = append([]Stand(nil), p.Bed.Stands...)
	b.Keepouts = append([]Zone(nil), p.Bed.Keepouts...)
	return b
}

// Catalog holds the saved autoclave definitions of a plant.
type Catalog struct {
	Autoclaves []AutoclavePreset `json:"autoclaves"`
}

// DefaultCatalog returns a catalog populated with common autoclave sizes.
func DefaultCatalog() Catalog {
	twoLevel := NewBed("AC-2L 4000x2000", 4000, 2000, 1500, 3)
	twoLevel.TwoLevel = true
	twoLevel.MaxLoadHeight = 900
	twoLevel.Stands = []Stand{
		{ID: "S1", X: 200, Y: 200, Width: 1200, Length: 800, Elevation: 450},
		{ID: "S2", X: 2600, Y: 200, Width: 1200, Length: 800, Elevation: 450},
	}
	return Catalog{
		Autoclaves: []AutoclavePreset{
			NewAutoclavePreset("AC-Large 6000x2500", NewBed("AC-Large 6000x2500", 6000, 2500, 3000, 4)),
			NewAutoclavePreset("AC-Medium 3000x1500", NewBed("AC-Medium 3000x1500", 3000, 1500, 1200, 2)),
			NewAutoclavePreset("AC-Small 1500x1000", NewBed("AC-Small 1500x1000", 1500, 1000, 400, 1)),
			NewAutoclavePreset("AC-2L 4000x2000", twoLevel),
		},
	}
}

// FindByID returns a pointer to the preset with the given ID, or nil.
func (c *Catalog) FindByID(id string) *AutoclavePreset {
	for i := range c.Autoclaves {
		if c.Autoclaves[i].ID == id {
			return &c.Autoclaves[i]
		}
	}
	return nil
}

// FindByName returns a pointer to the first preset with the given name, or nil.
func (c *Catalog) FindByName(name string) *AutoclavePreset {
	for i := range c.Autoclaves {
		if c.Autoclaves[i].Name == name {
			return &c.Autoclaves[i]
		}
	}
	return nil
}

// Names returns the preset names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Autoclaves))
	for i, a := range c.Autoclaves {
		names[i] = a.Name
	}
	return names
}
