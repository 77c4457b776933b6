package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/piwi3910/curenest/internal/engine"
	"github.com/piwi3910/curenest/internal/model"
)

// ProblemFile is the on-disk form of a nesting problem. Beds may be given
// inline or by catalog preset name; JSON files parse as well since JSON is
// valid YAML.
type ProblemFile struct {
	Parts      []model.Part `yaml:"parts"`
	Beds       []model.Bed  `yaml:"beds,omitempty"`
	Autoclaves []string     `yaml:"autoclaves,omitempty"`
}

// LoadProblemFile reads a problem file without resolving catalog references.
func LoadProblemFile(path string) (ProblemFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ProblemFile{}, fmt.Errorf("read problem: %w", err)
	}
	var pf ProblemFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return ProblemFile{}, fmt.Errorf("parse problem %s: %w", filepath.Base(path), err)
	}
	return pf, nil
}

// Resolve turns the file into a solvable problem. Each autoclave name is
// looked up in the catalog and added as a bed with a fresh id.
func (pf ProblemFile) Resolve(c model.Catalog) (engine.Problem, error) {
	p := engine.Problem{
		Parts: append([]model.Part(nil), pf.Parts...),
		Beds:  append([]model.Bed(nil), pf.Beds...),
	}
	for _, name := range pf.Autoclaves {
		preset := c.FindByName(name)
		if preset == nil {
			preset = c.FindByID(name)
		}
		if preset == nil {
			return engine.Problem{}, fmt.Errorf("unknown autoclave %q", name)
		}
		p.Beds = append(p.Beds, preset.ToBed())
	}
	return p, nil
}

// LoadProblem reads a problem file and resolves it against the catalog.
func LoadProblem(path string, c model.Catalog) (engine.Problem, error) {
	pf, err := LoadProblemFile(path)
	if err != nil {
		return engine.Problem{}, err
	}
	return pf.Resolve(c)
}

// SaveProblem writes a problem as YAML.
func SaveProblem(path string, p engine.Problem) error {
	return SaveProblemFile(path, ProblemFile{Parts: p.Parts, Beds: p.Beds})
}

// SaveProblemFile writes a problem file as YAML, keeping catalog references.
func SaveProblemFile(path string, pf ProblemFile) error {
	data, err := yaml.Marshal(pf)
	if err != nil {
		return fmt.Errorf("marshal problem: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
