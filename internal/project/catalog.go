package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/curenest/internal/model"
)

// DefaultCatalogPath returns the default location of the autoclave catalog.
func DefaultCatalogPath() string {
	return filepath.Join(DefaultConfigDir(), "catalog.json")
}

// SaveCatalog writes the catalog to path, creating parent directories.
func SaveCatalog(path string, c model.Catalog) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCatalog reads the catalog at path. A missing file is replaced by the
// default catalog, which is saved to path.
func LoadCatalog(path string) (model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c := model.DefaultCatalog()
			if saveErr := SaveCatalog(path, c); saveErr != nil {
				return c, saveErr
			}
			return c, nil
		}
		return model.Catalog{}, err
	}
	var c model.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return model.Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// ImportCatalog merges the catalog at path into existing. Presets whose ID
// is already present are skipped; the number of added presets is returned.
func ImportCatalog(path string, existing model.Catalog) (model.Catalog, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return existing, 0, err
	}
	var imported model.Catalog
	if err := json.Unmarshal(data, &imported); err != nil {
		return existing, 0, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	seen := make(map[string]bool, len(existing.Autoclaves))
	for _, a := range existing.Autoclaves {
		seen[a.ID] = true
	}
	merged := model.Catalog{Autoclaves: append([]model.AutoclavePreset(nil), existing.Autoclaves...)}
	added := 0
	for _, a := range imported.Autoclaves {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		merged.Autoclaves = append(merged.Autoclaves, a)
		added++
	}
	return merged, added, nil
}
