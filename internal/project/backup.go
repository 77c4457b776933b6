package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/curenest/internal/model"
)

const backupVersion = "1.0.0"

// BackupData bundles the batch ledger and autoclave catalog into a single
// file for moving a plant setup between machines.
type BackupData struct {
	Version   string        `json:"version"`
	CreatedAt string        `json:"created_at"`
	Batches   []model.Batch `json:"batches"`
	Catalog   model.Catalog `json:"catalog"`
}

// ExportBackup writes batches and catalog to exportPath.
func ExportBackup(exportPath string, batches []model.Batch, catalog model.Catalog) error {
	backup := BackupData{
		Version:   backupVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Batches:   batches,
		Catalog:   catalog,
	}
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(exportPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	return nil
}

// ImportBackup reads a backup file. The caller decides how to apply it.
func ImportBackup(importPath string) (BackupData, error) {
	data, err := os.ReadFile(importPath)
	if err != nil {
		return BackupData{}, fmt.Errorf("failed to read backup file: %w", err)
	}
	var backup BackupData
	if err := json.Unmarshal(data, &backup); err != nil {
		return BackupData{}, fmt.Errorf("failed to parse backup file: %w", err)
	}
	if backup.Version == "" {
		return BackupData{}, fmt.Errorf("invalid backup file: missing version field")
	}
	if backup.Batches == nil {
		backup.Batches = []model.Batch{}
	}
	return backup, nil
}
