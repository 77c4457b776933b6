package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/piwi3910/curenest/internal/project"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or import the batch ledger and catalog",
}

var backupExportCmd = &cobra.Command{
	Use:   "export <file.json>",
	Short: "Write all batches and the catalog to a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, o, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		c, err := loadCatalog()
		if err != nil {
			return err
		}
		batches := o.Snapshot()
		if err := project.ExportBackup(args[0], batches, c); err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("%d batches written to %s", len(batches), args[0]), color.FgGreen)
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Load batches and catalog autoclaves from a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backup, err := project.ImportBackup(args[0])
		if err != nil {
			return err
		}
		st, o, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		// Validates states before anything is written.
		if err := o.Restore(backup.Batches); err != nil {
			return err
		}
		if err := st.SaveBatches(cmd.Context(), backup.Batches); err != nil {
			return fmt.Errorf("save batches: %w", err)
		}

		c, err := loadCatalog()
		if err != nil {
			return err
		}
		for _, a := range backup.Catalog.Autoclaves {
			if c.FindByID(a.ID) == nil {
				c.Autoclaves = append(c.Autoclaves, a)
			}
		}
		if err := project.SaveCatalog(cfg.CatalogPath, c); err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Imported %d batches (backup of %s)", len(backup.Batches), backup.CreatedAt), color.FgGreen)
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
}
