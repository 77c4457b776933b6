package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/piwi3910/curenest/internal/project"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the autoclave catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog autoclaves",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCatalog()
		if err != nil {
			return err
		}
		fmt.Printf("%-10s %-28s %12s %9s %6s %s\n", "ID", "NAME", "BED (mm)", "MAX KG", "LINES", "STANDS")
		for _, a := range c.Autoclaves {
			b := a.Bed
			stands := "-"
			if b.HasStands() {
				stands = fmt.Sprintf("%d (max %d)", len(b.Stands), b.StandLimit())
			}
			fmt.Printf("%-10s %-28s %5.0fx%-6.0f %9.0f %6d %s\n", a.ID, a.Name, b.Width, b.Height, b.MaxWeight, b.MaxLines, stands)
		}
		return nil
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <catalog.json>",
	Short: "Merge autoclaves from another catalog file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCatalog()
		if err != nil {
			return err
		}
		merged, added, err := project.ImportCatalog(args[0], c)
		if err != nil {
			return err
		}
		if err := project.SaveCatalog(cfg.CatalogPath, merged); err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Added %d autoclaves", added), color.FgGreen)
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogImportCmd)
}
