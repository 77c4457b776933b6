package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/piwi3910/curenest/internal/importer"
	"github.com/piwi3910/curenest/internal/project"
)

var (
	importOutput     string
	importAutoclaves []string
)

var importCmd = &cobra.Command{
	Use:   "import <parts.csv|parts.xlsx|outline.dxf>",
	Short: "Import parts from CSV, Excel or DXF into a problem file",
	Long: `Import reads a part list (CSV or Excel with a header row, or DXF outlines)
and writes a problem file. Autoclaves from the catalog can be referenced by
name with --autoclave; they are resolved when the problem is solved.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "problem.yaml", "problem file to write")
	importCmd.Flags().StringArrayVar(&importAutoclaves, "autoclave", nil, "catalog autoclave name or id (repeatable)")
}

func runImport(cmd *cobra.Command, args []string) error {
	result := importer.ImportFile(args[0])
	for _, w := range result.Warnings {
		printStatus("⚠", w, color.FgYellow)
	}
	for _, e := range result.Errors {
		printStatus("✗", e, color.FgRed)
	}
	if len(result.Parts) == 0 {
		return fmt.Errorf("no parts imported from %s", args[0])
	}

	pf := project.ProblemFile{Parts: result.Parts, Autoclaves: importAutoclaves}
	if len(importAutoclaves) > 0 {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		if _, err := pf.Resolve(catalog); err != nil {
			return err
		}
	}
	if err := project.SaveProblemFile(importOutput, pf); err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("%d parts written to %s", len(result.Parts), importOutput), color.FgGreen)
	return nil
}
