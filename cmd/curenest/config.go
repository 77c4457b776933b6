package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/piwi3910/curenest/internal/project"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = project.DefaultConfigPath()
		}
		if err := project.WriteDefaultConfig(path); err != nil {
			return err
		}
		printStatus("✓", "Config written to "+path, color.FgGreen)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := cfg.Settings
		fmt.Printf("time_budget:  %s\n", s.TimeBudget)
		fmt.Printf("spacing:      %.1f mm\n", s.Spacing)
		fmt.Printf("edge_margin:  %.1f mm\n", s.EdgeMargin)
		fmt.Printf("objective:    %s\n", s.Objective.Name)
		fmt.Printf("workers:      %d\n", s.Workers)
		fmt.Printf("cycle_length: %s\n", s.CycleLength)
		fmt.Printf("db:           %s\n", cfg.DBPath)
		fmt.Printf("catalog:      %s\n", cfg.CatalogPath)
		fmt.Printf("log_level:    %s\n", cfg.LogLevel)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
