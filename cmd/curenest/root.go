package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/piwi3910/curenest/internal/batch"
	"github.com/piwi3910/curenest/internal/logging"
	"github.com/piwi3910/curenest/internal/model"
	"github.com/piwi3910/curenest/internal/project"
	"github.com/piwi3910/curenest/internal/store"
)

var (
	configPath  string
	dbOverride  string
	catalogFile string
	logLevel    string

	cfg    project.Config
	logger hclog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "curenest",
	Short: "Autoclave load planner",
	Long: `CureNest nests composite parts onto autoclave beds, respecting spacing,
keep-out zones, stands, weight and process-line limits, and tracks the
resulting batches through draft, confirmed, completed and aborted.

Configuration is read from ~/.config/curenest/config.yaml, a project
.curenest.yaml and CURENEST_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := project.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if dbOverride != "" {
			cfg.DBPath = dbOverride
		}
		if catalogFile != "" {
			cfg.CatalogPath = catalogFile
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger = logging.New(logging.Options{Level: cfg.LogLevel, Output: os.Stderr})
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/curenest/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "batch database path")
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "autoclave catalog file (JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(configCmd)
}

// openLedger opens the batch database and loads every stored batch into a
// fresh orchestrator.
func openLedger(ctx context.Context) (*store.Store, *batch.Orchestrator, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	st, err := store.Open(cfg.DBPath, store.WithLogger(logger.Named("store")))
	if err != nil {
		return nil, nil, fmt.Errorf("open batch database %s: %w", cfg.DBPath, err)
	}
	o := batch.New(cfg.Settings, batch.WithLogger(logger.Named("batch")))

	batches, err := st.ListBatches(ctx, store.BatchFilter{})
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("load batches: %w", err)
	}
	if err := o.Restore(batches); err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, o, nil
}

func loadCatalog() (model.Catalog, error) {
	c, err := project.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return model.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	return c, nil
}

func stateColor(s model.BatchState) string {
	switch s {
	case model.BatchDraft:
		return color.YellowString(string(s))
	case model.BatchConfirmed:
		return color.CyanString(string(s))
	case model.BatchCompleted:
		return color.GreenString(string(s))
	case model.BatchAborted:
		return color.New(color.FgHiBlack).Sprint(string(s))
	default:
		return string(s)
	}
}

func printStatus(symbol, message string, attr color.Attribute) {
	c := color.New(attr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
