package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/piwi3910/curenest/internal/batch"
	"github.com/piwi3910/curenest/internal/model"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Inspect and move batches through their lifecycle",
}

var batchStatusCmd = &cobra.Command{
	Use:   "status [batch-id]",
	Short: "Show one batch, or list all batches",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, o, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if len(args) == 0 {
			batches := o.Snapshot()
			if len(batches) == 0 {
				fmt.Println("No batches recorded. Run 'curenest solve -p <problem>' to create some.")
				return nil
			}
			fmt.Printf("%-10s %-10s %-20s %-11s %6s %8s  %s\n", "BATCH", "RUN", "AUTOCLAVE", "STATE", "PARTS", "EFF", "WINDOW")
			for _, b := range batches {
				printBatchRow(b)
			}
			return nil
		}

		b, err := o.Status(args[0])
		if err != nil {
			return err
		}
		printBatch(b)
		return nil
	},
}

var batchRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a run's batches and the parts eligible for resubmission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, o, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		stored, err := st.GetRun(cmd.Context(), args[0])
		if err == nil {
			o.RestoreUnplaced(stored.ID, stored.Unplaced)
		}
		res, err := o.RunStatus(args[0])
		if err != nil {
			return err
		}
		for _, b := range res.Batches {
			printBatchRow(b)
		}
		eligible, err := o.EligibleParts(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Eligible for resubmission (%d): %s\n", len(eligible), strings.Join(eligible, ", "))
		return nil
	},
}

func transitionCmd(use, short string, apply func(o *batch.Orchestrator, id string) (model.Batch, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <batch-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, o, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			b, err := apply(o, args[0])
			if err != nil {
				return err
			}
			if err := st.SaveBatches(cmd.Context(), []model.Batch{b}); err != nil {
				return fmt.Errorf("save batch: %w", err)
			}
			printStatus("✓", fmt.Sprintf("Batch %s is now %s", b.ID, stateColor(b.State)), color.FgGreen)
			return nil
		},
	}
}

func init() {
	batchCmd.AddCommand(batchStatusCmd)
	batchCmd.AddCommand(batchRunCmd)
	batchCmd.AddCommand(transitionCmd("confirm", "Reserve the autoclave for a draft batch", (*batch.Orchestrator).Confirm))
	batchCmd.AddCommand(transitionCmd("abort", "Discard a draft or confirmed batch", (*batch.Orchestrator).Abort))
	batchCmd.AddCommand(transitionCmd("complete", "Mark a confirmed batch as cured", (*batch.Orchestrator).Complete))
}

func printBatchRow(b model.Batch) {
	label := b.BedLabel
	if label == "" {
		label = b.BedID
	}
	fmt.Printf("%-10s %-10s %-20s %-20s %6d %7.1f%%  %s - %s\n",
		b.ID, b.RunID, label, stateColor(b.State), b.Solution.PlacedCount(),
		b.Solution.BedEfficiency(b.BedID)*100,
		b.Window.Start.Format("2006-01-02 15:04"), b.Window.End.Format("15:04"))
}

func printBatch(b model.Batch) {
	fmt.Printf("Batch:     %s\n", color.New(color.Bold).Sprint(b.ID))
	fmt.Printf("Run:       %s\n", b.RunID)
	fmt.Printf("Autoclave: %s (%s)\n", b.BedLabel, b.BedID)
	fmt.Printf("State:     %s\n", stateColor(b.State))
	fmt.Printf("Window:    %s - %s\n", b.Window.Start.Format("2006-01-02 15:04"), b.Window.End.Format("2006-01-02 15:04"))
	fmt.Printf("Solution:  %s by %s, %.1f%% covered", b.Solution.Status, b.Solution.Solver, b.Solution.BedEfficiency(b.BedID)*100)
	if b.Solution.Degraded {
		fmt.Print(color.YellowString(" (degraded)"))
	}
	fmt.Println()
	fmt.Printf("\n%-12s %-8s %8s %8s %8s %8s %s\n", "PART", "LEVEL", "X", "Y", "W", "H", "ROT")
	for _, p := range b.Solution.Placements {
		level := "base"
		if p.Level.IsStand() {
			level = fmt.Sprintf("stand %d", int(p.Level))
		}
		rot := ""
		if p.Rotated {
			rot = "90°"
		}
		fmt.Printf("%-12s %-8s %8.0f %8.0f %8.0f %8.0f %s\n", p.PartID, level, p.X, p.Y, p.Width, p.Height, rot)
	}
}
