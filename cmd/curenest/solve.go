package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/piwi3910/curenest/internal/batch"
	"github.com/piwi3910/curenest/internal/export"
	"github.com/piwi3910/curenest/internal/model"
	"github.com/piwi3910/curenest/internal/project"
	"github.com/piwi3910/curenest/internal/store"
)

var (
	solveProblem   string
	solveBudget    time.Duration
	solveObjective string
	solvePDF       string
	solveLabels    string
	solveXLSX      string
	solveStart     string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Nest a problem onto its autoclaves and record draft batches",
	Long: `Solve nests the parts of a problem file across its beds. Each bed that
receives parts becomes a draft batch in the batch database; confirm it with
'curenest batch confirm <id>'.

Press Ctrl-C to cancel a running solve; no batches are recorded then.`,
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveProblem, "problem", "p", "", "problem file (YAML or JSON)")
	solveCmd.Flags().DurationVar(&solveBudget, "budget", 0, "time budget per solve (default from config)")
	solveCmd.Flags().StringVar(&solveObjective, "objective", "", "objective: "+strings.Join(model.ObjectiveNames(), ", "))
	solveCmd.Flags().StringVar(&solvePDF, "pdf", "", "write the layout report to this PDF")
	solveCmd.Flags().StringVar(&solveLabels, "labels", "", "write QR part labels to this PDF")
	solveCmd.Flags().StringVar(&solveXLSX, "xlsx", "", "write the placement list to this workbook")
	solveCmd.Flags().StringVar(&solveStart, "start", "", "cure window start, RFC 3339 (default now)")
	solveCmd.MarkFlagRequired("problem")
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	problem, err := project.LoadProblem(solveProblem, catalog)
	if err != nil {
		return err
	}

	req := batch.Request{
		Parts:  problem.Parts,
		Beds:   problem.Beds,
		Budget: solveBudget,
	}
	if solveObjective != "" {
		obj, err := model.ObjectiveByName(solveObjective)
		if err != nil {
			return err
		}
		req.Objective = obj
	}
	if solveStart != "" {
		start, err := time.Parse(time.RFC3339, solveStart)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		req.Window = model.Window{Start: start, End: start.Add(cfg.Settings.CycleLength)}
	}

	st, o, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	began := time.Now()
	res, err := o.Submit(ctx, req)
	if errors.Is(err, model.ErrCancelled) {
		printStatus("!", "Solve cancelled, no batches recorded", color.FgYellow)
		return nil
	}
	if err != nil {
		return err
	}

	if err := persistRun(context.Background(), st, res); err != nil {
		return err
	}

	printRun(res, problem.Beds, time.Since(began))

	title := strings.TrimSuffix(filepath.Base(solveProblem), filepath.Ext(solveProblem))
	report := export.BatchReport(title, problem.Parts, problem.Beds, res.Batches, res.Unplaced, cfg.Settings)
	return writeExports(report, solvePDF, solveLabels, solveXLSX)
}

func persistRun(ctx context.Context, st *store.Store, res batch.RunResult) error {
	if err := st.SaveBatches(ctx, res.Batches); err != nil {
		return fmt.Errorf("save batches: %w", err)
	}
	if err := st.SaveRun(ctx, store.Run{ID: res.RunID, Unplaced: res.Unplaced, CreatedAt: time.Now()}); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func printRun(res batch.RunResult, beds []model.Bed, elapsed time.Duration) {
	labels := make(map[string]string, len(beds))
	for _, b := range beds {
		labels[b.ID] = b.Label
	}

	fmt.Printf("Run %s (%s)\n", color.New(color.Bold).Sprint(res.RunID), elapsed.Round(time.Millisecond))
	for _, out := range res.Outcomes {
		name := labels[out.BedID]
		if name == "" {
			name = out.BedID
		}
		switch {
		case out.Err != nil:
			printStatus("✗", fmt.Sprintf("%-24s %v", name, out.Err), color.FgRed)
		case out.Batch == nil:
			printStatus("-", fmt.Sprintf("%-24s not needed", name), color.FgHiBlack)
		default:
			sol := out.Batch.Solution
			printStatus("✓", fmt.Sprintf("%-24s batch %s  %d parts  %.1f%%  %s/%s",
				name, out.Batch.ID, sol.PlacedCount(), sol.BedEfficiency(out.BedID)*100, sol.Status, sol.Solver), color.FgGreen)
		}
	}
	if len(res.Unplaced) > 0 {
		printStatus("!", fmt.Sprintf("%d parts unplaced: %s", len(res.Unplaced), strings.Join(res.Unplaced, ", ")), color.FgYellow)
	}
}

func writeExports(report export.Report, pdfPath, labelsPath, xlsxPath string) error {
	if len(report.Layouts) == 0 {
		return nil
	}
	if pdfPath != "" {
		if err := export.ExportPDF(pdfPath, report); err != nil {
			return fmt.Errorf("export PDF: %w", err)
		}
		printStatus("✓", "Layout report written to "+pdfPath, color.FgGreen)
	}
	if labelsPath != "" {
		if err := export.ExportLabels(labelsPath, report); err != nil {
			return fmt.Errorf("export labels: %w", err)
		}
		printStatus("✓", "Labels written to "+labelsPath, color.FgGreen)
	}
	if xlsxPath != "" {
		if err := export.ExportXLSX(xlsxPath, report); err != nil {
			return fmt.Errorf("export workbook: %w", err)
		}
		printStatus("✓", "Workbook written to "+xlsxPath, color.FgGreen)
	}
	return nil
}
