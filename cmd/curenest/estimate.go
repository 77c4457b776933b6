package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/piwi3910/curenest/internal/model"
	"github.com/piwi3910/curenest/internal/project"
)

var (
	estimateProblem   string
	estimateAutoclave string
	estimateSlack     float64
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate how many autoclave loads a part list needs",
	Long: `Estimate gives a lower bound on the number of loads of one reference
autoclave, by area (spacing included), weight and process lines, plus a
figure with packing slack. The reference is the first bed of the problem
unless --autoclave names a catalog preset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		problem, err := project.LoadProblem(estimateProblem, catalog)
		if err != nil {
			return err
		}

		var ref model.Bed
		switch {
		case estimateAutoclave != "":
			preset := catalog.FindByName(estimateAutoclave)
			if preset == nil {
				preset = catalog.FindByID(estimateAutoclave)
			}
			if preset == nil {
				return fmt.Errorf("unknown autoclave %q", estimateAutoclave)
			}
			ref = preset.Bed
		case len(problem.Beds) > 0:
			ref = problem.Beds[0]
		default:
			return fmt.Errorf("problem has no beds; pass --autoclave")
		}

		est := model.EstimateBeds(problem.Parts, ref, cfg.Settings.Spacing, estimateSlack)

		name := ref.Label
		if name == "" {
			name = ref.ID
		}
		fmt.Printf("Reference autoclave: %s (%.0f x %.0f mm)\n", name, ref.Width, ref.Height)
		fmt.Printf("Parts area:   %.2f m² (spacing %.0f mm)\n", est.TotalPartArea/1e6, est.Spacing)
		fmt.Printf("Total weight: %.1f kg\n", est.TotalWeight)
		fmt.Printf("Groups:       %d\n", est.Groups)
		fmt.Printf("By area:      %.2f loads\n", est.BedsByArea)
		fmt.Printf("By weight:    %.2f loads\n", est.BedsByWeight)
		fmt.Printf("By lines:     %d loads\n", est.BedsByLines)
		fmt.Printf("Minimum:      %s\n", color.New(color.Bold).Sprintf("%d loads", est.BedsNeededMin))
		fmt.Printf("With %.0f%% slack: %d loads\n", est.SlackPercent, est.BedsWithSlack)
		if est.OversizedParts > 0 {
			printStatus("⚠", fmt.Sprintf("%d parts do not fit this autoclave", est.OversizedParts), color.FgYellow)
		}
		if est.OverweightParts > 0 {
			printStatus("⚠", fmt.Sprintf("%d parts exceed its weight limit", est.OverweightParts), color.FgYellow)
		}
		return nil
	},
}

func init() {
	estimateCmd.Flags().StringVarP(&estimateProblem, "problem", "p", "", "problem file (YAML or JSON)")
	estimateCmd.Flags().StringVar(&estimateAutoclave, "autoclave", "", "catalog autoclave to use as reference")
	estimateCmd.Flags().Float64Var(&estimateSlack, "slack", 20, "packing slack in percent")
	estimateCmd.MarkFlagRequired("problem")
}
