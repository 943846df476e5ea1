package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tasoctpf/cmd/tpf/ui"
	"tasoctpf/internal/mast"
)

var (
	searchTIC    int64
	searchSector int
)

// searchCmd lists TASOC light-curve observations for a target
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "List TASOC light curves available at MAST for a TIC target",
	Long: `Queries the MAST portal for TASOC light-curve observations of a target.

Example:
  tpf search --tic 142086812
  tpf search --tic 142086812 --sector 6`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int64Var(&searchTIC, "tic", 0, "TIC identifier (required)")
	searchCmd.Flags().IntVar(&searchSector, "sector", 0, "restrict to one observing sector")
	searchCmd.MarkFlagRequired("tic")
}

func runSearch(cmd *cobra.Command, args []string) error {
	archive, err := archiveClient()
	if err != nil {
		return err
	}

	logger.Debug("searching MAST", zap.Int64("tic", searchTIC), zap.Int("sector", searchSector))
	obs, err := archive.SearchTASOC(cmd.Context(), searchTIC, searchSector)
	if err != nil {
		return err
	}

	table := ui.NewSimpleTable(fmt.Sprintf("TASOC light curves for TIC %d", searchTIC),
		[]string{"Sector", "ObsID", "Exp (s)", "RA", "Dec"})
	for _, o := range obs {
		table.AddRow(
			strconv.Itoa(o.Sector),
			strconv.FormatInt(o.ObsID, 10),
			fmt.Sprintf("%.0f", o.ExpTime),
			fmt.Sprintf("%.4f", o.RA),
			fmt.Sprintf("%.4f", o.Dec),
		)
	}
	fmt.Println(table.View(ui.DefaultStyles()))

	// Show the products for the newest sector so users can see what a
	// fetch would download.
	prods, err := archive.Products(cmd.Context(), obs[0].ObsID)
	if err != nil {
		return err
	}
	if p, err := mast.LightCurveProduct(prods); err == nil {
		fmt.Printf("light-curve product (sector %d): %s (%d bytes)\n", obs[0].Sector, p.Filename, p.Size)
	}
	return nil
}
