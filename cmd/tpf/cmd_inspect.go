package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tasoctpf/cmd/tpf/ui"
	"tasoctpf/internal/tpf"
)

// inspectCmd summarizes a light curve or reconstructed TPF
var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Print a summary of a TASOC light curve or a target pixel file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	styles := ui.DefaultStyles()

	// A TASOC light curve has the SUMIMAGE extension; try it first, then
	// fall back to the TPF layout.
	if lc, err := tpf.OpenLightCurve(path); err == nil {
		h, w := lc.Shape()
		ra, dec := lc.CenterCoord()
		table := ui.NewSimpleTable("TASOC light curve", []string{"Field", "Value"})
		table.AddRow("File", path)
		table.AddRow("TIC", fmt.Sprintf("%d", lc.TIC))
		table.AddRow("Sector", fmt.Sprintf("%d", lc.Sector))
		table.AddRow("Stamp", fmt.Sprintf("%dx%d", h, w))
		table.AddRow("Aperture pixels", fmt.Sprintf("%d", lc.PipelineMask.Count()))
		table.AddRow("Center RA", fmt.Sprintf("%.4f", ra))
		table.AddRow("Center Dec", fmt.Sprintf("%.4f", dec))
		fmt.Println(table.View(styles))
		fmt.Println(ui.RenderStamp(lc.SumImage, lc.PipelineMask, ui.RenderOptions{ShowAperture: true, LogScale: true}))
		return nil
	}

	t, err := tpf.OpenTPF(path)
	if err != nil {
		return fmt.Errorf("not a readable light curve or TPF: %w", err)
	}

	table := ui.NewSimpleTable("Target pixel file", []string{"Field", "Value"})
	table.AddRow("File", path)
	if t.TIC != 0 {
		table.AddRow("TIC", fmt.Sprintf("%d", t.TIC))
	}
	if t.Sector != 0 {
		table.AddRow("Sector", fmt.Sprintf("%d", t.Sector))
	}
	table.AddRow("Stamp", fmt.Sprintf("%dx%d", t.Height, t.Width))
	table.AddRow("Cadences", fmt.Sprintf("%d", len(t.Cadences)))
	table.AddRow("Aperture pixels", fmt.Sprintf("%d", t.PipelineMask.Count()))
	if t.WCS != nil {
		ra, dec := t.WCS.PixelToWorld(float64(t.Width/2), float64(t.Height/2))
		table.AddRow("Center RA", fmt.Sprintf("%.4f", ra))
		table.AddRow("Center Dec", fmt.Sprintf("%.4f", dec))
	}
	fmt.Println(table.View(styles))
	fmt.Println(ui.RenderStamp(t.MedianStamp(), t.PipelineMask, ui.RenderOptions{ShowAperture: true, LogScale: true}))
	return nil
}
