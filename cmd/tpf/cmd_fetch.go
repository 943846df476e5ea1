package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tasoctpf/internal/pipeline"
)

var (
	fetchTIC    int64
	fetchSector int
	fetchOut    string
	fetchRoll   string
	fetchForce  bool
)

// fetchCmd runs the full reconstruction pipeline
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Reconstruct a target pixel file for a TASOC target",
	Long: `Runs the full reconstruction:
  1. Search MAST for the TASOC light curve of the target
  2. Download it (or reuse the cached copy)
  3. Read the pixel stamp, aperture, and WCS
  4. Request a TESSCut cutout of the same shape at the stamp center
  5. Attach the TASOC aperture and write a TPF-shaped FITS file

The cutout may sit a few pixels off the original TASOC stamp; there is
no distortion correction. If "tpf view" shows the aperture missing the
star, re-run with --roll to shift the mask, e.g. --roll 1,-1.

MAST rate-limits rapid repeated requests. If a fetch fails right after
another one, wait a little and try again.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Int64Var(&fetchTIC, "tic", 0, "TIC identifier (required)")
	fetchCmd.Flags().IntVar(&fetchSector, "sector", 0, "observing sector (default: newest available)")
	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "output path (default: tic<ID>-s<SECTOR>_tpf.fits)")
	fetchCmd.Flags().StringVar(&fetchRoll, "roll", "", "shift the aperture mask by dy,dx pixels with wrap-around")
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "re-download even when cached copies exist")
	fetchCmd.MarkFlagRequired("tic")
}

// parseRoll parses a "dy,dx" flag value.
func parseRoll(s string) ([2]int, error) {
	if s == "" {
		return [2]int{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return [2]int{}, fmt.Errorf("invalid --roll %q: want dy,dx (e.g. 1,-1)", s)
	}
	dy, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return [2]int{}, fmt.Errorf("invalid --roll dy %q: %w", parts[0], err)
	}
	dx, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return [2]int{}, fmt.Errorf("invalid --roll dx %q: %w", parts[1], err)
	}
	return [2]int{dy, dx}, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	roll, err := parseRoll(fetchRoll)
	if err != nil {
		return err
	}

	fetcher, cleanup, err := newFetcher()
	if err != nil {
		return err
	}
	defer cleanup()

	out := fetchOut
	if out == "" {
		if fetchSector > 0 {
			out = fmt.Sprintf("tic%d-s%04d_tpf.fits", fetchTIC, fetchSector)
		} else {
			out = fmt.Sprintf("tic%d_tpf.fits", fetchTIC)
		}
	}

	logger.Info("reconstructing TPF",
		zap.Int64("tic", fetchTIC),
		zap.Int("sector", fetchSector),
		zap.String("out", out))

	res, err := fetcher.Fetch(cmd.Context(), pipeline.Request{
		TIC:    fetchTIC,
		Sector: fetchSector,
		Roll:   roll,
		Force:  fetchForce,
		Out:    out,
	})
	if err != nil {
		return err
	}

	fmt.Printf("TIC %d sector %d: %dx%d stamp, %d cadences, %d aperture pixels\n",
		res.TIC, res.Sector, res.Height, res.Width, res.Cadences, res.AperturePix)
	fmt.Printf("stamp center: RA %.4f, Dec %.4f\n", res.RA, res.Dec)
	if res.FromCache {
		fmt.Println("light curve: cached copy")
	}
	fmt.Printf("wrote %s\n", res.Out)
	fmt.Printf("check alignment with: tpf view %s\n", res.Out)
	return nil
}
