package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

const quickstart = `# tasoctpf quickstart

Reconstruct a target pixel file for a TASOC target:

` + "```sh" + `
tpf fetch --tic 142086812 --sector 6
tpf view tic142086812-s0006_tpf.fits
` + "```" + `

## Fixing the alignment

The TESSCut cutout can land a few pixels away from the original TASOC
stamp. If the aperture in the viewer misses the star, shift it:

` + "```sh" + `
tpf fetch --tic 142086812 --sector 6 --roll 1,-1
` + "```" + `

The roll wraps around the stamp edges, exactly like rolling the mask
array by (dy, dx).

## Known limitations

- No distortion correction; the reconstruction stays approximate.
- MAST rate-limits rapid repeated calls. A fetch fired right after
  another one can fail; wait a moment and retry by hand.

## Cache

Downloads are kept under the cache directory and indexed in SQLite:

` + "```sh" + `
tpf cache ls
tpf cache verify
tpf cache clear --files
` + "```" + `
`

// docsCmd renders the quickstart in the terminal
var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Show the quickstart guide",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := glamour.Render(quickstart, "dark")
		if err != nil {
			// glamour needs a terminal profile; fall back to raw markdown.
			fmt.Print(quickstart)
			return nil
		}
		fmt.Print(out)
		return nil
	},
}
