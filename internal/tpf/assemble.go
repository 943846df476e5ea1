package tpf

// AssembleOptions tunes the reconstruction of a TPF from a cutout plus
// a TASOC aperture mask.
type AssembleOptions struct {
	// RollY/RollX shift the aperture mask with wrap-around before it is
	// attached, the manual fix for the few-pixel positional uncertainty
	// between the TASOC stamp and the cutout footprint.
	RollY, RollX int
}

// Assemble produces a reconstructed target pixel file: the cutout's
// per-cadence stamps with the light curve's photometric aperture
// attached. The cutout must have been requested at the stamp's shape;
// a mismatch is an error, not something to resample around (distortion
// correction is out of scope).
func Assemble(cutout *TargetPixelFile, lc *LightCurve, opts AssembleOptions) (*TargetPixelFile, error) {
	if !lc.PipelineMask.SameShape(cutout.Height, cutout.Width) {
		return nil, shapeErr("aperture mask",
			lc.PipelineMask.Height, lc.PipelineMask.Width, cutout.Height, cutout.Width)
	}

	mask := lc.PipelineMask
	if opts.RollY != 0 || opts.RollX != 0 {
		mask = mask.Roll(opts.RollY, opts.RollX)
	}

	out := &TargetPixelFile{
		TIC:          lc.TIC,
		Sector:       cutout.Sector,
		Height:       cutout.Height,
		Width:        cutout.Width,
		Cadences:     cutout.Cadences,
		PipelineMask: mask,
		WCS:          cutout.WCS,
	}
	if out.Sector == 0 {
		out.Sector = lc.Sector
	}

	out.Aperture = make([]int32, len(mask.Bits))
	for i, b := range mask.Bits {
		out.Aperture[i] = apertureCollected
		if b {
			out.Aperture[i] |= aperturePipeline
		}
	}
	return out, nil
}
