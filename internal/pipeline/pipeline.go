// Package pipeline wires the full reconstruction: TASOC light-curve
// search and download, pixel metadata extraction, TESSCut cutout at the
// stamp's central coordinate, and assembly of the output TPF. The two
// remote services are called strictly in sequence; neither call is
// retried (rapid repeats are known to trip MAST's rate limiting, and
// that fragility is accepted rather than engineered around).
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tasoctpf/internal/cache"
	"tasoctpf/internal/logging"
	"tasoctpf/internal/mast"
	"tasoctpf/internal/tesscut"
	"tasoctpf/internal/tpf"
)

// Fetcher runs reconstructions.
type Fetcher struct {
	Archive *mast.Client
	Cutout  *tesscut.Client
	Cache   *cache.Store // nil disables caching
}

// Request is one reconstruction job.
type Request struct {
	TIC    int64
	Sector int // 0 means newest available sector
	Roll   [2]int
	Force  bool // bypass cache hits
	Out    string
}

// Result reports what a reconstruction produced.
type Result struct {
	TIC           int64
	Sector        int
	Height, Width int
	Cadences      int
	AperturePix   int
	RA, Dec       float64
	LightCurve    string
	CutoutFile    string
	Out           string
	FromCache     bool
}

// Fetch reconstructs one TPF and writes it to req.Out.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	log := logging.Get(logging.CategoryAssemble)
	timer := logging.StartTimer(logging.CategoryAssemble, fmt.Sprintf("fetch TIC %d", req.TIC))
	defer timer.Stop()

	lcPath, fromCache, err := f.lightCurveFile(ctx, req)
	if err != nil {
		return nil, err
	}

	lc, err := tpf.OpenLightCurve(lcPath)
	if err != nil {
		return nil, err
	}
	h, w := lc.Shape()
	ra, dec := lc.CenterCoord()
	sector := req.Sector
	if sector == 0 {
		sector = lc.Sector
	}
	log.Info("TIC %d sector %d: stamp %dx%d centered at (%.4f, %.4f)", req.TIC, sector, h, w, ra, dec)

	cutPath, err := f.cutoutFile(ctx, req, sector, ra, dec, h, w)
	if err != nil {
		return nil, err
	}
	cut, err := tpf.OpenTPF(cutPath)
	if err != nil {
		return nil, err
	}
	cut.TIC = req.TIC
	if cut.Sector == 0 {
		cut.Sector = sector
	}

	rec, err := tpf.Assemble(cut, lc, tpf.AssembleOptions{RollY: req.Roll[0], RollX: req.Roll[1]})
	if err != nil {
		return nil, err
	}
	if err := rec.WriteFITS(req.Out); err != nil {
		return nil, err
	}
	log.Info("wrote %s (%d cadences, %d aperture pixels)", req.Out, len(rec.Cadences), rec.PipelineMask.Count())

	return &Result{
		TIC:         req.TIC,
		Sector:      rec.Sector,
		Height:      h,
		Width:       w,
		Cadences:    len(rec.Cadences),
		AperturePix: rec.PipelineMask.Count(),
		RA:          ra,
		Dec:         dec,
		LightCurve:  lcPath,
		CutoutFile:  cutPath,
		Out:         req.Out,
		FromCache:   fromCache,
	}, nil
}

// lightCurveFile returns a local path to the TASOC light curve, via
// cache or a fresh search + download.
func (f *Fetcher) lightCurveFile(ctx context.Context, req Request) (string, bool, error) {
	target := strconv.FormatInt(req.TIC, 10)
	if f.Cache != nil && !req.Force && req.Sector > 0 {
		if e, ok, err := f.Cache.Lookup(cache.ServiceMAST, target, req.Sector); err != nil {
			return "", false, err
		} else if ok {
			logging.Get(logging.CategoryCache).Info("light curve cache hit: %s", e.Path)
			return e.Path, true, nil
		}
	}

	obs, err := f.Archive.SearchTASOC(ctx, req.TIC, req.Sector)
	if err != nil {
		return "", false, err
	}
	chosen := obs[0]

	// Cache entries are keyed on the concrete sector, never on "newest":
	// a sector-0 fetch always searches, so a newly released sector is
	// picked up instead of shadowed by an older cached one.
	if f.Cache != nil && !req.Force && req.Sector == 0 {
		if e, ok, err := f.Cache.Lookup(cache.ServiceMAST, target, chosen.Sector); err != nil {
			return "", false, err
		} else if ok {
			logging.Get(logging.CategoryCache).Info("light curve cache hit: %s", e.Path)
			return e.Path, true, nil
		}
	}

	prods, err := f.Archive.Products(ctx, chosen.ObsID)
	if err != nil {
		return "", false, err
	}
	lcProd, err := mast.LightCurveProduct(prods)
	if err != nil {
		return "", false, err
	}

	destDir := "."
	if f.Cache != nil {
		destDir = f.Cache.Dir()
	}
	dl, err := f.Archive.Download(ctx, lcProd, destDir)
	if err != nil {
		return "", false, err
	}

	if f.Cache != nil {
		err := f.Cache.Put(cache.Entry{
			Service:   cache.ServiceMAST,
			Target:    target,
			Sector:    chosen.Sector,
			Filename:  lcProd.Filename,
			Path:      dl.Path,
			Size:      dl.Size,
			SHA256:    dl.SHA256,
			FetchedAt: time.Now(),
		})
		if err != nil {
			return "", false, err
		}
	}
	return dl.Path, false, nil
}

// cutoutFile returns a local path to the TESSCut cutout for the stamp.
func (f *Fetcher) cutoutFile(ctx context.Context, req Request, sector int, ra, dec float64, h, w int) (string, error) {
	target := cutoutKey(ra, dec, h, w)
	if f.Cache != nil && !req.Force {
		if e, ok, err := f.Cache.Lookup(cache.ServiceTESSCut, target, sector); err != nil {
			return "", err
		} else if ok {
			logging.Get(logging.CategoryCache).Info("cutout cache hit: %s", e.Path)
			return e.Path, nil
		}
	}

	destDir := "."
	if f.Cache != nil {
		destDir = f.Cache.Dir()
	}
	paths, err := f.Cutout.Cutout(ctx, tesscut.Request{
		RA: ra, Dec: dec, Height: h, Width: w, Sector: sector,
	}, destDir)
	if err != nil {
		return "", err
	}
	path, err := tesscut.PickSector(paths, sector)
	if err != nil {
		return "", err
	}

	if f.Cache != nil {
		sum, size, err := fileDigest(path)
		if err != nil {
			return "", err
		}
		err = f.Cache.Put(cache.Entry{
			Service:   cache.ServiceTESSCut,
			Target:    target,
			Sector:    sector,
			Filename:  filepathBase(path),
			Path:      path,
			Size:      size,
			SHA256:    sum,
			FetchedAt: time.Now(),
		})
		if err != nil {
			return "", err
		}
	}
	return path, nil
}

// cutoutKey identifies a cutout by position and shape, so two targets
// sharing a stamp footprint share the cached cutout.
func cutoutKey(ra, dec float64, h, w int) string {
	return fmt.Sprintf("%.6f,%.6f,%dx%d", ra, dec, h, w)
}
