// Package tesscut requests full-frame-image cutouts from the MAST
// TESSCut service. A cutout request returns a zip archive holding one
// FITS target pixel file per sector that covers the coordinate.
package tesscut

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tasoctpf/internal/logging"
)

// DefaultBaseURL is the production TESSCut endpoint.
const DefaultBaseURL = "https://mast.stsci.edu/tesscut/api/v0.1"

const userAgent = "tasoctpf/1.0"

// Client talks to the TESSCut astrocut endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client against the given base URL (empty means
// production TESSCut).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Request describes one cutout: a sky position, a stamp shape in
// pixels, and optionally a single sector (0 means every sector TESSCut
// has for the position).
type Request struct {
	RA, Dec       float64
	Height, Width int
	Sector        int
}

// Cutout downloads a cutout and extracts the per-sector FITS files into
// destDir. It returns the extracted paths, sector-ordered as served.
func (c *Client) Cutout(ctx context.Context, req Request, destDir string) ([]string, error) {
	log := logging.Get(logging.CategoryCutout)
	timer := logging.StartTimer(logging.CategoryCutout, "astrocut")
	defer timer.Stop()

	if req.Height <= 0 || req.Width <= 0 {
		return nil, fmt.Errorf("tesscut: invalid cutout shape %dx%d", req.Height, req.Width)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("tesscut: create %s: %w", destDir, err)
	}

	q := url.Values{}
	q.Set("ra", strconv.FormatFloat(req.RA, 'f', 6, 64))
	q.Set("dec", strconv.FormatFloat(req.Dec, 'f', 6, 64))
	q.Set("y", strconv.Itoa(req.Height))
	q.Set("x", strconv.Itoa(req.Width))
	q.Set("units", "px")
	if req.Sector > 0 {
		q.Set("sector", strconv.Itoa(req.Sector))
	}
	u := c.BaseURL + "/astrocut?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("tesscut: build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	log.Info("GET /astrocut ra=%.4f dec=%.4f shape=%dx%d sector=%d",
		req.RA, req.Dec, req.Height, req.Width, req.Sector)
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tesscut: astrocut: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tesscut: astrocut: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// zip needs random access; spool the response to disk first.
	spool, err := os.CreateTemp(destDir, "astrocut-*.zip")
	if err != nil {
		return nil, fmt.Errorf("tesscut: temp file: %w", err)
	}
	defer os.Remove(spool.Name())
	defer spool.Close()
	if _, err := io.Copy(spool, resp.Body); err != nil {
		return nil, fmt.Errorf("tesscut: read astrocut response: %w", err)
	}

	paths, err := extractFITS(spool.Name(), destDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("tesscut: cutout archive held no FITS files (position not observed?)")
	}
	log.Info("extracted %d cutout file(s) to %s", len(paths), destDir)
	return paths, nil
}

// extractFITS unpacks the .fits members of a cutout zip into destDir.
func extractFITS(zipPath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("tesscut: open cutout archive: %w", err)
	}
	defer zr.Close()

	var paths []string
	for _, member := range zr.File {
		name := filepath.Base(member.Name)
		if !strings.HasSuffix(name, ".fits") {
			continue
		}
		dest := filepath.Join(destDir, name)
		if err := extractMember(member, dest); err != nil {
			return nil, err
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

func extractMember(member *zip.File, dest string) error {
	r, err := member.Open()
	if err != nil {
		return fmt.Errorf("tesscut: open archive member %s: %w", member.Name, err)
	}
	defer r.Close()

	w, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("tesscut: create %s: %w", dest, err)
	}
	_, err = io.Copy(w, r)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("tesscut: extract %s: %w", dest, err)
	}
	return nil
}

// PickSector chooses the cutout file for a sector from extracted paths.
// TESSCut names members tess-s{SSSS}-{cam}-{ccd}_..._astrocut.fits.
// sector 0 returns the first file.
func PickSector(paths []string, sector int) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("tesscut: no cutout for sector %d", sector)
	}
	if sector <= 0 {
		return paths[0], nil
	}
	tag := fmt.Sprintf("-s%04d-", sector)
	for _, p := range paths {
		if strings.Contains(filepath.Base(p), tag) {
			return p, nil
		}
	}
	return "", fmt.Errorf("tesscut: no cutout for sector %d among %d file(s)", sector, len(paths))
}
