package mast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"tasoctpf/internal/logging"
)

// DownloadResult describes a completed product download.
type DownloadResult struct {
	Path   string
	Size   int64
	SHA256 string
}

// Download fetches a product by its mast: URI into destDir, named after
// the product filename. The file is written via a temp name and renamed
// so an interrupted download never leaves a plausible-looking FITS file
// behind.
func (c *Client) Download(ctx context.Context, p Product, destDir string) (DownloadResult, error) {
	log := logging.Get(logging.CategoryArchive)
	timer := logging.StartTimer(logging.CategoryArchive, "download "+p.Filename)
	defer timer.Stop()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return DownloadResult{}, fmt.Errorf("mast: create %s: %w", destDir, err)
	}

	u := c.BaseURL + downloadPath + "?uri=" + url.QueryEscape(p.URI)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("mast: build download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("mast: download %s: %w", p.Filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return DownloadResult{}, fmt.Errorf("mast: download %s: HTTP %d", p.Filename, resp.StatusCode)
	}

	// the product filename comes from the server; strip any path so it
	// cannot land outside destDir
	name := filepath.Base(p.Filename)
	if name == "." || name == string(filepath.Separator) {
		return DownloadResult{}, fmt.Errorf("mast: unusable product filename %q", p.Filename)
	}
	dest := filepath.Join(destDir, name)
	tmp, err := os.CreateTemp(destDir, name+".part-*")
	if err != nil {
		return DownloadResult{}, fmt.Errorf("mast: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, hash), resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return DownloadResult{}, fmt.Errorf("mast: download %s: %w", p.Filename, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return DownloadResult{}, fmt.Errorf("mast: finalize %s: %w", dest, err)
	}

	res := DownloadResult{Path: dest, Size: n, SHA256: hex.EncodeToString(hash.Sum(nil))}
	log.Info("downloaded %s (%d bytes)", dest, n)
	return res, nil
}
