// Package cache indexes downloaded archive products in a local SQLite
// database so repeat fetches skip the remote services entirely. The
// index lives alongside the product files in the cache directory.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"tasoctpf/internal/logging"
)

// Services a cached product can belong to.
const (
	ServiceMAST    = "mast"
	ServiceTESSCut = "tesscut"
)

// Entry is one cached product.
type Entry struct {
	Service   string
	Target    string
	Sector    int
	Filename  string
	Path      string
	Size      int64
	SHA256    string
	FetchedAt time.Time
}

// Store is the sqlite-backed product index.
type Store struct {
	db  *sql.DB
	dir string
}

// Open initializes the cache directory and its index database.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "tasoctpf.db"))
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}

	s := &Store{db: db, dir: dir}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service TEXT NOT NULL,
		target TEXT NOT NULL,
		sector INTEGER NOT NULL,
		filename TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		sha256 TEXT NOT NULL,
		fetched_at DATETIME NOT NULL,
		UNIQUE(service, target, sector)
	);
	CREATE INDEX IF NOT EXISTS idx_products_target ON products(target);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("cache: create schema: %w", err)
	}
	return nil
}

// Dir returns the cache directory products are stored under.
func (s *Store) Dir() string { return s.dir }

// Close closes the index database.
func (s *Store) Close() error { return s.db.Close() }

// Put records a downloaded product, replacing any previous entry for
// the same (service, target, sector).
func (s *Store) Put(e Entry) error {
	_, err := s.db.Exec(`
		INSERT INTO products (service, target, sector, filename, path, size, sha256, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(service, target, sector) DO UPDATE SET
			filename=excluded.filename, path=excluded.path, size=excluded.size,
			sha256=excluded.sha256, fetched_at=excluded.fetched_at`,
		e.Service, e.Target, e.Sector, e.Filename, e.Path, e.Size, e.SHA256, e.FetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("cache: record %s/%s: %w", e.Service, e.Filename, err)
	}
	logging.Get(logging.CategoryCache).Info("cached %s %s sector %d -> %s", e.Service, e.Target, e.Sector, e.Path)
	return nil
}

// Lookup finds a cached product. A cache row whose file has vanished
// from disk does not count as a hit; the stale row is dropped.
func (s *Store) Lookup(service, target string, sector int) (Entry, bool, error) {
	row := s.db.QueryRow(`
		SELECT service, target, sector, filename, path, size, sha256, fetched_at
		FROM products WHERE service = ? AND target = ? AND sector = ?`,
		service, target, sector)

	var e Entry
	err := row.Scan(&e.Service, &e.Target, &e.Sector, &e.Filename, &e.Path, &e.Size, &e.SHA256, &e.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: lookup: %w", err)
	}

	if _, err := os.Stat(e.Path); err != nil {
		logging.Get(logging.CategoryCache).Warn("dropping stale entry for missing file %s", e.Path)
		_ = s.Remove(service, target, sector)
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Remove drops one index row. The product file is left alone.
func (s *Store) Remove(service, target string, sector int) error {
	_, err := s.db.Exec(`DELETE FROM products WHERE service = ? AND target = ? AND sector = ?`,
		service, target, sector)
	if err != nil {
		return fmt.Errorf("cache: remove entry: %w", err)
	}
	return nil
}

// List returns all cached products, newest first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT service, target, sector, filename, path, size, sha256, fetched_at
		FROM products ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("cache: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Service, &e.Target, &e.Sector, &e.Filename, &e.Path, &e.Size, &e.SHA256, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("cache: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear removes every index row and, when deleteFiles is set, the
// product files as well.
func (s *Store) Clear(deleteFiles bool) error {
	if deleteFiles {
		entries, err := s.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("cache: remove %s: %w", e.Path, err)
			}
		}
	}
	if _, err := s.db.Exec(`DELETE FROM products`); err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}
	return nil
}

// VerifyResult is the outcome of re-hashing one cached product.
type VerifyResult struct {
	Entry Entry
	OK    bool
	Err   error
}

// Verify re-hashes every cached product against its recorded checksum,
// a few files at a time.
func (s *Store) Verify(ctx context.Context, workers int) ([]VerifyResult, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 4
	}

	results := make([]VerifyResult, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := fileSHA256(e.Path)
			results[i] = VerifyResult{Entry: e, OK: err == nil && sum == e.SHA256, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
