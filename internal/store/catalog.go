// Package store persists the artifact catalog and PostGIS-backed zone and
// travel cost data.
package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	_ "modernc.org/sqlite"
)

// File name prefixes of cached artifacts listed in the catalog.
const (
	TransportZonesPrefix = "transport_zones"
	TravelCostsPrefix    = "travel_costs_"
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = eris.New("store: not found")

// Entry is one cached artifact: a file produced from a given input hash.
type Entry struct {
	FileName   string    `json:"file_name"`
	InputsHash string    `json:"inputs_hash"`
	CachePath  string    `json:"cache_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// Option is a selectable value with a display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Catalog indexes cached artifacts in a project's ui.sqlite database.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens the SQLite catalog at dsn and configures WAL mode.
func OpenCatalog(dsn string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "catalog: exec %s", pragma)
		}
	}
	return &Catalog{db: db}, nil
}

const catalogMigration = `
CREATE TABLE IF NOT EXISTS ui_cache (
	file_name   TEXT NOT NULL,
	inputs_hash TEXT NOT NULL,
	cache_path  TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ui_cache_file_hash ON ui_cache(file_name, inputs_hash);
`

// Migrate creates the ui_cache table if needed.
func (c *Catalog) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, catalogMigration)
	return eris.Wrap(err, "catalog: migrate")
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Register records an artifact, replacing the path of an existing
// file/hash pair.
func (c *Catalog) Register(ctx context.Context, e Entry) error {
	if e.FileName == "" || e.InputsHash == "" || e.CachePath == "" {
		return eris.New("catalog: file name, inputs hash and cache path are required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO ui_cache (file_name, inputs_hash, cache_path, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (file_name, inputs_hash) DO UPDATE SET
			cache_path = excluded.cache_path,
			created_at = excluded.created_at`,
		e.FileName, e.InputsHash, e.CachePath, e.CreatedAt,
	)
	return eris.Wrapf(err, "catalog: register %s/%s", e.FileName, e.InputsHash)
}

// Entries lists every artifact ordered by file name and hash.
func (c *Catalog) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT file_name, inputs_hash, cache_path, created_at FROM ui_cache ORDER BY file_name, inputs_hash`)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: list entries")
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.FileName, &e.InputsHash, &e.CachePath, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "catalog: scan entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "catalog: iterate entries")
}

// Paths groups cache paths by file name, then inputs hash.
func (c *Catalog) Paths(ctx context.Context) (map[string]map[string]string, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]string)
	for _, e := range entries {
		if out[e.FileName] == nil {
			out[e.FileName] = make(map[string]string)
		}
		out[e.FileName][e.InputsHash] = e.CachePath
	}
	return out, nil
}

// Resolve returns the cache path for a file name and inputs hash.
func (c *Catalog) Resolve(ctx context.Context, fileName, inputsHash string) (string, error) {
	var path string
	err := c.db.QueryRowContext(ctx,
		`SELECT cache_path FROM ui_cache WHERE file_name = ? AND inputs_hash = ?`,
		fileName, inputsHash,
	).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", eris.Wrapf(ErrNotFound, "catalog: %s/%s", fileName, inputsHash)
	}
	if err != nil {
		return "", eris.Wrap(err, "catalog: resolve")
	}
	return path, nil
}

// ZoneFile returns the catalog file name holding transport zones, or
// ErrNotFound.
func (c *Catalog) ZoneFile(ctx context.Context) (string, error) {
	paths, err := c.Paths(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(paths))
	for name := range paths {
		if strings.HasPrefix(name, TransportZonesPrefix) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", eris.Wrap(ErrNotFound, "catalog: no transport zones")
	}
	slices.Sort(names)
	return names[0], nil
}

// TransportZoneVersions lists the inputs hashes registered under
// ZoneFile, the one zone file the map endpoint resolves against. An empty
// catalog yields no versions.
func (c *Catalog) TransportZoneVersions(ctx context.Context) ([]Option, error) {
	zoneFile, err := c.ZoneFile(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.TravelCostVersions(ctx, zoneFile)
}

// TravelCostModes lists the distinct travel cost files, labelled by mode.
func (c *Catalog) TravelCostModes(ctx context.Context) ([]Option, error) {
	paths, err := c.Paths(ctx)
	if err != nil {
		return nil, err
	}
	var out []Option
	for name := range paths {
		if strings.HasPrefix(name, TravelCostsPrefix) {
			out = append(out, Option{Value: name, Label: ModeLabel(name)})
		}
	}
	slices.SortFunc(out, func(a, b Option) int { return strings.Compare(a.Value, b.Value) })
	return out, nil
}

// TravelCostVersions lists the inputs hashes available for one catalog
// file, usually a travel cost mode.
func (c *Catalog) TravelCostVersions(ctx context.Context, fileName string) ([]Option, error) {
	paths, err := c.Paths(ctx)
	if err != nil {
		return nil, err
	}
	versions, ok := paths[fileName]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "catalog: %s", fileName)
	}
	out := make([]Option, 0, len(versions))
	for hash := range versions {
		out = append(out, Option{Value: hash, Label: hash})
	}
	slices.SortFunc(out, func(a, b Option) int { return strings.Compare(a.Value, b.Value) })
	return out, nil
}

// ModeLabel turns "travel_costs_public_transport.csv" into "Public Transport".
func ModeLabel(fileName string) string {
	mode := strings.TrimPrefix(fileName, TravelCostsPrefix)
	mode = strings.TrimSuffix(mode, filepath.Ext(mode))
	return cases.Title(language.Und).String(strings.ReplaceAll(mode, "_", " "))
}
