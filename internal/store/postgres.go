package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/sells-group/zonemap/internal/db"
	"github.com/sells-group/zonemap/internal/resilience"
	"github.com/sells-group/zonemap/internal/travelcost"
	"github.com/sells-group/zonemap/internal/zones"
)

// PostgresStore reads zones and travel costs from a PostGIS database.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres connects a pool and verifies it with a ping.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("postgres ping")
	if err := resilience.Do(ctx, retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS mobility;

CREATE TABLE IF NOT EXISTS mobility.transport_zones (
	version    TEXT NOT NULL,
	zone_id    TEXT NOT NULL,
	properties JSONB NOT NULL DEFAULT '{}',
	geom       geometry(MultiPolygon, 4326) NOT NULL,
	PRIMARY KEY (version, zone_id)
);

CREATE TABLE IF NOT EXISTS mobility.travel_costs (
	mode      TEXT NOT NULL,
	from_zone TEXT NOT NULL,
	to_zone   TEXT NOT NULL,
	time      DOUBLE PRECISION,
	distance  DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_travel_costs_mode_from ON mobility.travel_costs(mode, from_zone);
`

// Migrate creates the mobility schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool if this store opened it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Zones loads every transport zone of a version. The zone id is stored
// under idProp alongside the zone's own properties.
func (s *PostgresStore) Zones(ctx context.Context, version, idProp string) (*zones.Collection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT zone_id, properties, ST_AsBinary(geom) FROM mobility.transport_zones WHERE version = $1 ORDER BY zone_id`,
		version,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query zones %s", version)
	}
	defer rows.Close()

	c := zones.New()
	for rows.Next() {
		var (
			id        string
			propsJSON []byte
			geomWKB   []byte
		)
		if err := rows.Scan(&id, &propsJSON, &geomWKB); err != nil {
			return nil, eris.Wrap(err, "postgres: scan zone")
		}

		props := make(map[string]any)
		if len(propsJSON) > 0 {
			if err := json.Unmarshal(propsJSON, &props); err != nil {
				return nil, eris.Wrapf(err, "postgres: decode properties of zone %s", id)
			}
		}
		props[idProp] = id

		g, err := wkb.Unmarshal(geomWKB)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: decode geometry of zone %s", id)
		}
		c.Features = append(c.Features, &geojson.Feature{Geometry: g, Properties: props})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate zones")
	}
	return c, nil
}

// Origins lists the origin zones that have costs for mode.
func (s *PostgresStore) Origins(ctx context.Context, mode string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT from_zone FROM mobility.travel_costs WHERE mode = $1 ORDER BY from_zone`,
		mode,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query origins %s", mode)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan origin")
		}
		out = append(out, id)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate origins")
}

// TravelCosts returns destination times from origin for mode. Rows with a
// null time are skipped.
func (s *PostgresStore) TravelCosts(ctx context.Context, mode, origin string) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT to_zone, time FROM mobility.travel_costs WHERE mode = $1 AND from_zone = $2 AND time IS NOT NULL`,
		mode, origin,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query travel costs %s/%s", mode, origin)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			to string
			t  float64
		)
		if err := rows.Scan(&to, &t); err != nil {
			return nil, eris.Wrap(err, "postgres: scan travel cost")
		}
		if _, dup := out[to]; !dup {
			out[to] = t
		}
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate travel costs")
}

var travelCostColumns = []string{"mode", "from_zone", "to_zone", "time", "distance"}

// ImportTravelCosts replaces every cost of mode with records in one
// transaction.
func (s *PostgresStore) ImportTravelCosts(ctx context.Context, mode string, records []travelcost.Record) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM mobility.travel_costs WHERE mode = $1`, mode); err != nil {
		return 0, eris.Wrapf(err, "postgres: import: clear mode %s", mode)
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{mode, r.From, r.To, r.Time, r.Distance}
	}
	n, err := db.CopyRows(ctx, tx, "mobility.travel_costs", travelCostColumns, rows)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: import: commit")
	}
	return n, nil
}
