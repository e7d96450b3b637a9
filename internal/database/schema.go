package database

import (
	"context"
	"fmt"
)

// schema creates the parcel tables when missing. Geometries are stored in
// WGS84 (SRID 4326).
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS parcels (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		geom        geometry(Polygon, 4326),
		area        DOUBLE PRECISION NOT NULL DEFAULT 0,
		trees_count INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS parcels_geom_idx ON parcels USING GIST (geom)`,
	`CREATE TABLE IF NOT EXISTS parcel_varieties (
		id            BIGSERIAL PRIMARY KEY,
		parcel_id     BIGINT NOT NULL REFERENCES parcels(id) ON UPDATE CASCADE ON DELETE CASCADE,
		position      INTEGER NOT NULL,
		cultivar      TEXT NOT NULL,
		planting_date TEXT,
		location      TEXT NOT NULL DEFAULT '',
		area          DOUBLE PRECISION NOT NULL DEFAULT 0,
		tree_count    INTEGER NOT NULL DEFAULT 0,
		geom          geometry(Geometry, 4326),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (parcel_id, position)
	)`,
}

// EnsureSchema creates the tables used by the parcel repository.
func (db *Database) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
