package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stwalsh4118/orchard/internal/database"
	"github.com/stwalsh4118/orchard/internal/models"
)

// ErrNotFound is returned by writes addressing a parcel or variety that does
// not exist. Reads return nil, nil instead.
var ErrNotFound = errors.New("record not found")

// ParcelRepository defines the interface for parcel data access operations.
type ParcelRepository interface {
	// Create inserts the parcel and its varieties, filling in ids and
	// timestamps.
	Create(ctx context.Context, parcel *models.Parcel) error

	// FindByID loads a parcel with its varieties ordered by position.
	// Returns nil, nil if no parcel is found (not an error).
	FindByID(ctx context.Context, id int64) (*models.Parcel, error)

	// List returns every parcel with its varieties, ordered by id.
	// Returns an empty slice if there are none.
	List(ctx context.Context) ([]models.Parcel, error)

	// Update rewrites the parcel and replaces its varieties wholesale.
	// Returns ErrNotFound if the parcel does not exist.
	Update(ctx context.Context, parcel *models.Parcel) error

	// UpdateBoundary stores a committed boundary edit.
	// Returns ErrNotFound if the parcel does not exist.
	UpdateBoundary(ctx context.Context, id int64, boundary models.GeoJSON, area float64) error

	// UpdateVarietyGeometry stores a committed tree edit of the variety at
	// position and refreshes the parcel tree total.
	// Returns ErrNotFound if the variety does not exist.
	UpdateVarietyGeometry(ctx context.Context, parcelID int64, position int, geom models.GeoJSON, treeCount int) error

	// Delete removes the parcel and, by cascade, its varieties.
	// Returns ErrNotFound if the parcel does not exist.
	Delete(ctx context.Context, id int64) error
}

// parcelRepository is the concrete implementation of ParcelRepository.
type parcelRepository struct {
	db *database.Database
}

// NewParcelRepository creates a new instance of ParcelRepository.
func NewParcelRepository(db *database.Database) ParcelRepository {
	return &parcelRepository{
		db: db,
	}
}

const parcelColumns = `id, name, ST_AsGeoJSON(geom) AS geometry, area, trees_count, created_at, updated_at`

const varietyColumns = `id, parcel_id, position, cultivar, planting_date, location, area, tree_count,
	ST_AsGeoJSON(geom) AS geometry, created_at, updated_at`

// Create inserts the parcel row, then the variety rows, in one transaction.
func (r *parcelRepository) Create(ctx context.Context, parcel *models.Parcel) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO parcels (name, geom, area, trees_count)
		VALUES ($1, ST_SetSRID(ST_GeomFromGeoJSON($2::text), 4326), $3, $4)
		RETURNING id, created_at, updated_at
	`, parcel.Name, parcel.Boundary, parcel.Area, parcel.TreesCount).
		Scan(&parcel.ID, &parcel.CreatedAt, &parcel.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert parcel %q: %w", parcel.Name, err)
	}

	if err := insertVarieties(ctx, tx, parcel); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit parcel %d: %w", parcel.ID, err)
	}
	return nil
}

// FindByID queries a parcel and its varieties.
func (r *parcelRepository) FindByID(ctx context.Context, id int64) (*models.Parcel, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+parcelColumns+` FROM parcels WHERE id = $1`, id)
	parcel, err := scanParcel(row)
	if err != nil {
		// Handle no rows found - this is not an error at the repository level
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query parcel %d: %w", id, err)
	}

	varieties, err := r.varieties(ctx, `WHERE parcel_id = $1`, id)
	if err != nil {
		return nil, err
	}
	parcel.Varieties = varieties[id]
	if parcel.Varieties == nil {
		parcel.Varieties = []models.Variety{}
	}
	return parcel, nil
}

// List queries every parcel, then every variety, and groups them.
func (r *parcelRepository) List(ctx context.Context) ([]models.Parcel, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+parcelColumns+` FROM parcels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list parcels: %w", err)
	}
	defer rows.Close()

	results := []models.Parcel{}
	for rows.Next() {
		parcel, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parcel row: %w", err)
		}
		results = append(results, *parcel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parcel rows: %w", err)
	}

	varieties, err := r.varieties(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Varieties = varieties[results[i].ID]
		if results[i].Varieties == nil {
			results[i].Varieties = []models.Variety{}
		}
	}
	return results, nil
}

// Update rewrites the parcel row and replaces its varieties in one
// transaction.
func (r *parcelRepository) Update(ctx context.Context, parcel *models.Parcel) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		UPDATE parcels
		SET name = $2,
			geom = ST_SetSRID(ST_GeomFromGeoJSON($3::text), 4326),
			area = $4,
			trees_count = $5,
			updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, parcel.ID, parcel.Name, parcel.Boundary, parcel.Area, parcel.TreesCount).
		Scan(&parcel.CreatedAt, &parcel.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: parcel %d", ErrNotFound, parcel.ID)
		}
		return fmt.Errorf("failed to update parcel %d: %w", parcel.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM parcel_varieties WHERE parcel_id = $1`, parcel.ID); err != nil {
		return fmt.Errorf("failed to clear varieties of parcel %d: %w", parcel.ID, err)
	}
	if err := insertVarieties(ctx, tx, parcel); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit parcel %d: %w", parcel.ID, err)
	}
	return nil
}

// UpdateBoundary stores the boundary and area of a parcel.
func (r *parcelRepository) UpdateBoundary(ctx context.Context, id int64, boundary models.GeoJSON, area float64) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE parcels
		SET geom = ST_SetSRID(ST_GeomFromGeoJSON($2::text), 4326),
			area = $3,
			updated_at = now()
		WHERE id = $1
	`, id, boundary, area)
	if err != nil {
		return fmt.Errorf("failed to update boundary of parcel %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: parcel %d", ErrNotFound, id)
	}
	return nil
}

// UpdateVarietyGeometry stores one variety geometry and recomputes the
// parcel total from all of its varieties.
func (r *parcelRepository) UpdateVarietyGeometry(ctx context.Context, parcelID int64, position int, geom models.GeoJSON, treeCount int) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE parcel_varieties
		SET geom = ST_SetSRID(ST_GeomFromGeoJSON($3::text), 4326),
			tree_count = $4,
			updated_at = now()
		WHERE parcel_id = $1 AND position = $2
	`, parcelID, position, geom, treeCount)
	if err != nil {
		return fmt.Errorf("failed to update variety %d of parcel %d: %w", position, parcelID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: variety %d of parcel %d", ErrNotFound, position, parcelID)
	}

	_, err = tx.Exec(ctx, `
		UPDATE parcels
		SET trees_count = (
				SELECT COALESCE(SUM(tree_count), 0) FROM parcel_varieties WHERE parcel_id = $1
			),
			updated_at = now()
		WHERE id = $1
	`, parcelID)
	if err != nil {
		return fmt.Errorf("failed to update tree count of parcel %d: %w", parcelID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit variety %d of parcel %d: %w", position, parcelID, err)
	}
	return nil
}

// Delete removes a parcel.
func (r *parcelRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM parcels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete parcel %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: parcel %d", ErrNotFound, id)
	}
	return nil
}

// varieties loads varieties matching where, grouped by parcel id and ordered
// by position.
func (r *parcelRepository) varieties(ctx context.Context, where string, args ...any) (map[int64][]models.Variety, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+varietyColumns+` FROM parcel_varieties `+where+` ORDER BY parcel_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query varieties: %w", err)
	}
	defer rows.Close()

	grouped := make(map[int64][]models.Variety)
	for rows.Next() {
		var v models.Variety
		var geomJSON []byte
		err := rows.Scan(
			&v.ID,
			&v.ParcelID,
			&v.Position,
			&v.Cultivar,
			&v.PlantingDate,
			&v.Location,
			&v.Area,
			&v.TreeCount,
			&geomJSON,
			&v.CreatedAt,
			&v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variety row: %w", err)
		}
		if err := v.Geometry.Scan(geomJSON); err != nil {
			return nil, fmt.Errorf("failed to read geometry of variety %d: %w", v.ID, err)
		}
		grouped[v.ParcelID] = append(grouped[v.ParcelID], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variety rows: %w", err)
	}
	return grouped, nil
}

func insertVarieties(ctx context.Context, tx pgx.Tx, parcel *models.Parcel) error {
	for i := range parcel.Varieties {
		v := &parcel.Varieties[i]
		v.ParcelID = parcel.ID
		v.Position = i
		err := tx.QueryRow(ctx, `
			INSERT INTO parcel_varieties
				(parcel_id, position, cultivar, planting_date, location, area, tree_count, geom)
			VALUES ($1, $2, $3, $4, $5, $6, $7, ST_SetSRID(ST_GeomFromGeoJSON($8::text), 4326))
			RETURNING id, created_at, updated_at
		`, v.ParcelID, v.Position, v.Cultivar, v.PlantingDate, v.Location, v.Area, v.TreeCount, v.Geometry).
			Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert variety %q of parcel %d: %w", v.Cultivar, parcel.ID, err)
		}
	}
	return nil
}

func scanParcel(row pgx.Row) (*models.Parcel, error) {
	var parcel models.Parcel
	var geomJSON []byte
	err := row.Scan(
		&parcel.ID,
		&parcel.Name,
		&geomJSON,
		&parcel.Area,
		&parcel.TreesCount,
		&parcel.CreatedAt,
		&parcel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := parcel.Boundary.Scan(geomJSON); err != nil {
		return nil, fmt.Errorf("failed to read boundary of parcel %d: %w", parcel.ID, err)
	}
	return &parcel, nil
}
