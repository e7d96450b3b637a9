package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/stwalsh4118/orchard/internal/editor"
	"github.com/stwalsh4118/orchard/internal/geometry"
	"github.com/stwalsh4118/orchard/internal/logger"
	"github.com/stwalsh4118/orchard/internal/models"
	"github.com/stwalsh4118/orchard/internal/repository"
	"github.com/stwalsh4118/orchard/internal/spatial"
)

// Coordinate validation constants
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Service-level errors
var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrParcelNotFound     = errors.New("parcel not found")
	ErrInvalidGeometry    = errors.New("invalid parcel geometry")
)

// GeometryError describes which geometry of a parcel failed validation.
// It unwraps to ErrInvalidGeometry.
type GeometryError struct {
	Reason string
	// Variety is the ordinal of the offending variety, -1 for the boundary.
	Variety int
	// Point is the geometry index of the offending tree, -1 when not a tree.
	Point int
}

func (e *GeometryError) Error() string {
	if e.Variety < 0 {
		return fmt.Sprintf("boundary: %s", e.Reason)
	}
	if e.Point < 0 {
		return fmt.Sprintf("variety %d: %s", e.Variety, e.Reason)
	}
	return fmt.Sprintf("variety %d, tree %d: %s", e.Variety, e.Point, e.Reason)
}

func (e *GeometryError) Unwrap() error { return ErrInvalidGeometry }

// Details returns the error as response details.
func (e *GeometryError) Details() map[string]interface{} {
	d := map[string]interface{}{"reason": e.Reason}
	if e.Variety >= 0 {
		d["variety"] = e.Variety
	}
	if e.Point >= 0 {
		d["point"] = e.Point
	}
	return d
}

// ParcelService defines the interface for parcel business logic operations.
// Area and tree counts are always derived here from the geometries.
type ParcelService interface {
	// Create validates and stores a new parcel.
	// Returns ErrInvalidGeometry (as *GeometryError) for a malformed boundary
	// or a tree outside it.
	Create(ctx context.Context, parcel *models.Parcel) error

	// Get retrieves a parcel by id.
	// Returns ErrParcelNotFound if it does not exist.
	Get(ctx context.Context, id int64) (*models.Parcel, error)

	// List retrieves every parcel. Returns an empty slice if there are none.
	List(ctx context.Context) ([]models.Parcel, error)

	// Update validates and rewrites a parcel, replacing its varieties.
	// Returns ErrParcelNotFound or ErrInvalidGeometry.
	Update(ctx context.Context, parcel *models.Parcel) error

	// Delete removes a parcel. Returns ErrParcelNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error

	// Contains reports whether the point lies inside the parcel boundary.
	// Returns ErrInvalidCoordinates or ErrParcelNotFound.
	Contains(ctx context.Context, id int64, pt geometry.Coord) (bool, error)

	// SaveBoundary persists a boundary committed by an editing session.
	SaveBoundary(ctx context.Context, id int64, commit editor.BoundaryCommit) error

	// SaveVariety persists tree points committed by an editing session.
	SaveVariety(ctx context.Context, id int64, commit editor.VarietyCommit) error
}

// parcelService is the concrete implementation of ParcelService.
type parcelService struct {
	repo repository.ParcelRepository
	log  *logger.Logger
}

// NewParcelService creates a new instance of ParcelService.
func NewParcelService(repo repository.ParcelRepository, log *logger.Logger) ParcelService {
	return &parcelService{
		repo: repo,
		log:  log,
	}
}

// Create validates the parcel, derives its area and tree counts, and stores it.
func (s *parcelService) Create(ctx context.Context, parcel *models.Parcel) error {
	if err := s.prepare(parcel); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, parcel); err != nil {
		s.log.Error("Failed to create parcel", err, map[string]interface{}{
			"name": parcel.Name,
		})
		return fmt.Errorf("failed to create parcel: %w", err)
	}

	s.log.Info("Parcel created", map[string]interface{}{
		"parcel_id":   parcel.ID,
		"area_ha":     parcel.Area,
		"trees_count": parcel.TreesCount,
		"varieties":   len(parcel.Varieties),
	})
	return nil
}

// Get retrieves a parcel, transforming the repository's nil result into
// ErrParcelNotFound.
func (s *parcelService) Get(ctx context.Context, id int64) (*models.Parcel, error) {
	parcel, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to query parcel", err, map[string]interface{}{
			"parcel_id": id,
		})
		return nil, fmt.Errorf("failed to query parcel: %w", err)
	}

	// Repository returns nil, nil when no parcel found - transform to domain error
	if parcel == nil {
		s.log.Debug("Parcel not found", map[string]interface{}{
			"parcel_id": id,
		})
		return nil, ErrParcelNotFound
	}
	s.warnDegraded(parcel)
	return parcel, nil
}

// List retrieves every parcel.
func (s *parcelService) List(ctx context.Context) ([]models.Parcel, error) {
	parcels, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error("Failed to list parcels", err, nil)
		return nil, fmt.Errorf("failed to list parcels: %w", err)
	}
	for i := range parcels {
		s.warnDegraded(&parcels[i])
	}
	return parcels, nil
}

// warnDegraded logs stored geometries that were reduced on read. They stay
// readable; only the unusable parts are hidden from editing and export.
func (s *parcelService) warnDegraded(parcel *models.Parcel) {
	if !parcel.Degraded() {
		return
	}
	s.log.Warn("Stored geometry reduced on read", map[string]interface{}{
		"parcel_id": parcel.ID,
		"boundary":  parcel.Boundary.Degraded(),
	})
}

// Update validates and rewrites the parcel.
func (s *parcelService) Update(ctx context.Context, parcel *models.Parcel) error {
	if err := s.prepare(parcel); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, parcel); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrParcelNotFound
		}
		s.log.Error("Failed to update parcel", err, map[string]interface{}{
			"parcel_id": parcel.ID,
		})
		return fmt.Errorf("failed to update parcel: %w", err)
	}

	s.log.Info("Parcel updated", map[string]interface{}{
		"parcel_id":   parcel.ID,
		"area_ha":     parcel.Area,
		"trees_count": parcel.TreesCount,
	})
	return nil
}

// Delete removes the parcel.
func (s *parcelService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrParcelNotFound
		}
		s.log.Error("Failed to delete parcel", err, map[string]interface{}{
			"parcel_id": id,
		})
		return fmt.Errorf("failed to delete parcel: %w", err)
	}

	s.log.Info("Parcel deleted", map[string]interface{}{
		"parcel_id": id,
	})
	return nil
}

// Contains validates the point and tests it against the stored boundary.
func (s *parcelService) Contains(ctx context.Context, id int64, pt geometry.Coord) (bool, error) {
	if err := validateCoord(pt); err != nil {
		s.log.Warn("Invalid coordinates provided", map[string]interface{}{
			"lat": pt.Lat(),
			"lng": pt.Lng(),
		})
		return false, err
	}

	parcel, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return spatial.Contains(parcel.Ring(), pt), nil
}

// SaveBoundary stores a committed ring and its area.
func (s *parcelService) SaveBoundary(ctx context.Context, id int64, commit editor.BoundaryCommit) error {
	open := geometry.OpenRing(commit.Ring)
	if len(open) < geometry.MinRingVertices {
		return &GeometryError{Reason: "fewer than 3 vertices", Variety: -1, Point: -1}
	}

	boundary := models.NewGeoJSON(geometry.Polygon{Ring: geometry.CloseRing(open)})
	if err := s.repo.UpdateBoundary(ctx, id, boundary, commit.AreaHectares); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrParcelNotFound
		}
		return fmt.Errorf("failed to save boundary: %w", err)
	}

	s.log.Info("Boundary saved", map[string]interface{}{
		"parcel_id": id,
		"vertices":  len(open),
		"area_ha":   commit.AreaHectares,
	})
	return nil
}

// SaveVariety stores a committed variety geometry and its tree count.
func (s *parcelService) SaveVariety(ctx context.Context, id int64, commit editor.VarietyCommit) error {
	geom := models.NewGeoJSON(commit.Geometry)
	if err := s.repo.UpdateVarietyGeometry(ctx, id, commit.Variety, geom, commit.TreeCount); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrParcelNotFound
		}
		return fmt.Errorf("failed to save variety %d: %w", commit.Variety, err)
	}

	s.log.Info("Variety saved", map[string]interface{}{
		"parcel_id":  id,
		"variety":    commit.Variety,
		"tree_count": commit.TreeCount,
	})
	return nil
}

// prepare validates the parcel geometries and derives area, positions and
// tree counts. A missing boundary is allowed; trees then have nowhere to go.
func (s *parcelService) prepare(parcel *models.Parcel) error {
	if err := validateGeometry(parcel); err != nil {
		s.log.Warn("Parcel geometry rejected", map[string]interface{}{
			"parcel_id": parcel.ID,
			"reason":    err.Error(),
		})
		return err
	}

	ring := parcel.Ring()
	if len(ring) > 0 {
		parcel.Boundary = models.NewGeoJSON(geometry.Polygon{Ring: geometry.CloseRing(ring)})
	}
	parcel.Area = spatial.AreaHectares(ring)
	for i := range parcel.Varieties {
		parcel.Varieties[i].Position = i
		parcel.Varieties[i].ParcelID = parcel.ID
	}
	parcel.RecountTrees()
	return nil
}

func validateGeometry(parcel *models.Parcel) error {
	var ring []geometry.Coord
	if !parcel.Boundary.IsNull() {
		ring = parcel.Ring()
		if len(ring) < geometry.MinRingVertices {
			return &GeometryError{Reason: "boundary must be a polygon with at least 3 vertices", Variety: -1, Point: -1}
		}
		for _, c := range ring {
			if err := validateCoord(c); err != nil {
				return &GeometryError{Reason: err.Error(), Variety: -1, Point: -1}
			}
		}
	}

	for v, variety := range parcel.Varieties {
		for _, ref := range geometry.Points(variety.Geometry.Geometry) {
			if !spatial.Contains(ring, ref.Coord) {
				return &GeometryError{Reason: "tree is outside the parcel boundary", Variety: v, Point: ref.Index}
			}
		}
	}
	return nil
}

func validateCoord(c geometry.Coord) error {
	if c.Lat() < MinLatitude || c.Lat() > MaxLatitude {
		return fmt.Errorf("%w: latitude must be between %f and %f, got %f",
			ErrInvalidCoordinates, MinLatitude, MaxLatitude, c.Lat())
	}
	if c.Lng() < MinLongitude || c.Lng() > MaxLongitude {
		return fmt.Errorf("%w: longitude must be between %f and %f, got %f",
			ErrInvalidCoordinates, MinLongitude, MaxLongitude, c.Lng())
	}
	return nil
}
