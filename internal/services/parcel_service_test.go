package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/orchard/internal/editor"
	"github.com/stwalsh4118/orchard/internal/geometry"
	"github.com/stwalsh4118/orchard/internal/logger"
	"github.com/stwalsh4118/orchard/internal/models"
	"github.com/stwalsh4118/orchard/internal/repository"
)

// MockParcelRepository is a mock implementation of ParcelRepository for testing
type MockParcelRepository struct {
	mock.Mock
}

func (m *MockParcelRepository) Create(ctx context.Context, parcel *models.Parcel) error {
	args := m.Called(ctx, parcel)
	return args.Error(0)
}

func (m *MockParcelRepository) FindByID(ctx context.Context, id int64) (*models.Parcel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	parcel, ok := args.Get(0).(*models.Parcel)
	if !ok {
		return nil, args.Error(1)
	}
	return parcel, args.Error(1)
}

func (m *MockParcelRepository) List(ctx context.Context) ([]models.Parcel, error) {
	args := m.Called(ctx)
	parcels, _ := args.Get(0).([]models.Parcel)
	return parcels, args.Error(1)
}

func (m *MockParcelRepository) Update(ctx context.Context, parcel *models.Parcel) error {
	args := m.Called(ctx, parcel)
	return args.Error(0)
}

func (m *MockParcelRepository) UpdateBoundary(ctx context.Context, id int64, boundary models.GeoJSON, area float64) error {
	args := m.Called(ctx, id, boundary, area)
	return args.Error(0)
}

func (m *MockParcelRepository) UpdateVarietyGeometry(ctx context.Context, parcelID int64, position int, geom models.GeoJSON, treeCount int) error {
	args := m.Called(ctx, parcelID, position, geom, treeCount)
	return args.Error(0)
}

func (m *MockParcelRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var square = []geometry.Coord{{12.5, 41.9}, {12.501, 41.9}, {12.501, 41.901}, {12.5, 41.901}}

func polygon(ring []geometry.Coord) models.GeoJSON {
	return models.NewGeoJSON(geometry.Polygon{Ring: geometry.CloseRing(ring)})
}

func point(lng, lat float64) geometry.Point {
	return geometry.Point{Coord: geometry.Coord{lng, lat}}
}

func newTestService() (*MockParcelRepository, ParcelService) {
	mockRepo := new(MockParcelRepository)
	return mockRepo, NewParcelService(mockRepo, logger.New("test"))
}

func TestCreate_DerivesAreaAndCounts(t *testing.T) {
	// Arrange
	mockRepo, service := newTestService()
	ctx := context.Background()

	parcel := &models.Parcel{
		Name:       "North Grove",
		Boundary:   polygon(square),
		Area:       999,
		TreesCount: 999,
		Varieties: []models.Variety{
			{Cultivar: "Picual", Geometry: models.NewGeoJSON(point(12.5005, 41.9005))},
			{Cultivar: "Leccino", Geometry: models.NewGeoJSON(geometry.Collection{Geometries: []geometry.Geometry{
				point(12.5002, 41.9002), point(12.5008, 41.9008),
			}})},
		},
	}
	mockRepo.On("Create", ctx, parcel).Return(nil)

	// Act
	err := service.Create(ctx, parcel)

	// Assert
	require.NoError(t, err)
	assert.InDelta(t, 0.92, parcel.Area, 0.02, "Expected area to be derived from the boundary")
	assert.Equal(t, 3, parcel.TreesCount)
	assert.Equal(t, 1, parcel.Varieties[0].TreeCount)
	assert.Equal(t, 2, parcel.Varieties[1].TreeCount)
	assert.Equal(t, 1, parcel.Varieties[1].Position)
	mockRepo.AssertExpectations(t)
}

func TestCreate_WithoutBoundary(t *testing.T) {
	mockRepo, service := newTestService()
	ctx := context.Background()

	parcel := &models.Parcel{Name: "Unsurveyed", Varieties: []models.Variety{{Cultivar: "Frantoio"}}}
	mockRepo.On("Create", ctx, parcel).Return(nil)

	require.NoError(t, service.Create(ctx, parcel))
	assert.Equal(t, 0.0, parcel.Area)
	assert.Equal(t, 0, parcel.TreesCount)
	mockRepo.AssertExpectations(t)
}

func TestCreate_RejectsInvalidGeometry(t *testing.T) {
	tests := []struct {
		name        string
		parcel      *models.Parcel
		wantVariety int
		wantPoint   int
	}{
		{
			name:        "tree outside boundary",
			parcel:      &models.Parcel{Name: "A", Boundary: polygon(square), Varieties: []models.Variety{{Cultivar: "Picual", Geometry: models.NewGeoJSON(point(13, 42))}}},
			wantVariety: 0,
			wantPoint:   0,
		},
		{
			name: "second tree of collection outside",
			parcel: &models.Parcel{Name: "A", Boundary: polygon(square), Varieties: []models.Variety{
				{Cultivar: "Picual"},
				{Cultivar: "Leccino", Geometry: models.NewGeoJSON(geometry.Collection{Geometries: []geometry.Geometry{
					point(12.5005, 41.9005), point(12.6, 41.9005),
				}})},
			}},
			wantVariety: 1,
			wantPoint:   1,
		},
		{
			name:        "trees without boundary",
			parcel:      &models.Parcel{Name: "A", Varieties: []models.Variety{{Cultivar: "Picual", Geometry: models.NewGeoJSON(point(12.5, 41.9))}}},
			wantVariety: 0,
			wantPoint:   0,
		},
		{
			name:        "boundary is a point",
			parcel:      &models.Parcel{Name: "A", Boundary: models.NewGeoJSON(point(12.5, 41.9))},
			wantVariety: -1,
			wantPoint:   -1,
		},
		{
			name:        "degenerate boundary",
			parcel:      &models.Parcel{Name: "A", Boundary: polygon(square[:2])},
			wantVariety: -1,
			wantPoint:   -1,
		},
		{
			name:        "boundary latitude out of range",
			parcel:      &models.Parcel{Name: "A", Boundary: polygon([]geometry.Coord{{0, 0}, {1, 0}, {1, 95}})},
			wantVariety: -1,
			wantPoint:   -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo, service := newTestService()

			err := service.Create(context.Background(), tt.parcel)

			assert.ErrorIs(t, err, ErrInvalidGeometry)
			var geomErr *GeometryError
			require.True(t, errors.As(err, &geomErr))
			assert.Equal(t, tt.wantVariety, geomErr.Variety)
			assert.Equal(t, tt.wantPoint, geomErr.Point)
			// Repository should not be called for validation errors
			mockRepo.AssertNotCalled(t, "Create")
		})
	}
}

func TestGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mockRepo, service := newTestService()
		ctx := context.Background()
		expected := &models.Parcel{ID: 5, Name: "South"}
		mockRepo.On("FindByID", ctx, int64(5)).Return(expected, nil)

		parcel, err := service.Get(ctx, 5)

		require.NoError(t, err)
		assert.Equal(t, expected, parcel)
		mockRepo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo, service := newTestService()
		ctx := context.Background()
		// Repository returns nil, nil when no parcel found
		mockRepo.On("FindByID", ctx, int64(6)).Return(nil, nil)

		parcel, err := service.Get(ctx, 6)

		assert.Nil(t, parcel)
		assert.ErrorIs(t, err, ErrParcelNotFound)
	})

	t.Run("reduced stored geometry is served and logged", func(t *testing.T) {
		mockRepo := new(MockParcelRepository)
		var logs bytes.Buffer
		service := NewParcelService(mockRepo, logger.NewWithWriter("production", &logs))
		ctx := context.Background()

		stored := &models.Parcel{ID: 8, Name: "Filare"}
		require.NoError(t, stored.Boundary.Scan(`{"type":"LineString","coordinates":[[12.5,41.9],[12.501,41.901]]}`))
		mockRepo.On("FindByID", ctx, int64(8)).Return(stored, nil)

		parcel, err := service.Get(ctx, 8)

		require.NoError(t, err)
		assert.True(t, parcel.Boundary.IsNull())
		assert.Contains(t, logs.String(), "Stored geometry reduced on read")
		assert.Contains(t, logs.String(), `"parcel_id":8`)
	})

	t.Run("database error", func(t *testing.T) {
		mockRepo, service := newTestService()
		ctx := context.Background()
		dbErr := errors.New("connection refused")
		mockRepo.On("FindByID", ctx, int64(7)).Return(nil, dbErr)

		_, err := service.Get(ctx, 7)

		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ErrParcelNotFound)
	})
}

func TestUpdate_MapsNotFound(t *testing.T) {
	mockRepo, service := newTestService()
	ctx := context.Background()
	parcel := &models.Parcel{ID: 9, Name: "Ghost", Boundary: polygon(square)}
	mockRepo.On("Update", ctx, parcel).Return(repository.ErrNotFound)

	err := service.Update(ctx, parcel)

	assert.ErrorIs(t, err, ErrParcelNotFound)
	assert.Greater(t, parcel.Area, 0.0)
}

func TestUpdate_SetsVarietyParent(t *testing.T) {
	mockRepo, service := newTestService()
	ctx := context.Background()
	parcel := &models.Parcel{ID: 3, Name: "East", Boundary: polygon(square), Varieties: []models.Variety{
		{Cultivar: "Coratina", Position: 9},
	}}
	mockRepo.On("Update", ctx, parcel).Return(nil)

	require.NoError(t, service.Update(ctx, parcel))
	assert.Equal(t, int64(3), parcel.Varieties[0].ParcelID)
	assert.Equal(t, 0, parcel.Varieties[0].Position)
}

func TestDelete(t *testing.T) {
	mockRepo, service := newTestService()
	ctx := context.Background()
	mockRepo.On("Delete", ctx, int64(1)).Return(nil)
	mockRepo.On("Delete", ctx, int64(2)).Return(repository.ErrNotFound)

	assert.NoError(t, service.Delete(ctx, 1))
	assert.ErrorIs(t, service.Delete(ctx, 2), ErrParcelNotFound)
	mockRepo.AssertExpectations(t)
}

func TestList_Empty(t *testing.T) {
	mockRepo, service := newTestService()
	ctx := context.Background()
	mockRepo.On("List", ctx).Return([]models.Parcel{}, nil)

	parcels, err := service.List(ctx)

	require.NoError(t, err)
	assert.NotNil(t, parcels)
	assert.Empty(t, parcels)
}

func TestContains(t *testing.T) {
	mockRepo, service := newTestService()
	ctx := context.Background()
	mockRepo.On("FindByID", ctx, int64(1)).Return(&models.Parcel{ID: 1, Boundary: polygon(square)}, nil)

	inside, err := service.Contains(ctx, 1, geometry.Coord{12.5005, 41.9005})
	require.NoError(t, err)
	assert.True(t, inside)

	inside, err = service.Contains(ctx, 1, geometry.Coord{12.6, 41.9005})
	require.NoError(t, err)
	assert.False(t, inside)

	// Boundary-inclusive
	inside, err = service.Contains(ctx, 1, geometry.Coord{12.5, 41.9005})
	require.NoError(t, err)
	assert.True(t, inside)
}

func TestContains_InvalidCoordinates(t *testing.T) {
	mockRepo, service := newTestService()

	_, err := service.Contains(context.Background(), 1, geometry.Coord{12.5, 91})

	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.Contains(t, err.Error(), "latitude must be between")
	mockRepo.AssertNotCalled(t, "FindByID")
}

func TestSaveBoundary(t *testing.T) {
	mockRepo, service := newTestService()
	ctx := context.Background()
	closed := geometry.CloseRing(square)
	mockRepo.On("UpdateBoundary", ctx, int64(4), polygon(square), 0.92).Return(nil)

	err := service.SaveBoundary(ctx, 4, editor.BoundaryCommit{Ring: closed, AreaHectares: 0.92})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSaveBoundary_Errors(t *testing.T) {
	mockRepo, service := newTestService()
	ctx := context.Background()

	err := service.SaveBoundary(ctx, 4, editor.BoundaryCommit{Ring: square[:2]})
	assert.ErrorIs(t, err, ErrInvalidGeometry)
	mockRepo.AssertNotCalled(t, "UpdateBoundary")

	mockRepo.On("UpdateBoundary", ctx, int64(5), mock.Anything, mock.Anything).Return(repository.ErrNotFound)
	err = service.SaveBoundary(ctx, 5, editor.BoundaryCommit{Ring: square})
	assert.ErrorIs(t, err, ErrParcelNotFound)
}

func TestSaveVariety(t *testing.T) {
	mockRepo, service := newTestService()
	ctx := context.Background()
	geom := geometry.Collection{Geometries: []geometry.Geometry{point(1, 1), point(2, 2)}}
	mockRepo.On("UpdateVarietyGeometry", ctx, int64(4), 1, models.NewGeoJSON(geom), 2).Return(nil)
	mockRepo.On("UpdateVarietyGeometry", ctx, int64(4), 7, mock.Anything, 0).Return(repository.ErrNotFound)

	require.NoError(t, service.SaveVariety(ctx, 4, editor.VarietyCommit{Variety: 1, Geometry: geom, TreeCount: 2}))
	err := service.SaveVariety(ctx, 4, editor.VarietyCommit{Variety: 7})
	assert.ErrorIs(t, err, ErrParcelNotFound)
	mockRepo.AssertExpectations(t)
}

func TestGeometryError_Details(t *testing.T) {
	err := &GeometryError{Reason: "tree is outside the parcel boundary", Variety: 2, Point: 0}
	assert.Equal(t, "variety 2, tree 0: tree is outside the parcel boundary", err.Error())
	assert.Equal(t, map[string]interface{}{
		"reason":  "tree is outside the parcel boundary",
		"variety": 2,
		"point":   0,
	}, err.Details())

	boundary := &GeometryError{Reason: "bad", Variety: -1, Point: -1}
	assert.Equal(t, "boundary: bad", boundary.Error())
	assert.Equal(t, map[string]interface{}{"reason": "bad"}, boundary.Details())
}
