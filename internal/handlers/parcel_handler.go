package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/orchard/internal/errors"
	"github.com/stwalsh4118/orchard/internal/geometry"
	"github.com/stwalsh4118/orchard/internal/middleware"
	"github.com/stwalsh4118/orchard/internal/models"
	"github.com/stwalsh4118/orchard/internal/services"
)

// ParcelHandler handles parcel-related HTTP requests.
type ParcelHandler struct {
	service services.ParcelService
	exports services.ExportService
}

// NewParcelHandler creates a new ParcelHandler instance.
func NewParcelHandler(service services.ParcelService, exports services.ExportService) *ParcelHandler {
	return &ParcelHandler{
		service: service,
		exports: exports,
	}
}

// ParcelRequest is the body of create and update requests. Area and tree
// counts are derived server-side and not accepted.
type ParcelRequest struct {
	Name      string           `json:"name" binding:"required,max=200"`
	Boundary  models.GeoJSON   `json:"geojson"`
	Varieties []VarietyRequest `json:"varieties" binding:"omitempty,dive"`
}

// VarietyRequest is one variety of a ParcelRequest. Varieties keep the order
// in which they are sent.
type VarietyRequest struct {
	Cultivar     string         `json:"cultivar" binding:"required,max=120"`
	PlantingDate *string        `json:"planting_date" binding:"omitempty,datetime=2006-01-02"`
	Location     string         `json:"location" binding:"max=200"`
	Area         float64        `json:"area" binding:"gte=0"`
	Geometry     models.GeoJSON `json:"geojson"`
}

// ContainsRequest is the body of a containment query.
type ContainsRequest struct {
	Lng *float64 `json:"lng" binding:"required,gte=-180,lte=180"`
	Lat *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
}

// ParcelResponse represents the response for single parcel endpoints.
type ParcelResponse struct {
	Parcel *ParcelData `json:"parcel"`
}

// ListResponse represents the response for the list endpoint.
type ListResponse struct {
	Parcels []ParcelData `json:"parcels"`
	Count   int          `json:"count"`
}

// ContainsResponse represents the response for a containment query.
type ContainsResponse struct {
	Inside bool `json:"inside"`
}

// ParcelData represents the parcel data in the API response.
type ParcelData struct {
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Boundary   models.GeoJSON `json:"geojson"`
	Name       string         `json:"name"`
	Varieties  []VarietyData  `json:"varieties"`
	Area       float64        `json:"area_ha"`
	ID         int64          `json:"id"`
	TreesCount int            `json:"trees_count"`
}

// VarietyData represents one variety in the API response.
type VarietyData struct {
	PlantingDate *string        `json:"planting_date,omitempty"`
	Geometry     models.GeoJSON `json:"geojson"`
	Cultivar     string         `json:"cultivar"`
	Location     string         `json:"location,omitempty"`
	Area         float64        `json:"area"`
	Position     int            `json:"position"`
	TreeCount    int            `json:"tree_count"`
}

// Create handles POST /api/v1/parcels.
func (h *ParcelHandler) Create(c *gin.Context) {
	var req ParcelRequest
	if !bindJSON(c, &req) {
		return
	}

	parcel := req.toModel()
	if err := h.service.Create(c.Request.Context(), parcel); err != nil {
		h.fail(c, err, "Failed to create parcel")
		return
	}
	c.JSON(http.StatusCreated, ParcelResponse{Parcel: mapParcelToDTO(parcel)})
}

// List handles GET /api/v1/parcels.
func (h *ParcelHandler) List(c *gin.Context) {
	parcels, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to list parcels")
		return
	}

	data := make([]ParcelData, 0, len(parcels))
	for i := range parcels {
		data = append(data, *mapParcelToDTO(&parcels[i]))
	}
	c.JSON(http.StatusOK, ListResponse{Parcels: data, Count: len(data)})
}

// Get handles GET /api/v1/parcels/:id.
func (h *ParcelHandler) Get(c *gin.Context) {
	id, ok := parcelID(c)
	if !ok {
		return
	}

	parcel, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to query parcel")
		return
	}
	c.JSON(http.StatusOK, ParcelResponse{Parcel: mapParcelToDTO(parcel)})
}

// Update handles PUT /api/v1/parcels/:id. Varieties are replaced wholesale.
func (h *ParcelHandler) Update(c *gin.Context) {
	id, ok := parcelID(c)
	if !ok {
		return
	}
	var req ParcelRequest
	if !bindJSON(c, &req) {
		return
	}

	parcel := req.toModel()
	parcel.ID = id
	if err := h.service.Update(c.Request.Context(), parcel); err != nil {
		h.fail(c, err, "Failed to update parcel")
		return
	}
	c.JSON(http.StatusOK, ParcelResponse{Parcel: mapParcelToDTO(parcel)})
}

// Delete handles DELETE /api/v1/parcels/:id.
func (h *ParcelHandler) Delete(c *gin.Context) {
	id, ok := parcelID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, "Failed to delete parcel")
		return
	}
	c.Status(http.StatusNoContent)
}

// Contains handles POST /api/v1/parcels/:id/contains.
func (h *ParcelHandler) Contains(c *gin.Context) {
	id, ok := parcelID(c)
	if !ok {
		return
	}
	var req ContainsRequest
	if !bindJSON(c, &req) {
		return
	}

	inside, err := h.service.Contains(c.Request.Context(), id, geometry.Coord{*req.Lng, *req.Lat})
	if err != nil {
		h.fail(c, err, "Failed to test containment")
		return
	}
	c.JSON(http.StatusOK, ContainsResponse{Inside: inside})
}

// ExportPDF handles GET /api/v1/parcels/:id/export.pdf. The document is sent
// as an attachment named after the parcel.
func (h *ParcelHandler) ExportPDF(c *gin.Context) {
	id, ok := parcelID(c)
	if !ok {
		return
	}
	doc, err := h.exports.PDF(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to export parcel")
		return
	}
	sendDocument(c, doc, "attachment")
}

// Preview handles GET /api/v1/parcels/:id/preview.png.
func (h *ParcelHandler) Preview(c *gin.Context) {
	id, ok := parcelID(c)
	if !ok {
		return
	}
	doc, err := h.exports.Preview(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to render preview")
		return
	}
	sendDocument(c, doc, "inline")
}

// fail maps service errors onto the error envelope.
func (h *ParcelHandler) fail(c *gin.Context, err error, message string) {
	var geomErr *services.GeometryError
	switch {
	case errors.Is(err, services.ErrParcelNotFound):
		apierrors.NotFound(c, "Parcel not found")
	case errors.As(err, &geomErr):
		apierrors.UnprocessableGeometry(c, geomErr.Error(), geomErr.Details())
	case errors.Is(err, services.ErrNothingToExport):
		apierrors.UnprocessableGeometry(c, "Parcel has no boundary to export", nil)
	case errors.Is(err, services.ErrInvalidCoordinates):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, message, err)
	}
}

func sendDocument(c *gin.Context, doc *services.Document, disposition string) {
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": doc.Filename}))
	cacheStatus := "MISS"
	if doc.Cached {
		cacheStatus = "HIT"
	}
	c.Header("X-Cache", cacheStatus)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// bindJSON binds the request body, writing the error response on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return false
		}
		if log := middleware.GetLogger(c); log != nil {
			log.Debug("Malformed request body", map[string]interface{}{"error": err.Error()})
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return false
	}
	return true
}

func parcelID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apierrors.BadRequest(c, "Invalid parcel id", map[string]interface{}{"id": c.Param("id")})
		return 0, false
	}
	return id, true
}

func (r ParcelRequest) toModel() *models.Parcel {
	parcel := &models.Parcel{
		Name:      r.Name,
		Boundary:  r.Boundary,
		Varieties: make([]models.Variety, len(r.Varieties)),
	}
	for i, v := range r.Varieties {
		parcel.Varieties[i] = models.Variety{
			Cultivar:     v.Cultivar,
			PlantingDate: v.PlantingDate,
			Location:     v.Location,
			Area:         v.Area,
			Geometry:     v.Geometry,
		}
	}
	return parcel
}

// mapParcelToDTO converts a Parcel model to a ParcelData DTO.
func mapParcelToDTO(parcel *models.Parcel) *ParcelData {
	if parcel == nil {
		return nil
	}

	dto := &ParcelData{
		ID:         parcel.ID,
		Name:       parcel.Name,
		Boundary:   parcel.Boundary,
		Area:       parcel.Area,
		TreesCount: parcel.TreesCount,
		CreatedAt:  parcel.CreatedAt,
		UpdatedAt:  parcel.UpdatedAt,
		Varieties:  make([]VarietyData, 0, len(parcel.Varieties)),
	}
	for _, v := range parcel.Varieties {
		dto.Varieties = append(dto.Varieties, VarietyData{
			Position:     v.Position,
			Cultivar:     v.Cultivar,
			PlantingDate: v.PlantingDate,
			Location:     v.Location,
			Area:         v.Area,
			TreeCount:    v.TreeCount,
			Geometry:     v.Geometry,
		})
	}
	return dto
}
