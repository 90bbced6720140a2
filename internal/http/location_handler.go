package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"city-spots/internal/catalog"
	"city-spots/internal/domain"
)

// LocationHandler sirve el catalogo estatico de ubicaciones.
type LocationHandler struct {
	logger  *zap.Logger
	catalog *catalog.Catalog
}

func NewLocationHandler(logger *zap.Logger, cat *catalog.Catalog) *LocationHandler {
	return &LocationHandler{logger: logger, catalog: cat}
}

// ListLocations maneja GET /locations con filtros opcionales de
// categoria y region.
func (h *LocationHandler) ListLocations(c *gin.Context) {
	category := domain.Category(c.Query("category"))
	region := domain.Region(c.Query("region"))

	locations := h.catalog.Filter(category, region)
	if locations == nil {
		locations = []domain.Location{}
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations, "count": len(locations)})
}

// GetLocation maneja GET /locations/:id.
func (h *LocationHandler) GetLocation(c *gin.Context) {
	loc, ok := h.catalog.ByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": loc})
}

// ListCategories maneja GET /categories.
func (h *LocationHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.catalog.Categories()})
}

// ListRegions maneja GET /regions.
func (h *LocationHandler) ListRegions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"regions": h.catalog.Regions()})
}
