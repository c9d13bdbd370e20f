package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edunexus/edunexus-api/internal/service"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
	"github.com/edunexus/edunexus-api/pkg/response"
)

// CatalogHandler serves the cross-region storefront endpoints.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// TopRated godoc
// @Summary Top five courses by rating across all regions
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /catalog/top-rated [get]
func (h *CatalogHandler) TopRated(c *gin.Context) {
	courses, err := h.service.TopRated(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// TopSelling godoc
// @Summary Top five courses by enrollments across all regions
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /catalog/top-selling [get]
func (h *CatalogHandler) TopSelling(c *gin.Context) {
	courses, err := h.service.TopSelling(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// Suggested godoc
// @Summary Random course suggestions sampled from every region
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/suggested [get]
func (h *CatalogHandler) Suggested(c *gin.Context) {
	courses, err := h.service.Suggested(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// AllCourses godoc
// @Summary Every course across all regions
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/courses [get]
func (h *CatalogHandler) AllCourses(c *gin.Context) {
	courses, err := h.service.AllCourses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// Categories godoc
// @Summary Distinct course categories across all regions
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/categories [get]
func (h *CatalogHandler) Categories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories)
}

// FindCourse godoc
// @Summary Locate a course by ID and teacher email
// @Description Probes regions in the fixed lookup order and returns the first match
// @Tags Catalog
// @Produce json
// @Param id path int true "Course ID"
// @Param email path string true "Teacher email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /catalog/courses/{id}/teacher/{email} [get]
func (h *CatalogHandler) FindCourse(c *gin.Context) {
	id, err := paramInt64(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}
	course, err := h.service.FindAcrossShards(c.Request.Context(), id, c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}
