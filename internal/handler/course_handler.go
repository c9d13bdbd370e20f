package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/service"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
	"github.com/edunexus/edunexus-api/pkg/response"
)

// CourseHandler wires HTTP endpoints to the course service.
type CourseHandler struct {
	service *service.CourseService
}

// NewCourseHandler creates a new handler.
func NewCourseHandler(svc *service.CourseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// Create godoc
// @Summary Publish a course
// @Description Create a course with an optional thumbnail upload on the teacher's home region
// @Tags Courses
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Course title"
// @Param description formData string true "Course description"
// @Param category formData string true "Category"
// @Param price formData number true "Price"
// @Param thumbnail formData file false "Thumbnail image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateCourseRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	thumbnail, err := c.FormFile("thumbnail")
	if err != nil && err != http.ErrMissingFile {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid thumbnail upload"))
		return
	}

	course, err := h.service.CreateCourse(c.Request.Context(), claims, req, thumbnail)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// ListByTeacher godoc
// @Summary List a teacher's courses
// @Tags Courses
// @Produce json
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/courses [get]
func (h *CourseHandler) ListByTeacher(c *gin.Context) {
	key, err := shardFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	teacherID, err := paramInt64(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid teacher id"))
		return
	}
	courses, err := h.service.ListByTeacher(c.Request.Context(), key, teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// Get godoc
// @Summary Fetch one course
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	key, err := shardFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := paramInt64(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}
	course, err := h.service.GetCourse(c.Request.Context(), key, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}

// Full godoc
// @Summary Fetch a course with its full module tree
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/full [get]
func (h *CourseHandler) Full(c *gin.Context) {
	key, err := shardFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := paramInt64(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}
	content, err := h.service.FullCourse(c.Request.Context(), key, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content)
}

// AddModule godoc
// @Summary Append a module to a course
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body models.CreateModuleRequest true "Module payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/modules [post]
func (h *CourseHandler) AddModule(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid module payload"))
		return
	}
	module, err := h.service.AddModule(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, module)
}

// ListModules godoc
// @Summary List a course's modules
// @Tags Content
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/modules [get]
func (h *CourseHandler) ListModules(c *gin.Context) {
	key, err := shardFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	courseID, err := paramInt64(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}
	modules, err := h.service.ListModules(c.Request.Context(), key, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, modules)
}

// ModuleContent godoc
// @Summary Fetch one module with its videos and live classes
// @Tags Content
// @Produce json
// @Param id path int true "Module ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /modules/{id} [get]
func (h *CourseHandler) ModuleContent(c *gin.Context) {
	key, err := shardFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	moduleID, err := paramInt64(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid module id"))
		return
	}
	content, err := h.service.ModuleContent(c.Request.Context(), key, moduleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content)
}

// AddVideo godoc
// @Summary Attach a recorded lesson to a module
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body models.CreateVideoRequest true "Video payload"
// @Success 201 {object} response.Envelope
// @Router /teacher/videos [post]
func (h *CourseHandler) AddVideo(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.CreateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid video payload"))
		return
	}
	video, err := h.service.AddVideo(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, video)
}

// AddLiveClass godoc
// @Summary Schedule a live class on a module
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body models.CreateLiveClassRequest true "Live class payload"
// @Success 201 {object} response.Envelope
// @Router /teacher/live-classes [post]
func (h *CourseHandler) AddLiveClass(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.CreateLiveClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid live class payload"))
		return
	}
	lc, err := h.service.AddLiveClass(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lc)
}

// GetLiveClass godoc
// @Summary Fetch one live class
// @Tags Content
// @Produce json
// @Param id path int true "Live class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /live-classes/{id} [get]
func (h *CourseHandler) GetLiveClass(c *gin.Context) {
	key, err := shardFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := paramInt64(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid live class id"))
		return
	}
	lc, err := h.service.GetLiveClass(c.Request.Context(), key, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lc)
}

// ScheduledClasses godoc
// @Summary List a teacher's upcoming live classes
// @Tags Content
// @Produce json
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/scheduled-classes [get]
func (h *CourseHandler) ScheduledClasses(c *gin.Context) {
	key, err := shardFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	teacherID, err := paramInt64(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid teacher id"))
		return
	}
	classes, err := h.service.ScheduledClasses(c.Request.Context(), key, teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes)
}
