package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/service"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
	"github.com/edunexus/edunexus-api/pkg/response"
)

// PaymentHandler wires HTTP endpoints to the payment service.
type PaymentHandler struct {
	service *service.PaymentService
}

// NewPaymentHandler creates a new handler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// CreateIntent godoc
// @Summary Open a payment intent
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body models.CreateIntentRequest true "Intent payload"
// @Success 201 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /payments/intent [post]
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req models.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	intent, err := h.service.CreateIntent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, intent)
}

// Verify godoc
// @Summary Check a payment intent's status
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body models.VerifyPaymentRequest true "Verification payload"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /payments/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verification payload"))
		return
	}
	intent, err := h.service.VerifyPayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, intent)
}

// ApplyForTeacher godoc
// @Summary Upgrade the caller to a teacher account
// @Description Verifies the plan payment, records work history and opens the subscription in one transaction
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body models.ApplyTeacherRequest true "Application payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/apply-teacher [post]
func (h *PaymentHandler) ApplyForTeacher(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.ApplyTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid application payload"))
		return
	}
	info, err := h.service.ApplyForTeacher(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info)
}
