package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"homecare-portal/internal/availability"
	"homecare-portal/internal/backend"
	"homecare-portal/internal/booking"
	"homecare-portal/internal/models"
)

// BookingHandler exposes slot checks and appointment creation.
type BookingHandler struct {
	svc *booking.Service
}

// NewBookingHandler builds a BookingHandler.
func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CheckAvailability returns live warnings for a candidate date and start time.
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	s, ok := sessionFromContext(c)
	if !ok {
		return
	}
	providerID := models.ID(c.Param("provider_id"))
	date := strings.TrimSpace(c.Query("date"))
	startTime := strings.TrimSpace(c.Query("time"))

	errs := h.svc.CheckSlot(c.Request.Context(), s, providerID, date, startTime)
	warnings := make([]warning, 0, len(errs))
	for _, err := range errs {
		warnings = append(warnings, warning{Code: availability.Code(err), Message: availability.Message(err)})
	}
	c.JSON(http.StatusOK, gin.H{
		"provider_id": providerID,
		"ok":          len(warnings) == 0,
		"warnings":    warnings,
	})
}

// CreateAppointment validates and books the draft.
func (h *BookingHandler) CreateAppointment(c *gin.Context) {
	s, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var draft models.AppointmentDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appt, err := h.svc.Submit(c.Request.Context(), s, requestIDFromContext(c), draft)
	if err == nil {
		c.JSON(http.StatusCreated, gin.H{"appointment": appt})
		return
	}

	var missing *booking.MissingFieldError
	if errors.As(err, &missing) {
		c.JSON(http.StatusBadRequest, gin.H{"error": missing.Error(), "field": missing.Field})
		return
	}
	if code := availability.Code(err); code != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": availability.Message(err), "code": code})
		return
	}
	if rej, ok := booking.AsRejected(err); ok {
		c.JSON(http.StatusConflict, gin.H{"error": rej.Reason.Message(), "code": rej.Reason})
		return
	}
	c.JSON(backend.HTTPStatus(err), gin.H{"error": "appointment could not be created"})
}
