package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skytide/travelbooking/internal/domain"
	"github.com/skytide/travelbooking/internal/service/booking"
	"github.com/skytide/travelbooking/internal/service/cancellation"
)

// Caller identity arrives pre-verified from the gateway in this header.
const ownerHeader = "X-User-ID"

type BookingHandler struct {
	bookings      booking.BookingUseCase
	cancellations cancellation.CancellationUseCase
}

type createBookingRequest struct {
	Offer         domain.FlightOffer `json:"offer"`
	Travelers     []domain.Traveler  `json:"travelers"`
	Contact       domain.Contact     `json:"contact"`
	TransactionID string             `json:"transactionId"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func NewBookingHandler(bookings booking.BookingUseCase, cancellations cancellation.CancellationUseCase) *BookingHandler {
	return &BookingHandler{bookings: bookings, cancellations: cancellations}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/", h.list)
	router.POST("/:reference/cancel", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.bookings.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		Offer:          req.Offer,
		Travelers:      req.Travelers,
		Contact:        req.Contact,
		TransactionID:  req.TransactionID,
		OwnerID:        c.GetHeader(ownerHeader),
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateRequest):
			c.JSON(http.StatusConflict, gin.H{"error": "duplicate booking request"})
		case errors.Is(err, domain.ErrPersistence):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "booking could not be saved"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *BookingHandler) list(c *gin.Context) {
	ownerID := c.GetHeader(ownerHeader)
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing caller identity"})
		return
	}

	bookings, err := h.bookings.ListBookings(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.cancellations.CancelBooking(c.Request.Context(), c.Param("reference"), req.Reason)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
