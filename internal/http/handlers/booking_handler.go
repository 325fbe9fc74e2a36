package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateBookingRequest documents the booking payload. Other fields are
// forwarded unchanged.
type CreateBookingRequest struct {
	TimeSlotID  int64  `json:"timeSlotId" example:"42"`
	PlayerCount int    `json:"playerCount" example:"4"`
	Notes       string `json:"notes,omitempty" example:"cart please"`
}

// CancelBookingRequest is the optional cancel payload.
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty" example:"weather"`
}

// ListBookings godoc
// @ID          listBookings
// @Summary     List my bookings
// @Tags        Bookings
// @Produce     json
// @Security    BearerAuth
// @Param       page    query     int     false  "Page number"     minimum(1) default(1)
// @Param       limit   query     int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       status  query     string  false  "Status filter"
// @Success     200     {object}  envelope.Envelope
// @Failure     401     {object}  envelope.Envelope  "AUT_001"
// @Router      /bookings [get]
func (h *Handlers) ListBookings(c *gin.Context) {
	out, err := h.book.List(c.Request.Context(), principal(c), listParams(c))
	respond(c, http.StatusOK, out, err)
}

// GetBooking godoc
// @ID          getBooking
// @Summary     Get a booking
// @Tags        Bookings
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Booking ID"
// @Success     200  {object}  envelope.Envelope
// @Failure     404  {object}  envelope.Envelope  "BUS_002"
// @Router      /bookings/{id} [get]
func (h *Handlers) GetBooking(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.book.Get(c.Request.Context(), principal(c), id)
	respond(c, http.StatusOK, out, err)
}

// CreateBooking godoc
// @ID          createBooking
// @Summary     Book a time slot
// @Description Retries with the same Idempotency-Key replay the first successful response.
// @Tags        Bookings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header    string                         false  "Idempotency key"  example(7f9c2a1e-booking-1)
// @Param       body             body      handlers.CreateBookingRequest  true   "Booking payload"
// @Success     201              {object}  envelope.Envelope
// @Header      201              {string}  Idempotent-Replay  "true when served from the store"
// @Failure     400              {object}  envelope.Envelope  "BUS_001 / BUS_004"
// @Failure     409              {object}  envelope.Envelope  "BUS_003"
// @Failure     503              {object}  envelope.Envelope  "SYS_004"
// @Router      /bookings [post]
func (h *Handlers) CreateBooking(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.book.Create(c.Request.Context(), principal(c), body)
	respond(c, http.StatusCreated, out, err)
}

// CancelBooking godoc
// @ID          cancelBooking
// @Summary     Cancel a booking
// @Tags        Bookings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                         true   "Booking ID"
// @Param       body  body      handlers.CancelBookingRequest  false  "Cancel reason"
// @Success     200   {object}  envelope.Envelope
// @Failure     400   {object}  envelope.Envelope  "BUS_004"
// @Failure     404   {object}  envelope.Envelope  "BUS_002"
// @Router      /bookings/{id}/cancel [post]
func (h *Handlers) CancelBooking(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.book.Cancel(c.Request.Context(), principal(c), id, body)
	respond(c, http.StatusOK, out, err)
}

// BookingStats godoc
// @ID          bookingStats
// @Summary     Booking statistics
// @Tags        Bookings
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  envelope.Envelope
// @Router      /bookings/stats [get]
func (h *Handlers) BookingStats(c *gin.Context) {
	out, err := h.book.Stats(c.Request.Context(), principal(c), queryParams(c))
	respond(c, http.StatusOK, out, err)
}
