package services

import (
	"context"
	"encoding/json"

	"github.com/parkgolf/golf-bff/internal/rpc"
)

// Booking operations.
const (
	OpBookingsList     = "bookings.list"
	OpBookingsFindByID = "bookings.findById"
	OpBookingsCreate   = "bookings.create"
	OpBookingsCancel   = "bookings.cancel"
	OpBookingsStats    = "bookings.stats"
)

// BookingService talks to the booking/reservation domain.
type BookingService struct{ base }

// NewBookingService wraps c.
func NewBookingService(c Caller, t rpc.Timeouts) *BookingService {
	return &BookingService{base: newBase(c, t)}
}

// List returns the caller's bookings.
func (s *BookingService) List(ctx context.Context, p Principal, query Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpBookingsList, query, list)
}

// Get returns one booking.
func (s *BookingService) Get(ctx context.Context, p Principal, id any) (json.RawMessage, error) {
	return s.call(ctx, p, OpBookingsFindByID, Params{keyBookingID: id}, quick)
}

// Create books a time slot. Duplicate submissions are filtered upstream of
// this call by the idempotency middleware.
func (s *BookingService) Create(ctx context.Context, p Principal, body Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpBookingsCreate, record(body), quick)
}

// Cancel cancels a booking. Cancellation fields such as "reason" travel flat
// beside the booking id.
func (s *BookingService) Cancel(ctx context.Context, p Principal, id any, body Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpBookingsCancel, with(body, keyBookingID, id), quick)
}

// Stats returns booking aggregates.
func (s *BookingService) Stats(ctx context.Context, p Principal, query Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpBookingsStats, query, analytics)
}
