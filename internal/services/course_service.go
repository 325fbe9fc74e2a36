package services

import (
	"context"
	"encoding/json"

	"github.com/parkgolf/golf-bff/internal/rpc"
)

// Course and time-slot operations. Both are served by the course domain.
const (
	OpCoursesList     = "courses.list"
	OpCoursesFindByID = "courses.findById"
	OpCoursesCreate   = "courses.create"
	OpCoursesUpdate   = "courses.update"
	OpCoursesDelete   = "courses.delete"
	OpCoursesStats    = "courses.stats"
	OpTimeSlotsList   = "timeSlots.list"
	OpTimeSlotsCreate = "timeSlots.create"
)

// CourseService talks to the course/scheduling domain.
type CourseService struct{ base }

// NewCourseService wraps c.
func NewCourseService(c Caller, t rpc.Timeouts) *CourseService {
	return &CourseService{base: newBase(c, t)}
}

// List returns a page of courses matching the query params.
func (s *CourseService) List(ctx context.Context, p Principal, query Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpCoursesList, query, list)
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, p Principal, id any) (json.RawMessage, error) {
	return s.call(ctx, p, OpCoursesFindByID, Params{keyCourseID: id}, quick)
}

// Create creates a course.
func (s *CourseService) Create(ctx context.Context, p Principal, body Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpCoursesCreate, record(body), quick)
}

// Update patches a course. The path id is sent beside the body, never inside it.
func (s *CourseService) Update(ctx context.Context, p Principal, id any, body Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpCoursesUpdate, record(body, keyCourseID, id), quick)
}

// Delete removes a course.
func (s *CourseService) Delete(ctx context.Context, p Principal, id any) (json.RawMessage, error) {
	return s.call(ctx, p, OpCoursesDelete, Params{keyCourseID: id}, quick)
}

// Stats returns course aggregates.
func (s *CourseService) Stats(ctx context.Context, p Principal, query Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpCoursesStats, query, analytics)
}

// ListTimeSlots returns the time slots matching the query params.
func (s *CourseService) ListTimeSlots(ctx context.Context, p Principal, query Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpTimeSlotsList, query, list)
}

// CreateTimeSlot creates a time slot.
func (s *CourseService) CreateTimeSlot(ctx context.Context, p Principal, body Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpTimeSlotsCreate, record(body), quick)
}
