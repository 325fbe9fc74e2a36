package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListCourses godoc
// @ID          listCourses
// @Summary     List courses
// @Description Returns a page of courses. Query parameters are forwarded to the course service.
// @Tags        Courses
// @Produce     json
// @Param       page   query     int     false  "Page number"     minimum(1) default(1)
// @Param       limit  query     int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       search query     string  false  "Name filter"
// @Success     200    {object}  envelope.Envelope
// @Failure     503    {object}  envelope.Envelope  "SYS_004"
// @Router      /courses [get]
func (h *Handlers) ListCourses(c *gin.Context) {
	out, err := h.courses.List(c.Request.Context(), principal(c), listParams(c))
	respond(c, http.StatusOK, out, err)
}

// GetCourse godoc
// @ID          getCourse
// @Summary     Get a course
// @Tags        Courses
// @Produce     json
// @Param       id   path      string  true  "Course ID"
// @Success     200  {object}  envelope.Envelope
// @Failure     404  {object}  envelope.Envelope  "BUS_002"
// @Router      /courses/{id} [get]
func (h *Handlers) GetCourse(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.courses.Get(c.Request.Context(), principal(c), id)
	respond(c, http.StatusOK, out, err)
}

// CreateCourse godoc
// @ID          createCourse
// @Summary     Create a course
// @Tags        Courses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      object  true  "Course payload"
// @Success     201   {object}  envelope.Envelope
// @Failure     400   {object}  envelope.Envelope  "BUS_001"
// @Failure     403   {object}  envelope.Envelope  "AUT_002"
// @Failure     409   {object}  envelope.Envelope  "BUS_003"
// @Router      /courses [post]
func (h *Handlers) CreateCourse(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.courses.Create(c.Request.Context(), principal(c), body)
	respond(c, http.StatusCreated, out, err)
}

// UpdateCourse godoc
// @ID          updateCourse
// @Summary     Update a course
// @Tags        Courses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string  true  "Course ID"
// @Param       body  body      object  true  "Fields to change"
// @Success     200   {object}  envelope.Envelope
// @Failure     404   {object}  envelope.Envelope  "BUS_002"
// @Router      /courses/{id} [put]
func (h *Handlers) UpdateCourse(c *gin.Context) {
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
	out, err := h.courses.Update(c.Request.Context(), principal(c), id, body)
	respond(c, http.StatusOK, out, err)
}

// DeleteCourse godoc
// @ID          deleteCourse
// @Summary     Delete a course
// @Tags        Courses
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Course ID"
// @Success     200  {object}  envelope.Envelope
// @Failure     404  {object}  envelope.Envelope  "BUS_002"
// @Router      /courses/{id} [delete]
func (h *Handlers) DeleteCourse(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.courses.Delete(c.Request.Context(), principal(c), id)
	respond(c, http.StatusOK, out, err)
}

// CourseStats godoc
// @ID          courseStats
// @Summary     Course statistics
// @Tags        Courses
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  envelope.Envelope
// @Router      /courses/stats [get]
func (h *Handlers) CourseStats(c *gin.Context) {
	out, err := h.courses.Stats(c.Request.Context(), principal(c), queryParams(c))
	respond(c, http.StatusOK, out, err)
}

// ListTimeSlots godoc
// @ID          listTimeSlots
// @Summary     List time slots
// @Tags        TimeSlots
// @Produce     json
// @Param       courseId  query     string  false  "Course ID"
// @Param       date      query     string  false  "Date (YYYY-MM-DD)"
// @Success     200       {object}  envelope.Envelope
// @Router      /time-slots [get]
func (h *Handlers) ListTimeSlots(c *gin.Context) {
	out, err := h.courses.ListTimeSlots(c.Request.Context(), principal(c), listParams(c))
	respond(c, http.StatusOK, out, err)
}

// CreateTimeSlot godoc
// @ID          createTimeSlot
// @Summary     Create a time slot
// @Tags        TimeSlots
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      object  true  "Time slot payload"
// @Success     201   {object}  envelope.Envelope
// @Failure     409   {object}  envelope.Envelope  "BUS_003"
// @Router      /time-slots [post]
func (h *Handlers) CreateTimeSlot(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.courses.CreateTimeSlot(c.Request.Context(), principal(c), body)
	respond(c, http.StatusCreated, out, err)
}
