package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List my notifications
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Param       unread  query     bool  false  "Only unread"
// @Success     200     {object}  envelope.Envelope
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	out, err := h.notify.List(c.Request.Context(), principal(c), listParams(c))
	respond(c, http.StatusOK, out, err)
}

// CreateNotification godoc
// @ID          createNotification
// @Summary     Send a notification
// @Tags        Notifications
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      object  true  "Notification payload"
// @Success     201   {object}  envelope.Envelope
// @Router      /notifications [post]
func (h *Handlers) CreateNotification(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.notify.Create(c.Request.Context(), principal(c), body)
	respond(c, http.StatusCreated, out, err)
}

// MarkNotificationRead godoc
// @ID          markNotificationRead
// @Summary     Mark a notification as read
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Notification ID"
// @Success     200  {object}  envelope.Envelope
// @Failure     404  {object}  envelope.Envelope  "BUS_002"
// @Router      /notifications/{id}/read [patch]
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.notify.MarkRead(c.Request.Context(), principal(c), id)
	respond(c, http.StatusOK, out, err)
}
