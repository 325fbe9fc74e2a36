package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parkgolf/golf-bff/internal/apperr"
	"github.com/parkgolf/golf-bff/internal/http/envelope"
)

// Health godoc
// @ID          health
// @Summary     Liveness
// @Tags        Health
// @Produce     json
// @Success     200  {object}  envelope.Envelope
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	envelope.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @ID          ready
// @Summary     Readiness
// @Description Pings every downstream domain. 503 with per-domain details when any is down.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  envelope.Envelope
// @Failure     503  {object}  envelope.Envelope  "SYS_004"
// @Router      /health/ready [get]
func (h *Handlers) Ready(c *gin.Context) {
	r := h.health.Ready(c.Request.Context())
	if !r.Ready {
		_ = c.Error(apperr.New(apperr.CodeUnavailable, "downstream services not ready").
			WithDetail("domains", r.Domains))
		return
	}
	envelope.Success(c, http.StatusOK, r)
}
