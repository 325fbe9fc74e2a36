package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LoginRequest is the credential payload of the login endpoints.
type LoginRequest struct {
	Email    string `json:"email" example:"golfer@example.com"`
	Password string `json:"password" example:"secret"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" example:"eyJhbGciOi..."`
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Exchanges credentials for an access/refresh token pair.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  envelope.Envelope
// @Failure     400   {object}  envelope.Envelope  "BUS_001"
// @Failure     401   {object}  envelope.Envelope  "AUT_004"
// @Failure     503   {object}  envelope.Envelope  "SYS_004"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.auth.Login(c.Request.Context(), principal(c), body)
	respond(c, http.StatusOK, out, err)
}

// AdminLogin godoc
// @ID          adminLogin
// @Summary     Log in to the admin console
// @Description Like login, but only admin roles are admitted.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  envelope.Envelope
// @Failure     401   {object}  envelope.Envelope  "AUT_004"
// @Failure     403   {object}  envelope.Envelope  "AUT_002"
// @Router      /admin/auth/login [post]
func (h *Handlers) AdminLogin(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.auth.AdminLogin(c.Request.Context(), principal(c), body)
	respond(c, http.StatusOK, out, err)
}

// Refresh godoc
// @ID          refresh
// @Summary     Refresh tokens
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RefreshRequest  true  "Refresh token"
// @Success     200   {object}  envelope.Envelope
// @Failure     401   {object}  envelope.Envelope  "AUT_003"
// @Router      /auth/refresh [post]
func (h *Handlers) Refresh(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.auth.Refresh(c.Request.Context(), principal(c), body)
	respond(c, http.StatusOK, out, err)
}

// Me godoc
// @ID          me
// @Summary     Current user
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  envelope.Envelope
// @Failure     401  {object}  envelope.Envelope  "AUT_001"
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	out, err := h.auth.Me(c.Request.Context(), principal(c))
	respond(c, http.StatusOK, out, err)
}

// Logout godoc
// @ID          logout
// @Summary     Log out
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  envelope.Envelope
// @Failure     401  {object}  envelope.Envelope  "AUT_001"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	out, err := h.auth.Logout(c.Request.Context(), principal(c))
	respond(c, http.StatusOK, out, err)
}
