package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ledgerdesk/backend/internal/application/identity"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
	"github.com/ledgerdesk/backend/internal/interfaces/http/middleware"
)

// AuthHandler serves sign-in and the caller's identity
type AuthHandler struct {
	BaseHandler
	auth *identity.AuthService
}

func NewAuthHandler(auth *identity.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login exchanges credentials for a bearer token. Every attempt lands in
// the audit trail, failed ones included.
//
//	@Summary	Sign in
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		dto.LoginRequest	true	"Credentials"
//	@Success	200		{object}	dto.Response{data=identity.LoginResult}
//	@Failure	400		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure	401		{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure	429		{object}	dto.Response{error=dto.ErrorInfo}
//	@Router		/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	result, err := h.auth.Login(c.Request.Context(), identity.LoginInput{
		Username: req.Username,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Me reports who the bearer token belongs to and what they may do.
//
//	@Summary	Current identity
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	dto.Response{data=dto.IdentityResponse}
//	@Failure	401	{object}	dto.Response{error=dto.ErrorInfo}
//	@Security	BearerAuth
//	@Router		/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	if actor, ok := h.Actor(c); ok {
		h.Success(c, dto.ToIdentityResponse(actor))
	}
}
