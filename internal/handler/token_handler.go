package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/oneid-dev/oneid-api/internal/models"
	"github.com/oneid-dev/oneid-api/internal/service"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
	"github.com/oneid-dev/oneid-api/pkg/response"
)

type tokenAPI interface {
	Issue(ctx context.Context, req models.IssueTokenRequest, meta models.RequestMeta) (*models.IssueTokenResponse, error)
	Validate(ctx context.Context, req models.StatusRequest) (*models.StatusResponse, error)
	Refresh(ctx context.Context, req models.RefreshRequest, meta models.RequestMeta) (*models.RefreshResponse, error)
	Logout(ctx context.Context, req models.LogoutRequest, meta models.RequestMeta) error
}

// TokenHandler wires the token lifecycle endpoints to the token service.
type TokenHandler struct {
	service tokenAPI
	metrics *service.MetricsService
}

// NewTokenHandler creates a new handler.
func NewTokenHandler(svc tokenAPI, metrics *service.MetricsService) *TokenHandler {
	return &TokenHandler{service: svc, metrics: metrics}
}

// Issue godoc
// @Summary Issue token pair
// @Description Exchange a login code for an access/refresh token pair
// @Tags Tokens
// @Accept json
// @Produce json
// @Param payload body models.IssueTokenRequest true "Issue payload"
// @Success 200 {object} response.Envelope
// @Router /oauth2/token [post]
func (h *TokenHandler) Issue(c *gin.Context) {
	var req models.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message))
		return
	}

	res, err := h.service.Issue(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordIssue()
	response.OK(c, res)
}

// Status godoc
// @Summary Check login status
// @Description Validate an access token against an OpenID
// @Tags Tokens
// @Accept json
// @Produce json
// @Param payload body models.StatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /oauth2/status [post]
func (h *TokenHandler) Status(c *gin.Context) {
	var req models.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message))
		return
	}

	res, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordValidation(appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}

	h.metrics.RecordValidation("ok")
	response.OK(c, res)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Rotate an access token using its refresh token
// @Tags Tokens
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Router /oauth2/refresh [post]
func (h *TokenHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message))
		return
	}

	res, err := h.service.Refresh(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		h.metrics.RecordRefresh(appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}

	h.metrics.RecordRefresh("ok")
	response.OK(c, res)
}

// Logout godoc
// @Summary Logout
// @Description Revoke a token pair after the ownership-chain check
// @Tags Tokens
// @Accept json
// @Produce json
// @Param payload body models.LogoutRequest true "Logout payload"
// @Success 200 {object} response.Envelope
// @Router /oauth2/logout [post]
func (h *TokenHandler) Logout(c *gin.Context) {
	var req models.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message))
		return
	}

	if err := h.service.Logout(c.Request.Context(), req, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordRevocation()
	response.OK(c, gin.H{"revoked": true})
}
