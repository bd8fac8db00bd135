package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/oneid-dev/oneid-api/internal/models"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
	"github.com/oneid-dev/oneid-api/pkg/response"
)

type accountAPI interface {
	Login(ctx context.Context, req models.LoginRequest, meta models.RequestMeta) (*models.LoginResponse, error)
	FederatedAuthorize(ctx context.Context, req models.FederatedAuthorizeRequest) (string, error)
	FederatedCallback(ctx context.Context, req models.FederatedCallbackRequest, meta models.RequestMeta) (*models.LoginResponse, error)
}

// LoginHandler exposes the login surfaces that produce login codes.
type LoginHandler struct {
	service accountAPI
}

// NewLoginHandler creates a new handler.
func NewLoginHandler(svc accountAPI) *LoginHandler {
	return &LoginHandler{service: svc}
}

// Login godoc
// @Summary Password login
// @Description Authenticate a platform account and mint a login code
// @Tags Login
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Router /login [post]
func (h *LoginHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, res)
}

// FederatedAuthorize godoc
// @Summary Start federated login
// @Description Mint the signed continuation token for a provider redirect
// @Tags Login
// @Produce json
// @Param app_id query string true "Application ID"
// @Param secret_key query string true "Application secret"
// @Param provider query string true "Identity provider"
// @Param scope query string false "Requested scopes"
// @Success 200 {object} response.Envelope
// @Router /federated/authorize [get]
func (h *LoginHandler) FederatedAuthorize(c *gin.Context) {
	var req models.FederatedAuthorizeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message))
		return
	}

	state, err := h.service.FederatedAuthorize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"state": state})
}

// FederatedCallback godoc
// @Summary Complete federated login
// @Description Verify the continuation token and mint a login code
// @Tags Login
// @Accept json
// @Produce json
// @Param payload body models.FederatedCallbackRequest true "Callback payload"
// @Success 200 {object} response.Envelope
// @Router /federated/callback [post]
func (h *LoginHandler) FederatedCallback(c *gin.Context) {
	var req models.FederatedCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message))
		return
	}

	res, err := h.service.FederatedCallback(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, res)
}
