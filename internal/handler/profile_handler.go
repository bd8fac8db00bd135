package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/oneid-dev/oneid-api/internal/models"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
	"github.com/oneid-dev/oneid-api/pkg/response"
)

type profileAPI interface {
	GetEmail(ctx context.Context, req models.ResourceRequest) (string, error)
	GetProfile(ctx context.Context, req models.ResourceRequest) (map[string]string, error)
}

// ProfileHandler exposes the permission-gated user attribute endpoints.
type ProfileHandler struct {
	service profileAPI
}

// NewProfileHandler creates a new handler.
func NewProfileHandler(svc profileAPI) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Email godoc
// @Summary Fetch user email
// @Description Return the user's email; requires the email scope
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body models.ResourceRequest true "Resource payload"
// @Success 200 {object} response.Envelope
// @Router /user/email [post]
func (h *ProfileHandler) Email(c *gin.Context) {
	var req models.ResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message))
		return
	}

	email, err := h.service.GetEmail(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"email": email})
}

// Profile godoc
// @Summary Fetch user profile
// @Description Return nickname and avatar; requires the profile scope
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body models.ResourceRequest true "Resource payload"
// @Success 200 {object} response.Envelope
// @Router /user/profile [post]
func (h *ProfileHandler) Profile(c *gin.Context) {
	var req models.ResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message))
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, profile)
}
