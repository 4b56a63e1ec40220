package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/open-builders/giveaway-rules/internal/common/errors"
	"github.com/open-builders/giveaway-rules/internal/common/middleware"
	"github.com/open-builders/giveaway-rules/internal/domain/rule"
	"github.com/open-builders/giveaway-rules/internal/service/entry"
)

// EligibilityService runs eligibility checks.
type EligibilityService interface {
	Check(ctx context.Context, userID string, target entry.Target) (rule.Verdict, error)
	CheckAdHoc(ctx context.Context, userID string, rs []rule.Rule) (rule.Verdict, error)
}

type EligibilityHandlers struct {
	svc EligibilityService
}

func NewEligibilityHandlers(svc EligibilityService) *EligibilityHandlers {
	return &EligibilityHandlers{svc: svc}
}

func (h *EligibilityHandlers) Register(r gin.IRouter) {
	r.POST("/giveaways/:id/eligibility", h.check(entry.ContextGiveaway))
	r.POST("/giveaways/:id/eligibility/discord-roles", h.check(entry.ContextDiscordRoles))
	r.POST("/presales/:id/eligibility", h.check(entry.ContextPresale))
	r.POST("/applications/:id/eligibility", h.check(entry.ContextApplication))
	r.POST("/eligibility", h.checkAdHoc)
}

func (h *EligibilityHandlers) check(ctxKind entry.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := h.svc.Check(c.Request.Context(), middleware.UserIDFrom(c), entry.Target{
			Context:  ctxKind,
			EntityID: c.Param("id"),
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

type adHocRequest struct {
	Rules []rule.Rule `json:"rules"`
}

func (h *EligibilityHandlers) checkAdHoc(c *gin.Context) {
	var req adHocRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}
	v, err := h.svc.CheckAdHoc(c.Request.Context(), middleware.UserIDFrom(c), req.Rules)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, v)
}
