package handler

import (
	"net/http"

	"familytasks/internal/model"
	"familytasks/internal/repository"
	"familytasks/internal/service"
	"familytasks/pkg/rbac"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TemplateHandler struct {
	templates repository.TemplateStore
	seeder    *service.TemplateService
	logger    *zap.Logger
}

func NewTemplateHandler(templates repository.TemplateStore, seeder *service.TemplateService, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{templates: templates, seeder: seeder, logger: logger}
}

// ListTemplates handles GET /api/templates?scope=active|daily|all.
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	familyID := callerFamily(c)
	if familyID == "" {
		return
	}

	var (
		templates []model.TaskTemplate
		err       error
	)
	ctx := c.Request.Context()
	switch scope := c.DefaultQuery("scope", "active"); scope {
	case "active":
		templates, err = h.templates.ListActive(ctx, familyID)
	case "daily":
		templates, err = h.templates.ListDaily(ctx, familyID)
	case "all":
		templates, err = h.templates.ListAll(ctx, familyID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be active, daily or all"})
		return
	}
	if err != nil {
		writeError(c, h.logger, "ListTemplates", err)
		return
	}
	if templates == nil {
		templates = []model.TaskTemplate{}
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

type createTemplateRequest struct {
	FamilyID      string            `json:"family_id"`
	Name          string            `json:"name" binding:"required"`
	Icon          string            `json:"icon"`
	Points        int               `json:"points"`
	Category      *string           `json:"category"`
	Difficulty    *model.Difficulty `json:"difficulty"`
	EstimatedTime *int              `json:"estimated_time"`
	Recurrence    model.Recurrence  `json:"recurrence" binding:"required"`
	IsActive      *bool             `json:"is_active"`
}

// CreateTemplate handles POST /api/templates.
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := rbac.ValidateFamilyInPayload(claims.FamilyID, req.FamilyID); err != nil {
		writeError(c, h.logger, "CreateTemplate", err)
		return
	}

	tpl := &model.TaskTemplate{
		Name:          req.Name,
		Icon:          req.Icon,
		Points:        req.Points,
		Category:      req.Category,
		Difficulty:    req.Difficulty,
		EstimatedTime: req.EstimatedTime,
		Recurrence:    req.Recurrence,
		IsActive:      req.IsActive == nil || *req.IsActive,
		CreatedBy:     claims.UserID,
	}
	if err := h.templates.Create(c.Request.Context(), claims.FamilyID, tpl); err != nil {
		writeError(c, h.logger, "CreateTemplate", err)
		return
	}

	h.logger.Info("CreateTemplate: success",
		zap.String("family_id", claims.FamilyID),
		zap.String("template_id", tpl.ID),
	)
	c.JSON(http.StatusCreated, gin.H{"template": tpl})
}

// UpdateTemplate handles PATCH /api/templates/:id.
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	familyID := callerFamily(c)
	if familyID == "" {
		return
	}

	var u model.TemplateUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := h.templates.Update(c.Request.Context(), familyID, c.Param("id"), u)
	if err != nil {
		writeError(c, h.logger, "UpdateTemplate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tpl})
}

// ToggleTemplate handles POST /api/templates/:id/toggle.
func (h *TemplateHandler) ToggleTemplate(c *gin.Context) {
	familyID := callerFamily(c)
	if familyID == "" {
		return
	}
	tpl, err := h.templates.ToggleActive(c.Request.Context(), familyID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "ToggleTemplate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tpl})
}

// DeleteTemplate handles DELETE /api/templates/:id. The template is deactivated, not
// removed, so past instances keep their reference.
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	familyID := callerFamily(c)
	if familyID == "" {
		return
	}
	if err := h.templates.Deactivate(c.Request.Context(), familyID, c.Param("id")); err != nil {
		writeError(c, h.logger, "DeleteTemplate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SeedDefaults handles POST /api/templates/defaults.
func (h *TemplateHandler) SeedDefaults(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	n, err := h.seeder.SeedDefaults(c.Request.Context(), claims.FamilyID, claims.UserID)
	if err != nil {
		writeError(c, h.logger, "SeedDefaults", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": n})
}
