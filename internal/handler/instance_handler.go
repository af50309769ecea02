package handler

import (
	"net/http"

	"familytasks/internal/model"
	"familytasks/internal/repository"
	"familytasks/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InstanceHandler struct {
	instances    repository.InstanceStore
	templates    repository.TemplateStore
	materializer *service.Materializer
	logger       *zap.Logger
}

func NewInstanceHandler(
	instances repository.InstanceStore,
	templates repository.TemplateStore,
	materializer *service.Materializer,
	logger *zap.Logger,
) *InstanceHandler {
	return &InstanceHandler{
		instances:    instances,
		templates:    templates,
		materializer: materializer,
		logger:       logger,
	}
}

// ListInstances handles GET /api/instances?date=YYYY-MM-DD; date defaults to today.
func (h *InstanceHandler) ListInstances(c *gin.Context) {
	familyID := callerFamily(c)
	if familyID == "" {
		return
	}
	date := c.DefaultQuery("date", h.materializer.Today())
	if err := model.ValidateDate(date); err != nil {
		writeError(c, h.logger, "ListInstances", err)
		return
	}

	instances, err := h.instances.ListForDate(c.Request.Context(), familyID, date)
	if err != nil {
		writeError(c, h.logger, "ListInstances", err)
		return
	}
	if instances == nil {
		instances = []model.TaskInstance{}
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "instances": instances})
}

type createInstanceRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
	Date       string `json:"date"`
}

// CreateInstance handles POST /api/instances, the manual path for any template,
// including non-daily ones.
func (h *InstanceHandler) CreateInstance(c *gin.Context) {
	familyID := callerFamily(c)
	if familyID == "" {
		return
	}

	var req createInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Date == "" {
		req.Date = h.materializer.Today()
	}

	ctx := c.Request.Context()
	tpl, err := h.templates.Get(ctx, familyID, req.TemplateID)
	if err != nil {
		writeError(c, h.logger, "CreateInstance", err)
		return
	}
	inst, err := h.instances.CreateFromTemplate(ctx, familyID, tpl, req.Date)
	if err != nil {
		writeError(c, h.logger, "CreateInstance", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"instance": inst})
}

// CompleteInstance handles POST /api/instances/:id/complete. completed_by defaults to
// the caller.
func (h *InstanceHandler) CompleteInstance(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req model.CompleteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.CompletedBy == "" {
		req.CompletedBy = claims.UserID
	}

	inst, err := h.instances.Complete(c.Request.Context(), claims.FamilyID, c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, "CompleteInstance", err)
		return
	}
	h.logger.Info("CompleteInstance: success",
		zap.String("family_id", claims.FamilyID),
		zap.String("instance_id", inst.ID),
		zap.String("completed_by", req.CompletedBy),
	)
	c.JSON(http.StatusOK, gin.H{"instance": inst})
}

// UncompleteInstance handles POST /api/instances/:id/uncomplete.
func (h *InstanceHandler) UncompleteInstance(c *gin.Context) {
	familyID := callerFamily(c)
	if familyID == "" {
		return
	}
	inst, err := h.instances.Uncomplete(c.Request.Context(), familyID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "UncompleteInstance", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instance": inst})
}

// Today handles GET /api/today: generation first, then every active template with
// today's instance.
func (h *InstanceHandler) Today(c *gin.Context) {
	familyID := callerFamily(c)
	if familyID == "" {
		return
	}
	ctx := service.WithSource(c.Request.Context(), service.SourceAPI)
	view, err := h.materializer.TodayView(ctx, familyID)
	if err != nil {
		writeError(c, h.logger, "Today", err)
		return
	}
	c.JSON(http.StatusOK, view)
}
