package handler

import (
	"net/http"

	"familytasks/internal/model"
	"familytasks/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FamilyHandler struct {
	families *service.FamilyService
	logger   *zap.Logger
}

func NewFamilyHandler(families *service.FamilyService, logger *zap.Logger) *FamilyHandler {
	return &FamilyHandler{families: families, logger: logger}
}

type registerFamilyRequest struct {
	Name         string `json:"name"`
	SeedDefaults bool   `json:"seed_defaults"`
}

// RegisterFamily handles POST /api/families for the caller's own family.
func (h *FamilyHandler) RegisterFamily(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req registerFamilyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	family := &model.Family{ID: claims.FamilyID, Name: req.Name}
	seeded, err := h.families.Register(c.Request.Context(), family, req.SeedDefaults, claims.UserID)
	if err != nil {
		writeError(c, h.logger, "RegisterFamily", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"family": family, "templates_created": seeded})
}
