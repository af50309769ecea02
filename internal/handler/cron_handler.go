package handler

import (
	"fmt"
	"net/http"
	"time"

	"familytasks/internal/service"
	"familytasks/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// isoMillis matches the timestamps the scheduling clients already parse.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type CronHandler struct {
	batch        *service.BatchOrchestrator
	materializer *service.Materializer
	logger       *zap.Logger
}

func NewCronHandler(batch *service.BatchOrchestrator, materializer *service.Materializer, logger *zap.Logger) *CronHandler {
	return &CronHandler{
		batch:        batch,
		materializer: materializer,
		logger:       logger,
	}
}

type cronResults struct {
	*service.Summary
	ExecutionTime string `json:"executionTime"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
}

func timestamp(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// Run handles POST /cron/daily-tasks[?familyId=].
func (h *CronHandler) Run(c *gin.Context) {
	start := time.Now()
	ctx := service.WithSource(c.Request.Context(), service.SourceCron)
	log := logger.WithTrace(ctx, h.logger)
	familyID := c.Query("familyId")

	log.Info("Daily tasks generation triggered",
		zap.String("family_id", familyID),
		zap.String("client_ip", c.ClientIP()),
	)

	var summary *service.Summary
	if familyID != "" {
		summary = h.batch.ProcessFamily(ctx, familyID)
	} else {
		var err error
		summary, err = h.batch.ProcessAllFamilies(ctx)
		if err != nil {
			log.Error("Daily tasks generation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"success":   false,
				"error":     err.Error(),
				"timestamp": timestamp(time.Now()),
			})
			return
		}
	}

	end := time.Now()
	took := end.Sub(start)
	log.Info("Daily tasks generation completed",
		zap.Int("processed_families", summary.ProcessedFamilies),
		zap.Int("tasks_created", summary.TotalTasksCreated),
		zap.Duration("took", took),
	)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Daily tasks generation completed",
		"results": cronResults{
			Summary:       summary,
			ExecutionTime: fmt.Sprintf("%dms", took.Milliseconds()),
			StartTime:     timestamp(start),
			EndTime:       timestamp(end),
		},
		"timestamp": timestamp(time.Now()),
	})
}

// Health handles GET /cron/daily-tasks.
func (h *CronHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Daily tasks cron endpoint is healthy",
		"timestamp": timestamp(time.Now()),
	})
}

// Inspect handles GET /cron/daily-tasks/families/:familyId.
func (h *CronHandler) Inspect(c *gin.Context) {
	result, err := h.materializer.Inspect(c.Request.Context(), c.Param("familyId"))
	if err != nil {
		status := statusFor(err)
		h.logger.Warn("Family inspection failed", zap.String("family_id", c.Param("familyId")), zap.Error(err))
		c.JSON(status, gin.H{
			"success":   false,
			"error":     err.Error(),
			"timestamp": timestamp(time.Now()),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"results":   result,
		"timestamp": timestamp(time.Now()),
	})
}
