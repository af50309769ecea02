package httpserver

import (
	"context"
	"net/http"
	"time"

	"familytasks/internal/handler"
	"familytasks/pkg/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Options struct {
	Cron      *handler.CronHandler
	Templates *handler.TemplateHandler
	Instances *handler.InstanceHandler
	Families  *handler.FamilyHandler

	JWTSecret string
	// CronAuthRequired is true in production; CronSecret is then mandatory.
	CronAuthRequired bool
	CronSecret       string

	Readiness []ReadinessCheck
	Logger    *zap.Logger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(opts Options) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), RequestLogger(opts.Logger), MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for _, rc := range opts.Readiness {
			if err := rc.Check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": rc.Name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cron := r.Group("/cron/daily-tasks")
	cron.GET("", opts.Cron.Health)
	cron.Use(CronAuth(opts.CronAuthRequired, opts.CronSecret))
	{
		cron.POST("", opts.Cron.Run)
		cron.GET("/families/:familyId", opts.Cron.Inspect)
	}

	api := r.Group("/api")
	api.Use(AuthMiddleware(opts.JWTSecret))
	{
		api.GET("/templates", RequirePermission(rbac.PermissionReadTemplate), opts.Templates.ListTemplates)
		api.POST("/templates", RequirePermission(rbac.PermissionWriteTemplate), opts.Templates.CreateTemplate)
		api.POST("/templates/defaults", RequirePermission(rbac.PermissionWriteTemplate), opts.Templates.SeedDefaults)
		api.PATCH("/templates/:id", RequirePermission(rbac.PermissionWriteTemplate), opts.Templates.UpdateTemplate)
		api.POST("/templates/:id/toggle", RequirePermission(rbac.PermissionWriteTemplate), opts.Templates.ToggleTemplate)
		api.DELETE("/templates/:id", RequirePermission(rbac.PermissionWriteTemplate), opts.Templates.DeleteTemplate)

		api.GET("/instances", RequirePermission(rbac.PermissionReadInstance), opts.Instances.ListInstances)
		api.POST("/instances", RequirePermission(rbac.PermissionCreateInstance), opts.Instances.CreateInstance)
		api.POST("/instances/:id/complete", RequirePermission(rbac.PermissionCompleteInstance), opts.Instances.CompleteInstance)
		api.POST("/instances/:id/uncomplete", RequirePermission(rbac.PermissionCompleteInstance), opts.Instances.UncompleteInstance)
		api.GET("/today", RequirePermission(rbac.PermissionReadInstance), opts.Instances.Today)

		api.POST("/families", RequirePermission(rbac.PermissionManageFamily), opts.Families.RegisterFamily)
	}

	return &Router{Engine: r}
}
