package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "freightrates/docs"
	"freightrates/internal/auth"
	"freightrates/internal/config"
	"freightrates/internal/handler"
	"freightrates/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
// A nil validator leaves the API unauthenticated.
func Setup(
	cfg *config.Config,
	validator auth.TokenValidator,
	parseH *handler.ParseHandler,
	jobH *handler.JobHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.BodyLimit(cfg.Server.MaxBodySizeMB))
	if validator != nil {
		v1.Use(middleware.AuthMiddleware(validator))
	}

	parse := v1.Group("/parse")
	parse.POST("/email", parseH.ParseEmail)
	parse.POST("/file", parseH.ParseFile)
	parse.POST("/sections", parseH.Sections)

	jobs := v1.Group("/jobs")
	jobs.GET("", jobH.List)
	jobs.GET("/:id", jobH.GetByID)
	jobs.POST("/:id/retry", jobH.Retry)
	jobs.GET("/:id/export", jobH.Export)

	return r
}
