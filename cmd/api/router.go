package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"grimoire-backend/internal/shared/middleware"
	"grimoire-backend/internal/shared/response"
	"grimoire-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c.Config.App.Version, []healthProbe{
			{"database", c.DB.HealthCheck},
			{"redis", c.Cache.Ping},
			{"storage", c.Storage.HealthCheck},
		}))

		setupAuthRoutes(v1, c)
		setupBookRoutes(v1, c)
	}

	return router
}

func setupAuthRoutes(v1 *gin.RouterGroup, c *container.Container) {
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", c.UserHandler.Signup)
		auth.POST("/login", c.UserHandler.Login)
	}
}

// Reads are public; every mutation and the export require a valid token.
func setupBookRoutes(v1 *gin.RouterGroup, c *container.Container) {
	books := v1.Group("/books")
	{
		books.GET("", c.BookHandler.ListBooks)
		books.GET("/bestrating", c.BookHandler.TopRatedBooks)
		books.GET("/:id", c.BookHandler.GetBook)

		authed := books.Group("")
		authed.Use(middleware.AuthMiddleware(c.JWTManager))
		{
			authed.POST("", c.BookHandler.CreateBook)
			authed.GET("/export", c.BookHandler.ExportBooks)
			authed.PUT("/:id", c.BookHandler.UpdateBook)
			authed.DELETE("/:id", c.BookHandler.DeleteBook)
			authed.POST("/:id/rating", c.BookHandler.RateBook)
		}
	}
}

// healthProbe names one external dependency check.
type healthProbe struct {
	name  string
	check func(ctx context.Context) error
}

func healthCheckHandler(version string, probes []healthProbe) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := gin.H{
			"status":  "ok",
			"version": version,
		}
		healthy := true

		for _, probe := range probes {
			if err := probe.check(ctx.Request.Context()); err != nil {
				healthy = false
				status[probe.name] = err.Error()
			}
		}

		if !healthy {
			status["status"] = "degraded"
			response.Success(ctx, http.StatusServiceUnavailable, status)
			return
		}

		response.Success(ctx, http.StatusOK, status)
	}
}
