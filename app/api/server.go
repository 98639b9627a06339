package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/article-optimizer/app/pipeline"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey, version string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")
		c.Header("Access-Control-Expose-Headers", "X-Run-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey, version)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey, version string) {
	r.GET("/health", handler.GetHealth)

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API endpoints require authentication")
	} else {
		slog.Warn("API endpoints are open (API_ACCESS_KEY not set)")
	}
	{
		api.GET("/articles", handler.APIListArticles)
		api.GET("/articles/:slug/original", handler.APIGetOriginal)
		api.GET("/articles/:slug/targeting", handler.APIStream(pipeline.ModeTargeting))
		api.GET("/articles/:slug/updated", handler.APIStream(pipeline.ModeOptimize))
		api.GET("/articles/:slug/pipeline", handler.APIStream(pipeline.ModeFull))
		api.POST("/articles/:slug/jobs", handler.APIEnqueueJob)
		api.GET("/articles/:slug/runs", handler.APIListRuns)
		api.GET("/runs/:id", handler.APIGetRun)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Article Optimizer",
			"version":     version,
			"description": "SEO targeting and competitor-informed rewriting for stored articles",
			"endpoints": map[string]string{
				"health":    "/health",
				"articles":  "/api/articles",
				"original":  "/api/articles/<slug>/original",
				"targeting": "/api/articles/<slug>/targeting (NDJSON stream)",
				"updated":   "/api/articles/<slug>/updated (NDJSON stream)",
				"pipeline":  "/api/articles/<slug>/pipeline (NDJSON stream)",
				"jobs":      "/api/articles/<slug>/jobs (POST)",
				"runs":      "/api/articles/<slug>/runs",
				"run":       "/api/runs/<id>",
			},
			"api_status": map[string]interface{}{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
