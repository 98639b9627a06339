package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/article-optimizer/app/database"
	"github.com/lysyi3m/article-optimizer/app/pipeline"
	"github.com/lysyi3m/article-optimizer/app/progress"
	"github.com/lysyi3m/article-optimizer/app/store"
	"github.com/lysyi3m/article-optimizer/app/tasks"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

func NewHandler(articles ArticleReader, runner tasks.PipelineRunner,
	runs database.RunRepositoryInterface, scheduler tasks.TaskSchedulerInterface,
	db Pinger, leases HealthChecker) *Handler {
	return &Handler{
		articles:  articles,
		runner:    runner,
		runs:      runs,
		scheduler: scheduler,
		db:        db,
		leases:    leases,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"database":  "ok",
	}
	status := http.StatusOK

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		slog.Error("Health check failed", "component", "database", "error", err)
		health["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	// Nil when leases are kept in the database.
	if h.leases != nil {
		health["redis"] = "ok"
		if err := h.leases.Health(c.Request.Context()); err != nil {
			slog.Error("Health check failed", "component", "redis", "error", err)
			health["redis"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	if h.scheduler != nil {
		health["scheduler"] = h.scheduler.GetStats()
	}

	c.JSON(status, health)
}

func (h *Handler) APIListArticles(c *gin.Context) {
	articles, err := h.articles.ListArticles(c.Request.Context())
	if err != nil {
		slog.Error("Article store error", "operation", "list_articles", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list articles"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"articles": articles,
		"total":    len(articles),
	})
}

func (h *Handler) APIGetOriginal(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing article slug parameter"})
		return
	}

	a, err := h.articles.GetArticle(c.Request.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}
	if err != nil {
		slog.Error("Article store error", "operation", "get_article", "slug", slug, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load article"})
		return
	}

	c.JSON(http.StatusOK, a.Original())
}

// APIStream runs the pipeline in the given mode and relays its progress
// events as NDJSON. Failures after the response has started are reported
// in-band as the terminal error event.
func (h *Handler) APIStream(mode pipeline.Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := strings.TrimSpace(c.Param("slug"))
		ctx := c.Request.Context()

		c.Header("Content-Type", "application/x-ndjson")
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")

		sinks := []progress.Sink{progress.NewNDJSONWriter(c.Writer)}

		run := &database.Run{
			Slug:    slug,
			Mode:    string(mode),
			Trigger: database.TriggerStream,
			Status:  database.RunStatusRunning,
		}
		if err := h.runs.CreateRun(ctx, run); err != nil {
			slog.Warn("Failed to journal run, streaming without it", "slug", slug, "mode", mode, "error", err)
		} else {
			c.Header("X-Run-ID", run.ID)
			sinks = append(sinks, database.NewJournal(h.runs, run.ID))
		}

		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()

		stream := h.runner.Start(ctx, pipeline.Request{Slug: slug, Mode: mode})
		terminal, err := progress.Relay(stream, sinks...)
		if err != nil {
			slog.Warn("Progress sink failed", "slug", slug, "mode", mode, "run_id", run.ID, "error", err)
		}

		slog.Info("Pipeline stream finished",
			"slug", slug,
			"mode", mode,
			"run_id", run.ID,
			"result", terminal.Type)
	}
}

func (h *Handler) APIEnqueueJob(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing article slug parameter"})
		return
	}

	var req jobRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}
	if req.Mode == "" {
		req.Mode = string(pipeline.ModeFull)
	}

	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mode", "details": err.Error()})
		return
	}

	run, err := h.scheduler.SubmitRun(c.Request.Context(), slug, mode)
	if err != nil {
		slog.Error("Error enqueueing pipeline run", "slug", slug, "mode", mode, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue pipeline run",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Pipeline run enqueued",
		"run":     run,
	})
}

func (h *Handler) APIListRuns(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), slug, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "slug", slug, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"slug":  slug,
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *Handler) APIGetRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_run", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	events, err := h.runs.GetRunEvents(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_run_events", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"run":    run,
		"events": events,
	})
}
