package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"reorder-service/internal/schema"
	"reorder-service/internal/service"
	"reorder-service/internal/trainer"
	"reorder-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	ingestService   *service.IngestService
	forecastService *service.ForecastService
}

// NewHandler creates a new HTTP handler
func NewHandler(ingestService *service.IngestService, forecastService *service.ForecastService) *Handler {
	return &Handler{
		ingestService:   ingestService,
		forecastService: forecastService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/ingest", h.ingest)
		v1.POST("/train", h.train)
		v1.POST("/recommendations", h.recommend)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type ingestRequest struct {
	CSVPath   string `json:"csv_path" binding:"required"`
	StorePath string `json:"store_path,omitempty"`
}

// ingest handles history file ingestion
func (h *Handler) ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.ingestService.IngestFileInto(c.Request.Context(), req.CSVPath, req.StorePath)
	if err != nil {
		var valErr *schema.ValidationError
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Schema validation failed",
				"stage":   valErr.Stage,
				"columns": valErr.Columns,
				"details": valErr.Error(),
			})
			return
		}
		if errors.Is(err, service.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "History file not found",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to ingest file",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// train handles model training requests
func (h *Handler) train(c *gin.Context) {
	result, err := h.forecastService.Train(c.Request.Context())
	if err != nil {
		if errors.Is(err, trainer.ErrEmptyHistory) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "No order history to train on",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Training failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// recommend handles order recommendation requests
func (h *Handler) recommend(c *gin.Context) {
	var req service.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.forecastService.Recommend(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPeriod):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Unknown target period",
				"details": err.Error(),
			})
		case errors.Is(err, service.ErrUntrainedModel):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "No trained model available, run training first",
				"details": err.Error(),
			})
		case errors.Is(err, trainer.ErrEmptyHistory):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "No order history in store",
				"details": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to generate recommendations",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
