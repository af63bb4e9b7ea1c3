package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports backend connectivity for the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	orders  *service.OrderService
	catalog *service.CatalogService
	reviews *service.ReviewService
	pingers []Pinger
}

// NewHandler creates a new HTTP handler
func NewHandler(orders *service.OrderService, catalog *service.CatalogService, reviews *service.ReviewService, pingers ...Pinger) *Handler {
	return &Handler{
		orders:  orders,
		catalog: catalog,
		reviews: reviews,
		pingers: pingers,
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
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/products/:id/reviews", h.listReviews)
		v1.GET("/categories", h.listCategories)
		v1.GET("/categories/:id/products", h.listProductsByCategory)

		v1.POST("/orders", h.placeOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.POST("/products/:id/reviews", h.submitReview)

		admin := v1.Group("/admin", requireAdmin())
		{
			admin.POST("/products", h.createProduct)
			admin.PATCH("/products/:id", h.updateProduct)
			admin.POST("/products/:id/restock", h.restockProduct)
			admin.PATCH("/orders/:id/status", h.updateOrderStatus)
			admin.PATCH("/orders/:id/payment", h.updatePaymentStatus)
			admin.PATCH("/orders/:id/tracking", h.updateTracking)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck verifies the backing stores are reachable
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for _, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// Identity is set by the upstream gateway; full authentication lives there.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	roleAdmin      = "admin"
)

func actorID(c *gin.Context) string {
	return c.GetHeader(headerUserID)
}

func isAdmin(c *gin.Context) bool {
	return c.GetHeader(headerUserRole) == roleAdmin
}

// requireAdmin gates administrative routes on the gateway-provided role.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin role required",
			})
			return
		}
		c.Next()
	}
}

// respondError maps domain errors to HTTP statuses. Every failure maps to
// a specific result the client can branch on.
func respondError(c *gin.Context, err error) {
	var (
		notFound     *models.NotFoundError
		unavailable  *models.ProductUnavailableError
		insufficient *models.InsufficientStockError
		terminal     *models.TerminalStateError
		validation   *models.ValidationError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":  err.Error(),
			"entity": notFound.Entity,
			"id":     notFound.ID,
		})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, gin.H{
			"error":   err.Error(),
			"product": unavailable.Name,
		})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"product":   insufficient.Name,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
	case errors.Is(err, models.ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
	case errors.As(err, &terminal):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"state": string(terminal.State),
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"field": validation.Field,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal error",
		})
	}
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
