package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dockmatch/internal/handler"
	"dockmatch/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	recordH *handler.RecordHandler,
	matchingH *handler.MatchingHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
	logger *logrus.Logger,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept", "Origin", "X-Requested-With", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health checks
	r.GET("/health", healthH.Liveness)
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Record ingest and retrieval
	invoices := v1.Group("/invoices")
	invoices.POST("", recordH.CreateInvoice)
	invoices.GET("", recordH.ListInvoices)
	invoices.GET("/:id", recordH.GetInvoice)

	notes := v1.Group("/delivery-notes")
	notes.POST("", recordH.CreateDeliveryNote)
	notes.GET("", recordH.ListDeliveryNotes)
	notes.GET("/:id", recordH.GetDeliveryNote)

	// Reconciliation workflow
	invoices.GET("/:id/matching", matchingH.GetPair)
	invoices.GET("/:id/matching/candidates", matchingH.GetCandidates)
	invoices.POST("/:id/matching/confirm", matchingH.Confirm)
	invoices.POST("/:id/matching/reject", matchingH.Reject)

	venues := v1.Group("/venues")
	venues.POST("/:venue_id/matching/retry-late", matchingH.RetryLate)
	venues.GET("/:venue_id/matching/summary", matchingH.Summary)
	venues.GET("/:venue_id/matching/tolerances", matchingH.GetTolerances)
	venues.PUT("/:venue_id/matching/tolerances", matchingH.PutTolerances)
	venues.GET("/:venue_id/matching/export", matchingH.Export)

	return r
}
