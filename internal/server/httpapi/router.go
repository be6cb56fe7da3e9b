package httpapi

import (
	"time"

	"github.com/dmitrijs2005/mockpay/internal/logging"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Sessions SessionManager
	Payments PaymentProcessor
	Tokens   TokenValidator
	Stats    StatsSource
	Metrics  *Metrics
	Logger   logging.Logger
}

type handlers struct {
	sessions SessionManager
	payments PaymentProcessor
	stats    StatsSource
	logger   logging.Logger
	now      func() time.Time
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	h := &handlers{
		sessions: d.Sessions,
		payments: d.Payments,
		stats:    d.Stats,
		logger:   d.Logger.With("module", "http_api"),
		now:      time.Now,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/health", h.health)

	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)
	authGroup.POST("/refresh", h.refresh)

	payGroup := r.Group("/api/payment")
	payGroup.Use(bearerAuth(d.Tokens))
	payGroup.POST("/charge", h.charge)
	payGroup.POST("/refund", h.refund)
	payGroup.GET("/stats", h.paymentStats)

	return r
}
