package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/flaboy/aira-donate/pkg/extensions/payment"
	"github.com/flaboy/aira-donate/pkg/store"
	"github.com/gin-gonic/gin"
)

type Options struct {
	// LegacyPrefix mounts every route a second time, e.g. /.netlify/functions.
	LegacyPrefix   string
	WebhookSecret  string
	// AdminToken guards the donation listing and export routes. Empty
	// leaves them closed.
	AdminToken     string
	RequestTimeout time.Duration
	// Health reports whether the database is reachable.
	Health func(ctx context.Context) error
}

// Server exposes the donation flow over HTTP.
type Server struct {
	payments  *payment.PaymentManager
	donations *store.DonationStore
	opts      Options
	router    *gin.Engine
}

func NewServer(payments *payment.PaymentManager, donations *store.DonationStore, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors())

	s := &Server{
		payments:  payments,
		donations: donations,
		opts:      opts,
		router:    router,
	}

	router.GET("/healthz", s.handle(s.healthz))
	s.registerRoutes(router.Group("/api"))
	if opts.LegacyPrefix != "" {
		s.registerRoutes(router.Group(opts.LegacyPrefix))
	}
	return s
}

func (s *Server) registerRoutes(r *gin.RouterGroup) {
	r.POST("/create-order", s.handle(s.createOrder))
	r.POST("/create-subscription", s.handle(s.createSubscription))
	r.GET("/get-plan-id", s.handle(s.getPlanID))
	r.POST("/verify-payment", s.handle(s.verifyPayment))

	r.POST("/donations", s.handle(s.createDonation))

	admin := r.Group("", adminOnly(s.opts.AdminToken))
	admin.GET("/donations", s.handle(s.listDonations))
	admin.GET("/donations/:id", s.handle(s.getDonation))
	admin.GET("/export/donations", s.handle(s.exportDonations))

	r.POST("/webhooks/razorpay", s.handle(s.razorpayWebhook))
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("[Server] Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.RequestTimeout)
	defer cancel()
	slog.Info("[Server] Shutting down")
	return srv.Shutdown(shutdownCtx)
}

type handlerFunc func(c *gin.Context) error

// handle adapts an error returning handler; errors are rendered by writeError.
func (s *Server) handle(fn handlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		if err := fn(c); err != nil {
			writeError(c, err)
		}
	}
}

func (s *Server) healthz(c *gin.Context) error {
	if s.opts.Health != nil {
		if err := s.opts.Health(c.Request.Context()); err != nil {
			slog.Error("[Server] Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "database unavailable"})
			return nil
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
	return nil
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token, X-Razorpay-Signature")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// adminOnly accepts "Authorization: Bearer <token>" or X-Admin-Token.
func adminOnly(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader("X-Admin-Token")
		if auth := c.GetHeader("Authorization"); given == "" && strings.HasPrefix(auth, "Bearer ") {
			given = strings.TrimPrefix(auth, "Bearer ")
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			slog.Warn("[Server] Unauthorized admin request", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("[Server] Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
