package server

import (
	"context"
	"net/http"
	"time"

	"tutorbook/internal/auth"
	"tutorbook/internal/booking"
	"tutorbook/internal/config"
	"tutorbook/internal/email"
	"tutorbook/internal/notify"
	"tutorbook/internal/payment"
	"tutorbook/internal/teacher"
	"tutorbook/internal/user"

	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers the router mounts. Mailer is optional
// and only backs the admin test-email route.
type Handlers struct {
	User          *user.Handler
	Teacher       *teacher.Handler
	Booking       *booking.Handler
	Payment       *payment.Handler
	Notifications *notify.Handler
	Mailer        email.Sender
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

func New(cfg *config.Config, h Handlers) *Server {
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		RequestLoggingMiddleware(),
		MetricsMiddleware(),
		corsMiddleware(),
		RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	public := router.Group("/auth")
	{
		public.POST("/register", h.User.Register)
		public.POST("/login", h.User.Login)
		public.POST("/refresh", h.User.RefreshToken)
	}

	// The gateway authenticates with its payload signature, not a JWT.
	router.POST("/payments/notification", h.Payment.Notification)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", h.User.GetMe)
		protected.GET("/teachers/:id", h.Teacher.GetProfile)

		protected.POST("/bookings", h.Booking.Create)
		protected.GET("/bookings", h.Booking.List)
		protected.GET("/bookings/:id", h.Booking.Get)
		protected.POST("/bookings/:id/confirm", h.Booking.Confirm)
		protected.POST("/bookings/:id/reject", h.Booking.Reject)
		protected.POST("/bookings/:id/cancel", h.Booking.Cancel)
		protected.POST("/bookings/:id/complete", h.Booking.Complete)
		protected.POST("/bookings/:id/rate", h.Booking.Rate)

		protected.POST("/payments", h.Payment.CreateIntent)
		protected.GET("/payments", h.Payment.List)
		protected.GET("/payments/:id", h.Payment.Get)
		protected.POST("/payments/:id/verify", h.Payment.Verify)
		protected.POST("/payments/:id/refund", h.Payment.RequestRefund)

		protected.GET("/notifications", h.Notifications.List)
		protected.POST("/notifications/:id/read", h.Notifications.MarkRead)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/bookings/:id/cancel", h.Booking.Cancel)
		admin.POST("/payments/:id/refund", h.Payment.ProcessRefund)
		admin.POST("/teachers/:id/approve", h.Teacher.Approve)
		admin.DELETE("/users/:id", h.User.Delete)
		if h.Mailer != nil {
			admin.POST("/test-email", TestEmail(h.Mailer))
		}
	}

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the listener fails or Shutdown is called, in which case
// it returns http.ErrServerClosed.
func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
