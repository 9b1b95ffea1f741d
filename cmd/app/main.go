package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "tutorbook/docs"
	"tutorbook/internal/booking"
	"tutorbook/internal/config"
	"tutorbook/internal/db"
	"tutorbook/internal/email"
	"tutorbook/internal/gateway"
	"tutorbook/internal/jobs"
	"tutorbook/internal/logger"
	"tutorbook/internal/notify"
	"tutorbook/internal/payment"
	"tutorbook/internal/server"
	"tutorbook/internal/teacher"
	"tutorbook/internal/user"
)

// @title Tutorbook API
// @version 1.0
// @description API for booking and paying for language lessons.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.InitWith(cfg.LogLevel, cfg.LogFormat); err != nil {
		logger.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("Starting Tutorbook", "env", cfg.Env, "timezone", cfg.Location.String())

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emailService := email.New(
		cfg.EmailFrom,
		cfg.EmailFromName,
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPass,
		cfg.RedisAddr,
	)
	defer emailService.Close()
	go emailService.Start(ctx)

	// The broker is optional; notifications are still stored and mailed
	// without it.
	var publisher notify.Publisher
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := notify.DialPublisher(cfg.RabbitMQURL, cfg.NotifyExchange)
		if err != nil {
			logger.Error("RabbitMQ unavailable, publishing disabled", "error", err)
		} else {
			defer amqpPublisher.Close()
			publisher = amqpPublisher
		}
	}

	userRepo := user.NewRepository(database)
	teacherRepo := teacher.NewRepository(database)
	bookingRepo := booking.NewRepository(database)
	paymentRepo := payment.NewRepository(database)
	notifyRepo := notify.NewRepository(database)

	teacherService := teacher.NewService(teacherRepo)
	userService := user.NewService(userRepo, teacherService, bookingRepo, cfg.JWTSecret)
	dispatcher := notify.NewDispatcher(notifyRepo, publisher, emailService, userService)

	bookingService := booking.NewService(bookingRepo, teacherService, dispatcher, booking.Options{
		Location: cfg.Location,
		TTL:      cfg.BookingTTL,
	})

	midtrans, err := gateway.NewMidtrans(cfg.MidtransServerKey, cfg.MidtransProduction, cfg.PaymentCurrency)
	if err != nil {
		logger.Fatalf("Failed to configure payment gateway: %v", err)
	}
	paymentService := payment.NewService(paymentRepo, bookingRepo, userService, midtrans, midtrans, dispatcher, payment.Options{
		Currency: cfg.PaymentCurrency,
		Location: cfg.Location,
	})

	iv := jobs.DefaultIntervals()
	iv.Expiry = cfg.ExpirySweepInterval
	scheduler := jobs.NewScheduler(bookingService, dispatcher, iv)
	scheduler.Start(ctx)

	srv := server.New(cfg, server.Handlers{
		User:          user.NewHandler(userService),
		Teacher:       teacher.NewHandler(teacherService),
		Booking:       booking.NewHandler(bookingService),
		Payment:       payment.NewHandler(paymentService),
		Notifications: notify.NewHandler(dispatcher),
		Mailer:        emailService,
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	cancel()
	scheduler.Stop()

	logger.Info("Server stopped")
}
