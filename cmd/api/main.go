package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tipulhub/tipul-server/cmd/mainconfig"
	"github.com/tipulhub/tipul-server/internal/api/router"
	"github.com/tipulhub/tipul-server/internal/app/bootstrap"
	"github.com/tipulhub/tipul-server/internal/appointments"
	"github.com/tipulhub/tipul-server/internal/booking"
	appconfig "github.com/tipulhub/tipul-server/internal/config"
	"github.com/tipulhub/tipul-server/internal/notify"
	"github.com/tipulhub/tipul-server/internal/observability/metrics"
	"github.com/tipulhub/tipul-server/internal/payments"
	"github.com/tipulhub/tipul-server/internal/practice"
	"github.com/tipulhub/tipul-server/internal/scheduling"
	"github.com/tipulhub/tipul-server/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting tipul-server API",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := bootstrap.BuildDatabasePool(ctx, cfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis unavailable; practice profiles require it")
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	// Payments
	providerSet, err := bootstrap.BuildProviderSet(cfg, logger)
	if err != nil {
		logger.Error("payment provider setup failed", "error", err)
		os.Exit(1)
	}
	payRepo := payments.NewPostgresRepository(pool)
	limits := payments.Limits{
		Currency:  cfg.Currency,
		MinAgorot: cfg.PaymentMinAgorot,
		MaxAgorot: cfg.PaymentMaxAgorot,
	}
	paySvc := payments.NewService(limits, providerSet, payRepo, logger).
		WithInvoicing(cfg.InvoicingEnabled).
		WithMetadataLogging(cfg.LogPaymentMetadata).
		WithMetrics(paymentMetrics)
	refunds := payments.NewCoordinator(providerSet, payRepo, logger).
		WithMetrics(paymentMetrics)

	// Booking
	profileStore := practice.NewStore(redisClient).
		WithAutoConfirmDefault(cfg.AutoConfirmBookings)
	apptRepo := appointments.NewPostgresRepository(pool)
	generator := scheduling.NewGenerator(profileStore, apptRepo, cfg.BookingLookaheadDays)
	apptSvc := appointments.NewService(apptRepo, generator, profileStore, logger).
		WithCancelWindow(cfg.CancellationWindow).
		WithCharger(paySvc).
		WithRefunder(refunds).
		WithMetrics(bookingMetrics)

	// Email notifications (optional)
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	if sender := bootstrap.BuildEmailSender(cfg, awsCfg, logger); sender != nil {
		mailer := notify.NewBookingMailer(sender, profileStore, cfg.PublicBaseURL, logger)
		apptSvc.WithNotifier(mailer)
	} else {
		logger.Warn("email disabled; confirmation mails will not be sent")
	}

	bookingHandler := booking.NewHandler(apptSvc, generator, profileStore, logger)
	paymentsHandler := payments.NewHandler(paySvc, refunds, payRepo, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		BookingHandler:     bookingHandler,
		PaymentsHandler:    paymentsHandler,
		AdminJWTSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		BookingRateLimit:   5,
		BookingRateBurst:   20,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
