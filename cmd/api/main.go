package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/wwellington85/gym-membership-app-sub000/internal/http/handlers"
	httpmw "github.com/wwellington85/gym-membership-app-sub000/internal/http/middleware"
	"github.com/wwellington85/gym-membership-app-sub000/internal/platform/cache"
	"github.com/wwellington85/gym-membership-app-sub000/internal/qr"
	"github.com/wwellington85/gym-membership-app-sub000/internal/repo/postgres"
	"github.com/wwellington85/gym-membership-app-sub000/internal/service"
	"github.com/wwellington85/gym-membership-app-sub000/internal/webhook"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/config"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/database"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/events"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/logger"
	mw "github.com/wwellington85/gym-membership-app-sub000/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, using environment")
	}
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Redis backs the idempotency middleware on the staff check-in route
	redisStore, err := cache.NewRedisStore(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()

	// Initialize repositories
	memberRepo := postgres.NewMemberRepo(pool)
	staffRepo := postgres.NewStaffRepo(pool)
	planRepo := postgres.NewPlanRepo(pool)
	membershipRepo := postgres.NewMembershipRepo(pool)
	checkinRepo := postgres.NewCheckinRepo(pool)
	paymentRepo := postgres.NewPaymentRepo(pool)
	settingsRepo := postgres.NewSettingsRepo(pool)

	// Initialize services
	membershipSvc := service.NewMembershipService(memberRepo, membershipRepo, planRepo, cfg)
	checkinSvc := service.NewCheckinService(checkinRepo, settingsRepo, eventBus)
	paymentSvc := service.NewPaymentService(paymentRepo, membershipRepo, memberRepo, planRepo, eventBus, cfg)
	authSvc := service.NewAuthService(memberRepo, staffRepo, cfg)
	sweeperSvc := service.NewSweeperService(membershipRepo, planRepo, settingsRepo, eventBus, cfg)

	codec := qr.NewCodec(cfg.QR.Secret, cfg.QR.TTL, cfg.QR.MinTTL)
	verifier := webhook.NewVerifier(cfg.Webhook.Keys, cfg.Webhook.ReplayWindow)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc, membershipSvc)
	memberHandler := handlers.NewMemberHandler(membershipSvc, checkinSvc, paymentSvc, codec)
	gateHandler := handlers.NewGateHandler(membershipSvc, checkinSvc, codec)
	webhookHandler := handlers.NewWebhookHandler(verifier, paymentSvc)

	loginLimiter := httpmw.NewRateLimiter(pool, httpmw.RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
		KeyFunc:  httpmw.LoginRateLimitKeyFunc,
	})
	gateLimiter := httpmw.NewRateLimiter(pool, httpmw.RateLimitConfig{
		Requests: 120,
		Window:   time.Minute,
		KeyFunc:  httpmw.GateRateLimitKeyFunc,
	})

	requireJWT := httpmw.RequireJWT(cfg.Auth.JWTSecret)

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("membership-api"))
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000", "*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)

	r.Route("/", func(r chi.Router) {
		r.With(loginLimiter.Middleware()).Mount("/auth", authHandler.Routes())

		r.Get("/plans", memberHandler.Plans)

		r.Route("/member", func(r chi.Router) {
			r.With(loginLimiter.Middleware()).Post("/login", authHandler.MemberLogin)

			r.Group(func(r chi.Router) {
				r.Use(requireJWT, httpmw.RequireMember)
				r.Mount("/", memberHandler.Routes())
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(requireJWT, httpmw.RequireMember)
			r.Post("/", memberHandler.Checkout)
		})

		r.Route("/gate", func(r chi.Router) {
			r.Use(requireJWT, httpmw.RequireStaff)
			r.Use(gateLimiter.Middleware())
			r.Mount("/", gateHandler.Routes())
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(requireJWT, httpmw.RequireStaff)
			r.With(mw.Idempotency(redisStore)).Post("/checkins", gateHandler.Checkin)
		})

		r.Mount("/webhooks", webhookHandler.Routes())
	})

	// Background downgrade sweeper
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	go sweeperSvc.Start(sweepCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down membership API...")
		stopSweeper()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Membership API shutdown error", "error", err)
		}
	}()

	logger.Info("Membership API listening", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
