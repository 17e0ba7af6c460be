package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk"
	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v76"

	"peptideTrackAPI/handlers"
	"peptideTrackAPI/internal/config"
	"peptideTrackAPI/internal/events"
	"peptideTrackAPI/internal/logger"
	"peptideTrackAPI/internal/notification"
	"peptideTrackAPI/internal/titration"
	"peptideTrackAPI/middleware"
	"peptideTrackAPI/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not built yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()
	middleware.SetLogger(log)

	clerk.SetKey(cfg.ClerkSecretKey)
	log.Infof("Clerk initialized successfully")

	if cfg.StripeSecretKey != "" {
		stripe.Key = cfg.StripeSecretKey
	}

	dbPool := connectDB(cfg, log)
	defer func() {
		log.Infof("Closing database connection pool...")
		dbPool.Close()
	}()

	store := services.NewRecordStore(dbPool)
	bus := events.NewUnlockBus()

	services.RegisterMetrics(prometheus.DefaultRegisterer)
	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	bus.Subscribe(services.CountUnlocks)

	dispatcher := services.NewNotificationDispatcher(store, log, 5, 100)
	defer dispatcher.Stop()
	fcmService, err := notification.NewFCMService(context.Background(), cfg.FCMServiceAccountJSON, cfg.FCMCredentialsFile, log)
	if err != nil {
		log.Warnf("Could not initialize FCM, unlock notifications are stored only: %v", err)
	} else {
		dispatcher.SetPushProvider(fcmService)
		log.Infof("FCM Push Provider initialized successfully")
	}
	bus.Subscribe(dispatcher.HandleUnlock)

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("peptide-track-api"))
		if err != nil {
			log.Warnf("NATS unavailable at %s, unlock events stay local: %v", cfg.NATSURL, err)
		} else {
			defer nc.Drain()
			bus.Subscribe(services.NewUnlockPublisher(nc, log).HandleUnlock)
			log.Infof("Publishing unlock events to NATS")
		}
	}

	var paddleClient *paddle.SDK
	if cfg.PaddleAPIKey != "" {
		baseURL := paddle.ProductionBaseURL
		if cfg.PaddleSandbox {
			baseURL = paddle.SandboxBaseURL
		}
		paddleClient, err = paddle.New(cfg.PaddleAPIKey, paddle.WithBaseURL(baseURL))
		if err != nil {
			log.Warnf("Could not initialize Paddle: %v", err)
			paddleClient = nil
		}
	}

	achievementService := services.NewAchievementService(store, store, bus, log, cfg.Timezone)
	premiumService := services.NewPremiumService(store, paddleClient, log)
	titrationService := services.NewTitrationService(titration.DefaultCatalog(), premiumService, store, achievementService, log, cfg.Timezone)
	injectionService := services.NewInjectionService(store, achievementService, log)
	notificationService := services.NewNotificationService(store, log)

	achievementHandler := handlers.NewAchievementHandler(achievementService)
	injectionHandler := handlers.NewInjectionHandler(injectionService)
	titrationHandler := handlers.NewTitrationHandler(titrationService, premiumService, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(premiumService, cfg.StripeWebhookSecret, log)
	paddleHandler := handlers.NewPaddleHandler(premiumService, cfg.PaddleSecretKey, log)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	rateLimiter := middleware.NewRateLimiter(5, 30)
	go rateLimiter.CleanupVisitors(ctx)

	r := mux.NewRouter()
	r.Use(rateLimiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := dbPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "peptide-track-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/stripe", webhookHandler.HandleStripeWebhook).Methods("POST")
	r.HandleFunc("/webhooks/paddle", paddleHandler.PaddleWebhookHandler).Methods("POST")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/titration/protocols", titrationHandler.GetProtocols).Methods("GET")
	api.HandleFunc("/subscription/prices", paddleHandler.GetPrices).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/achievements", achievementHandler.GetAchievements).Methods("GET")
	protected.HandleFunc("/achievements/points", achievementHandler.GetPoints).Methods("GET")
	protected.HandleFunc("/achievements/evaluate", achievementHandler.Evaluate).Methods("POST")
	protected.HandleFunc("/achievements/feature-usage", achievementHandler.RecordFeatureUsage).Methods("POST")

	protected.HandleFunc("/injections", injectionHandler.LogInjection).Methods("POST")

	protected.HandleFunc("/titration/schedule", titrationHandler.GenerateSchedule).Methods("POST")
	protected.HandleFunc("/titration/export", titrationHandler.ExportSchedule).Methods("POST")
	protected.HandleFunc("/titration/apply", titrationHandler.ApplyToCalendar).Methods("POST")

	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length", "Content-Disposition"}),
	)

	server := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	log.Infof("Got signal: %v", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}

	log.Infof("Server shutdown complete")
}

func connectDB(cfg *config.Config, log logger.Logger) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to parse database URL: %v", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Infof("Successfully connected to Postgres")
	return dbPool
}
