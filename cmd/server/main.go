package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tullo/relay/config"
	"github.com/tullo/relay/internal/auth"
	"github.com/tullo/relay/internal/cache"
	"github.com/tullo/relay/internal/database"
	"github.com/tullo/relay/internal/events"
	"github.com/tullo/relay/internal/handlers"
	"github.com/tullo/relay/internal/metrics"
	"github.com/tullo/relay/internal/middleware"
	"github.com/tullo/relay/internal/repository"
	"github.com/tullo/relay/internal/service"
	"github.com/tullo/relay/internal/sink"
	"github.com/tullo/relay/internal/websocket"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupGracefulShutdown(cancel)

	// Connect to Redis
	var store cache.Store
	var remoteLimiter middleware.RemoteLimiter
	redisStore, err := cache.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		if cfg.IsProduction() {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Printf("WARN failed to connect to Redis: %v", err)
		log.Println("WARN running with the in-memory store, state is local to this process")
		store = cache.NewMemoryStore()
	} else {
		store = redisStore
		remoteLimiter = redisStore
	}
	defer store.Close()

	// Optional webhook delivery log
	var recorder handlers.DeliveryRecorder
	var lister handlers.DeliveryLister
	if cfg.Database.URL != "" {
		db, err := database.NewPostgresDB(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		log.Println("Running database migrations...")
		if err := database.RunMigrations(db.DB); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Migrations completed successfully")

		deliveries := repository.NewDeliveryRepository(db)
		recorder, lister = deliveries, deliveries
	}

	// Event mirrors
	var mirrors []events.Mirror
	if len(cfg.Sinks.KafkaBrokers) > 0 {
		kafkaSink := sink.NewKafkaSink(cfg.Sinks.KafkaBrokers, cfg.Sinks.KafkaTopic)
		defer kafkaSink.Close()
		mirrors = append(mirrors, kafkaSink)
		log.Printf("INFO mirroring events to Kafka topic %s", cfg.Sinks.KafkaTopic)
	}
	if cfg.Sinks.KinesisStream != "" {
		kinesisSink, err := sink.NewKinesisSink(cfg.Sinks.AWSRegion, cfg.Sinks.KinesisStream)
		if err != nil {
			log.Printf("WARN Kinesis mirror disabled: %v", err)
		} else {
			mirrors = append(mirrors, kinesisSink)
			log.Printf("INFO mirroring events to Kinesis stream %s", cfg.Sinks.KinesisStream)
		}
	}

	// Initialize services
	bus := events.NewBus(store, mirrors...)
	streams := service.NewStreamService(store, bus)
	alerts := service.NewAlertService(store, bus)

	var tokens *auth.ServiceTokens
	if cfg.Auth.InternalSecret != "" {
		tokens = auth.NewServiceTokens(cfg.Auth.InternalSecret, cfg.Auth.ServiceTokenTTL)
	} else {
		log.Println("WARN INTERNAL_API_SECRET not set, POST /alerts/purchase is unauthenticated")
	}
	admin := auth.AdminCredentials{
		Username:     cfg.Auth.AdminUsername,
		PasswordHash: cfg.Auth.AdminPasswordHash,
	}
	if !admin.Enabled() {
		log.Println("WARN ADMIN_PASSWORD_HASH not set, admin routes are unauthenticated")
	}

	var next service.Forwarder = service.NewLocalForwarder(alerts)
	if cfg.Alerts.ServiceURL != "" {
		next = service.NewHTTPForwarder(cfg.Alerts.ServiceURL, cfg.Alerts.ForwardTimeout, tokens)
	}
	forwarder := service.NewAsyncForwarder(next, cfg.Alerts.ForwardTimeout)

	// Overlay websocket hub
	hub := websocket.NewHub(bus)
	go hub.Run(ctx)

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.API.RateLimitRequestsPerSec, remoteLimiter)
	rateLimiter.Cleanup(ctx, time.Minute, 10*time.Minute)

	metrics.Register()

	// Initialize handlers
	streamHandler := handlers.NewStreamHandler(streams)
	alertHandler := handlers.NewAlertHandler(alerts, bus)
	polarHandler := handlers.NewPolarWebhookHandler(cfg.Webhooks, forwarder, recorder)
	twitchHandler := handlers.NewTwitchWebhookHandler(cfg.Webhooks, store, streams, recorder)
	adminHandler := handlers.NewAdminHandler(lister)
	wsHandler := websocket.NewHandler(hub, cfg.CORS.AllowedOrigins)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger(), middleware.RecoveryMiddleware(), middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAdmin := middleware.AdminAuthMiddleware(admin)

	router.GET("/stream/status", streamHandler.GetStatus)
	router.POST("/stream/status", requireAdmin, streamHandler.SetStatus)

	webhooks := router.Group("/webhooks")
	webhooks.Use(middleware.RateLimitMiddleware(rateLimiter, "webhooks"))
	{
		webhooks.POST("/polar", polarHandler.Handle)
		webhooks.POST("/twitch", twitchHandler.Handle)
	}

	alertRoutes := router.Group("/alerts")
	alertRoutes.Use(middleware.RateLimitMiddleware(rateLimiter, "alerts"))
	{
		alertRoutes.POST("/purchase", middleware.ServiceAuthMiddleware(tokens, auth.ScopeAlertsWrite), alertHandler.PostPurchase)
		alertRoutes.GET("/recent", alertHandler.GetRecent)
		alertRoutes.GET("/stream", alertHandler.Stream)
		alertRoutes.GET("/ws", wsHandler.HandleWebSocket)
	}

	adminRoutes := router.Group("/admin")
	adminRoutes.Use(requireAdmin)
	{
		adminRoutes.GET("/webhooks/deliveries", adminHandler.ListDeliveries)
		adminRoutes.GET("/overlay/clients", wsHandler.Stats)
	}

	// Start server
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Streaming responses end when the process shuts down.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Printf("Starting relay on %s (env: %s)", addr, cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR server shutdown: %v", err)
	}

	forwarder.Wait()
	bus.Wait()
	log.Println("Relay stopped")
}

func setupGracefulShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Printf("received signal: %v, shutting down...", s)
		cancel()
	}()
}
