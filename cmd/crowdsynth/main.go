package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/CrowdSynth/coordinator/internal/arbitrator"
	"github.com/CrowdSynth/coordinator/internal/audiosession"
	"github.com/CrowdSynth/coordinator/internal/config"
	"github.com/CrowdSynth/coordinator/internal/gateway"
	"github.com/CrowdSynth/coordinator/internal/health"
	"github.com/CrowdSynth/coordinator/internal/logging"
	"github.com/CrowdSynth/coordinator/internal/middleware"
	"github.com/CrowdSynth/coordinator/internal/ratelimit"
	"github.com/CrowdSynth/coordinator/internal/roomstore"
	"github.com/CrowdSynth/coordinator/internal/ticker"
)

func main() {
	// Load .env file for local development. Try multiple paths to handle
	// different ways of running the app.
	envPaths := []string{".env", "../../.env", "../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		// logging isn't initialized yet, so the builtin println is the only
		// option here.
		println("environment validation failed: " + err.Error())
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		println("failed to initialize logger: " + err.Error())
		os.Exit(1)
	}

	ctx := context.Background()

	store := roomstore.NewStore()

	arbClient, err := arbitrator.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logging.Fatal(ctx, "failed to create arbitrator client", zap.Error(err))
	}

	limiter, err := ratelimit.NewLimiter(cfg)
	if err != nil {
		logging.Fatal(ctx, "failed to create rate limiter", zap.Error(err))
	}

	// hub is constructed before the audio client exists, since the audio
	// client's broadcast callback closes over hub.BroadcastAudio.
	hub := gateway.NewHub(store, nil, limiter, cfg.FrontendURL)

	audioClient, err := audiosession.NewClient(cfg.GeminiAPIKey, hub.BroadcastAudio)
	if err != nil {
		logging.Fatal(ctx, "failed to create audio session client", zap.Error(err))
	}
	hub.SetAudio(audioClient)

	scheduler := ticker.NewScheduler(store, arbClient, audioClient, cfg.TickInterval, hub.TickStateBroadcast, hub.TickErrorBroadcast)
	hub.SetScheduler(scheduler)

	if cfg.GoEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())

	corsConfig := cors.DefaultConfig()
	if cfg.FrontendURL == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.FrontendURL, "http://localhost:3000"}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/ws", hub.ServeWs)

	healthHandler := health.NewHandler()
	router.GET("/health", healthHandler.Check)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info(ctx, "coordinator server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down coordinator server")

	for _, room := range store.Rooms() {
		scheduler.Stop(room.ID)
		if audioClient.IsActive(room.ID) {
			audioClient.StopSession(ctx, room.ID)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "server forced to shutdown", zap.Error(err))
	}

	logging.Info(ctx, "coordinator server exiting")
}
