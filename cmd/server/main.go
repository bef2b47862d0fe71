package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"medscribe/internal/api"
	"medscribe/internal/audit"
	"medscribe/internal/config"
	"medscribe/internal/engine"
	"medscribe/internal/logging"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// A model that fails to load is fatal to transcription but not to the
	// process: the service keeps serving /health as unhealthy so operators
	// see the failure instead of a dead port.
	var eng engine.Engine
	sherpa, err := engine.NewSherpa(engine.SherpaConfig{
		ModelDir: cfg.ModelDir,
		ModelID:  cfg.ModelID,
		Device:   engine.DetectDevice(cfg.Device),
	})
	if err != nil {
		log.Error().Err(err).Str("model_dir", cfg.ModelDir).Msg("failed to load speech model")
	} else {
		eng = sherpa
		defer eng.Close()
	}

	auditLog, err := audit.Open(cfg.AuditLog)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.AuditLog).Msg("failed to open audit log")
	}
	defer auditLog.Close()

	r := gin.New()
	r.Use(gin.Recovery())
	api.NewServer(cfg, eng, auditLog).Register(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("mode", cfg.Mode).Msg("medscribe listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
	}
}
