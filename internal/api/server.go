// Package api exposes the HTTP surface of the transcription service and
// owns the per-request lifecycle: request ids, authentication, audit
// records and the guaranteed cleanup of the temporary audio artifact.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"medscribe/internal/audit"
	"medscribe/internal/config"
	"medscribe/internal/engine"
	"medscribe/internal/logging"
	"medscribe/internal/transcriber"
)

// Server wires the loaded engine, the orchestrator and the audit log into
// HTTP handlers. The engine is process-wide state initialized once at
// startup; eng is nil when the model failed to load, in which case /health
// reports unhealthy and transcription calls fail fast.
type Server struct {
	cfg   *config.Config
	eng   engine.Engine
	tr    *transcriber.Transcriber
	audit *audit.Log
	log   zerolog.Logger
}

// NewServer creates the HTTP server facade.
func NewServer(cfg *config.Config, eng engine.Engine, auditLog *audit.Log) *Server {
	s := &Server{
		cfg:   cfg,
		eng:   eng,
		audit: auditLog,
		log:   logging.Component("api"),
	}
	if eng != nil {
		s.tr = transcriber.New(eng)
	}
	return s
}

// Register attaches all routes and middleware to r.
func (s *Server) Register(r *gin.Engine) {
	r.Use(requestID())
	r.Use(s.requestLogger())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/")
	authed.Use(s.auditRecords())
	authed.Use(s.authenticate())
	authed.Use(maxBodySize(s.cfg.MaxUploadBytes() + formOverhead))
	{
		authed.POST("/transcribe", s.transcribe)
		authed.POST("/transcribe-text", s.transcribeText)
	}
}

// formOverhead is slack on top of the upload ceiling for multipart
// boundaries and the non-file form fields.
const formOverhead = 1 << 20
