package api

import "github.com/gin-gonic/gin"

// Stable error classification strings. These, plus the request id, are all
// a production caller sees; detail messages are exposed in development
// mode only.
const (
	kindValidation       = "validation_error"
	kindPayloadTooLarge  = "payload_too_large"
	kindUnsupportedMedia = "unsupported_media_type"
	kindAuthentication   = "authentication_error"
	kindUnavailable      = "service_unavailable"
	kindInternal         = "internal_error"
)

// chunkJSON is one timestamped transcript piece in the response contract.
type chunkJSON struct {
	Text      string     `json:"text"`
	Timestamp [2]float64 `json:"timestamp"`
}

func (s *Server) failRequest(c *gin.Context, status int, kind, detail string) {
	c.Set(ctxOutcome, kind)
	body := gin.H{
		"success":    false,
		"error":      kind,
		"request_id": c.GetString(ctxRequestID),
	}
	if !s.cfg.Production() && detail != "" {
		body["message"] = detail
	}
	c.JSON(status, body)
}

// abortError is failRequest for middleware, which must also stop the chain.
func (s *Server) abortError(c *gin.Context, status int, kind, detail string) {
	s.failRequest(c, status, kind, detail)
	c.Abort()
}
