package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"medscribe/internal/audio"
	"medscribe/internal/storage"
	"medscribe/internal/transcriber"
)

var allowedExts = []string{".wav", ".mp3"}

// health reports whether the model is loaded, the device it runs on and
// the model identifier.
func (s *Server) health(c *gin.Context) {
	if s.eng == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"model":  s.cfg.ModelID,
			"device": s.cfg.Device,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"model":  s.eng.ModelID(),
		"device": string(s.eng.Device()),
	})
}

// transcribe handles POST /transcribe, returning the full transcript with
// timestamped chunks.
func (s *Server) transcribe(c *gin.Context) {
	withTimestamps := true
	if v := c.PostForm("timestamps"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			withTimestamps = parsed
		}
	}

	result, ok := s.runTranscription(c, withTimestamps)
	if !ok {
		return
	}

	chunks := make([]chunkJSON, 0, len(result.Chunks))
	for _, ch := range result.Chunks {
		chunks = append(chunks, chunkJSON{Text: ch.Text, Timestamp: [2]float64{ch.Start, ch.End}})
	}

	c.Set(ctxOutcome, "success")
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"text":       result.Text,
		"chunks":     chunks,
		"duration":   result.Duration,
		"confidence": result.Confidence,
		"request_id": c.GetString(ctxRequestID),
	})
}

// transcribeText handles POST /transcribe-text, skipping the timestamp
// bookkeeping and returning only the concatenated text.
func (s *Server) transcribeText(c *gin.Context) {
	result, ok := s.runTranscription(c, false)
	if !ok {
		return
	}

	c.Set(ctxOutcome, "success")
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"text":       result.Text,
		"request_id": c.GetString(ctxRequestID),
	})
}

// runTranscription is the shared request pipeline: validate the upload,
// write the scoped temp artifact, decode, transcribe, and guarantee the
// artifact is removed on every exit path. On failure it has already
// written the error response.
func (s *Server) runTranscription(c *gin.Context, withTimestamps bool) (*transcriber.Transcript, bool) {
	if s.tr == nil {
		s.failRequest(c, http.StatusServiceUnavailable, kindUnavailable, "speech model is not loaded")
		return nil, false
	}

	file, err := s.uploadedFile(c)
	if err != nil {
		// A body past the MaxBytesReader cap fails multipart parsing before
		// the file size is ever known.
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.failRequest(c, http.StatusRequestEntityTooLarge, kindPayloadTooLarge, "upload exceeds size limit")
			return nil, false
		}
		s.failRequest(c, http.StatusBadRequest, kindValidation, "audio file is required")
		return nil, false
	}
	c.Set(ctxSizeBytes, file.Size)

	// Intake validation happens before any temp file is created.
	if file.Size == 0 {
		s.failRequest(c, http.StatusBadRequest, kindValidation, "uploaded audio is empty")
		return nil, false
	}
	if file.Size > s.cfg.MaxUploadBytes() {
		s.failRequest(c, http.StatusRequestEntityTooLarge, kindPayloadTooLarge, "upload exceeds size limit")
		return nil, false
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !extAllowed(ext) {
		s.failRequest(c, http.StatusUnsupportedMediaType, kindUnsupportedMedia, "supported formats: wav, mp3")
		return nil, false
	}

	tmp, err := storage.SaveUpload(file, s.cfg.TempDir)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", c.GetString(ctxRequestID)).Msg("failed to save upload")
		s.failRequest(c, http.StatusInternalServerError, kindInternal, "failed to store upload")
		return nil, false
	}
	// The artifact never outlives the request, whatever the exit path.
	defer tmp.Remove()

	buf, err := audio.DecodeFile(tmp.Path)
	if err != nil {
		if errors.Is(err, audio.ErrUnsupported) {
			s.failRequest(c, http.StatusUnsupportedMediaType, kindUnsupportedMedia, err.Error())
		} else {
			s.failRequest(c, http.StatusBadRequest, kindValidation, err.Error())
		}
		return nil, false
	}

	levels := audio.Measure(buf.Samples)
	c.Set(ctxAudioRMS, levels.RMS)
	if levels.Silent() {
		s.log.Debug().Str("request_id", c.GetString(ctxRequestID)).Msg("audio is near-silent")
	}

	language := c.DefaultPostForm("language", "english")
	result, err := s.tr.Transcribe(c.Request.Context(), buf, transcriber.Options{
		Language:   language,
		Timestamps: withTimestamps,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.Set(ctxOutcome, "canceled")
			c.Abort()
			return nil, false
		}
		s.log.Error().Err(err).Str("request_id", c.GetString(ctxRequestID)).Msg("transcription failed")
		s.failRequest(c, http.StatusInternalServerError, kindInternal, err.Error())
		return nil, false
	}

	return result, true
}

// uploadedFile fetches the multipart audio field, tolerating the
// alternative field name some recording clients use.
func (s *Server) uploadedFile(c *gin.Context) (*multipart.FileHeader, error) {
	file, err := c.FormFile("audio")
	if err != nil {
		file, err = c.FormFile("file")
	}
	return file, err
}

func extAllowed(ext string) bool {
	for _, allowed := range allowedExts {
		if ext == allowed {
			return true
		}
	}
	return false
}
