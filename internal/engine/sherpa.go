package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
	"github.com/rs/zerolog/log"
)

// SherpaConfig configures the sherpa-onnx Whisper engine.
type SherpaConfig struct {
	ModelDir   string // directory with encoder.onnx, decoder.onnx, tokens.txt
	ModelID    string // identifier reported on /health, e.g. "whisper-base"
	Device     Device
	NumThreads int
}

// Sherpa runs Whisper models through the sherpa-onnx offline recognizer.
// Inference against one recognizer is serialized with a mutex; the decoder
// is greedy and therefore deterministic, so the Temperature parameter does
// not change its output and only matters to retry bookkeeping upstream.
type Sherpa struct {
	recognizer *sherpa.OfflineRecognizer
	modelID    string
	device     Device
	mu         sync.Mutex
}

var _ Engine = (*Sherpa)(nil)

// NewSherpa loads a Whisper model from cfg.ModelDir. If the requested
// device provider fails to initialize it retries on CPU before giving up.
func NewSherpa(cfg SherpaConfig) (*Sherpa, error) {
	encoder := filepath.Join(cfg.ModelDir, "encoder.onnx")
	decoder := filepath.Join(cfg.ModelDir, "decoder.onnx")
	tokens := filepath.Join(cfg.ModelDir, "tokens.txt")
	for _, p := range []string{encoder, decoder, tokens} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("model file not found: %s", p)
		}
	}

	threads := cfg.NumThreads
	if threads <= 0 {
		threads = 4
	}
	device := cfg.Device
	if device == "" {
		device = DeviceCPU
	}

	build := func(provider string) *sherpa.OfflineRecognizer {
		c := sherpa.OfflineRecognizerConfig{
			FeatConfig: sherpa.FeatureConfig{SampleRate: SampleRate, FeatureDim: 80},
			ModelConfig: sherpa.OfflineModelConfig{
				Whisper: sherpa.OfflineWhisperModelConfig{
					Encoder: encoder,
					Decoder: decoder,
					Task:    "transcribe",
				},
				Tokens:     tokens,
				NumThreads: threads,
				Provider:   provider,
			},
			DecodingMethod: "greedy_search",
		}
		return sherpa.NewOfflineRecognizer(&c)
	}

	recognizer := build(string(device))
	if recognizer == nil && device != DeviceCPU {
		log.Warn().Str("provider", string(device)).Msg("provider failed, falling back to cpu")
		device = DeviceCPU
		recognizer = build(string(device))
	}
	if recognizer == nil {
		return nil, fmt.Errorf("failed to create sherpa-onnx recognizer for model %s", cfg.ModelDir)
	}

	log.Info().
		Str("model", cfg.ModelID).
		Str("device", string(device)).
		Int("threads", threads).
		Msg("speech model loaded")

	return &Sherpa{recognizer: recognizer, modelID: cfg.ModelID, device: device}, nil
}

func (s *Sherpa) Infer(ctx context.Context, samples []float32, p Params) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := sherpa.NewOfflineStream(s.recognizer)
	if stream == nil {
		return Result{}, &TransientError{Err: fmt.Errorf("failed to create inference stream")}
	}
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(SampleRate, samples)
	s.recognizer.Decode(stream)

	r := stream.GetResult()
	if r == nil {
		return Result{}, &TransientError{Err: fmt.Errorf("decode produced no result")}
	}

	out := Result{Text: r.Text}
	if p.Timestamps && len(r.Tokens) > 0 {
		total := float64(len(samples)) / SampleRate
		out.Tokens = make([]Token, 0, len(r.Tokens))
		for i, tok := range r.Tokens {
			start := 0.0
			if i < len(r.Timestamps) {
				start = float64(r.Timestamps[i])
			}
			end := total
			if i+1 < len(r.Timestamps) {
				end = float64(r.Timestamps[i+1])
			}
			out.Tokens = append(out.Tokens, Token{Text: tok, Start: start, End: end})
		}
	}
	return out, nil
}

func (s *Sherpa) ModelID() string { return s.modelID }

func (s *Sherpa) Device() Device { return s.device }

func (s *Sherpa) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(s.recognizer)
		s.recognizer = nil
	}
	return nil
}
