// Package transcriber drives the speech model over segmented audio with a
// temperature-fallback retry ladder and merges the per-segment output into
// one transcript.
package transcriber

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"medscribe/internal/audio"
	"medscribe/internal/engine"
)

// Options control one transcription run.
type Options struct {
	Language   string
	Timestamps bool
}

// Transcriber orchestrates segmentation, decoding and assembly. The device
// slot serializes inference at segment granularity, so segments from
// concurrent requests interleave instead of one large recording starving
// small ones.
type Transcriber struct {
	eng       engine.Engine
	segmenter audio.Segmenter
	ladder    []float32
	policy    AcceptancePolicy
	device    *semaphore.Weighted
	log       zerolog.Logger
}

// New creates a Transcriber around a loaded engine.
func New(eng engine.Engine) *Transcriber {
	return &Transcriber{
		eng:       eng,
		segmenter: audio.NewSegmenter(),
		ladder:    DefaultLadder,
		policy:    DefaultPolicy(),
		device:    semaphore.NewWeighted(1),
		log:       log.With().Str("component", "transcriber").Logger(),
	}
}

// segmentResult is the outcome of decoding one segment.
type segmentResult struct {
	segment  audio.Segment
	attempt  Attempt // the accepted attempt, or zero-value when degraded
	rung     int     // ladder index of the accepted attempt
	fallback bool    // ladder exhausted, last output accepted anyway
	degraded bool    // every rung failed hard; empty-text placeholder
}

// Transcribe runs the full pipeline over buf. It returns an error only for
// caller cancellation; per-segment inference failures are absorbed into
// degraded placeholders so one bad segment cannot fail a long recording.
func (t *Transcriber) Transcribe(ctx context.Context, buf *audio.Buffer, opts Options) (*Transcript, error) {
	segments := t.segmenter.Split(buf)

	results := make([]segmentResult, 0, len(segments))
	for _, seg := range segments {
		res, err := t.decodeSegment(ctx, seg, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	return assemble(results, buf.Duration(), t.segmenter.Overlap, len(t.ladder)), nil
}

// decodeSegment walks the temperature ladder for one segment. The device
// slot is held per inference call, not per request; an in-flight call is
// allowed to finish after cancellation rather than being interrupted.
func (t *Transcriber) decodeSegment(ctx context.Context, seg audio.Segment, opts Options) (segmentResult, error) {
	var history []Attempt

	for {
		temp, ok := NextTemperature(t.ladder, history)
		if !ok {
			break
		}

		attempt, err := t.attempt(ctx, seg, temp, opts)
		if err != nil {
			return segmentResult{}, err
		}
		history = append(history, attempt)

		if t.policy.Accept(attempt) {
			decodeAttempts.WithLabelValues("accepted").Inc()
			segmentsTotal.WithLabelValues("accepted").Inc()
			return segmentResult{segment: seg, attempt: attempt, rung: len(history) - 1}, nil
		}

		if attempt.Err != nil {
			decodeAttempts.WithLabelValues("error").Inc()
		} else {
			decodeAttempts.WithLabelValues("rejected").Inc()
		}
		t.log.Debug().
			Int("segment", seg.Index).
			Float32("temperature", temp).
			AnErr("attempt_error", attempt.Err).
			Msg("decode attempt rejected")
	}

	// Ladder exhausted: accept the last usable output rather than dropping
	// the segment. With no usable output at all the segment degrades to an
	// empty placeholder.
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Err == nil {
			segmentsTotal.WithLabelValues("fallback").Inc()
			t.log.Warn().Int("segment", seg.Index).Msg("temperature ladder exhausted, accepting last output")
			return segmentResult{segment: seg, attempt: history[i], rung: i, fallback: true}, nil
		}
	}

	segmentsTotal.WithLabelValues("degraded").Inc()
	t.log.Error().Int("segment", seg.Index).Msg("all decode attempts failed, emitting empty segment")
	return segmentResult{segment: seg, rung: len(t.ladder), degraded: true}, nil
}

func (t *Transcriber) attempt(ctx context.Context, seg audio.Segment, temp float32, opts Options) (Attempt, error) {
	if err := t.device.Acquire(ctx, 1); err != nil {
		return Attempt{}, fmt.Errorf("acquire device: %w", err)
	}
	start := time.Now()
	result, err := t.eng.Infer(ctx, seg.Samples, engine.Params{
		Language:    opts.Language,
		Temperature: temp,
		Timestamps:  opts.Timestamps,
	})
	t.device.Release(1)
	inferenceDuration.Observe(time.Since(start).Seconds())

	// Cancellation is the only error that propagates; everything else is
	// recorded against the attempt and handled by the ladder.
	if ctx.Err() != nil {
		return Attempt{}, ctx.Err()
	}

	return Attempt{
		Segment:     seg.Index,
		Temperature: temp,
		Text:        result.Text,
		Tokens:      result.Tokens,
		Err:         err,
	}, nil
}
