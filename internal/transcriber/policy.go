package transcriber

import (
	"bytes"
	"compress/flate"
	"strings"

	"medscribe/internal/engine"
)

// DefaultLadder is the ascending temperature fallback sequence. Decoding
// starts deterministic and only gains randomness when earlier rungs
// produce degenerate output.
var DefaultLadder = []float32{0.0, 0.2, 0.4, 0.6, 0.8, 1.0}

// Attempt records one inference call against a segment, accepted or not.
type Attempt struct {
	Segment     int
	Temperature float32
	Text        string
	Tokens      []engine.Token
	Err         error
}

// NextTemperature returns the next rung to try given the attempt history
// for one segment, or false when the ladder is exhausted.
func NextTemperature(ladder []float32, history []Attempt) (float32, bool) {
	if len(history) >= len(ladder) {
		return 0, false
	}
	return ladder[len(history)], true
}

// AcceptancePolicy decides whether a decode attempt's output is usable or
// must be retried at the next temperature.
type AcceptancePolicy struct {
	// CompressionRatio above which text is considered runaway repetition.
	CompressionRatio float64
	// MaxTokenRun is the longest allowed run of one repeated token.
	MaxTokenRun int
}

// DefaultPolicy returns the acceptance policy used in production.
func DefaultPolicy() AcceptancePolicy {
	return AcceptancePolicy{
		CompressionRatio: 1.35,
		MaxTokenRun:      4,
	}
}

// Accept reports whether the attempt terminates the ladder for its segment.
func (p AcceptancePolicy) Accept(a Attempt) bool {
	if a.Err != nil {
		return false
	}
	text := strings.TrimSpace(a.Text)
	if text == "" {
		return false
	}
	if p.MaxTokenRun > 0 && longestTokenRun(text) > p.MaxTokenRun {
		return false
	}
	if p.CompressionRatio > 0 && compressionRatio(text) > p.CompressionRatio {
		return false
	}
	return true
}

// compressionRatio is len(text) / len(deflate(text)). Highly repetitive
// output compresses far better than real speech and signals a decoding
// loop.
func compressionRatio(text string) float64 {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return 0
	}
	if _, err := w.Write([]byte(text)); err != nil {
		return 0
	}
	if err := w.Close(); err != nil {
		return 0
	}
	if buf.Len() == 0 {
		return 0
	}
	return float64(len(text)) / float64(buf.Len())
}

func longestTokenRun(text string) int {
	fields := strings.Fields(text)
	longest, run := 0, 0
	var prev string
	for _, f := range fields {
		f = strings.ToLower(f)
		if f == prev {
			run++
		} else {
			run = 1
			prev = f
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
