package transcriber

import (
	"strings"
	"time"
)

// Chunk is one timestamped piece of the merged transcript, in seconds
// relative to the start of the source audio.
type Chunk struct {
	Text  string
	Start float64
	End   float64
}

// Transcript is the merged output of one transcription run.
type Transcript struct {
	Text       string
	Chunks     []Chunk
	Duration   float64 // seconds of source audio covered
	Confidence float64 // derived from the accepted ladder rungs; 0 when degraded
	Degraded   bool    // at least one segment fell back or degraded
}

// assemble merges per-segment results in order, translating segment-relative
// timestamps to source-relative ones and collapsing duplicated words in the
// overlap region once.
func assemble(results []segmentResult, total time.Duration, overlap time.Duration, ladderLen int) *Transcript {
	out := &Transcript{
		Duration:   total.Seconds(),
		Confidence: 1,
	}

	var parts []string
	var prevTokens []string
	lastStart, lastEnd := 0.0, 0.0

	for _, res := range results {
		conf := rungConfidence(res.rung, ladderLen)
		if res.degraded {
			conf = 0
		}
		if conf < out.Confidence {
			out.Confidence = conf
		}
		if res.fallback || res.degraded {
			out.Degraded = true
		}

		text := strings.TrimSpace(res.attempt.Text)
		if text == "" {
			continue
		}

		tokens := strings.Fields(text)
		dropped := 0
		if res.segment.Index > 0 {
			dropped = overlapRun(prevTokens, tokens, overlapBudget(prevTokens, overlap))
			tokens = tokens[dropped:]
		}
		prevTokens = tokens
		if len(tokens) == 0 {
			continue
		}
		parts = append(parts, strings.Join(tokens, " "))

		offset := res.segment.Start.Seconds()
		chunkTokens := res.attempt.Tokens
		if dropped > 0 && dropped <= len(chunkTokens) {
			chunkTokens = chunkTokens[dropped:]
		}
		for _, tok := range chunkTokens {
			start := tok.Start + offset
			end := tok.End + offset
			if start < lastStart {
				start = lastStart
			}
			if end < start {
				end = start
			}
			if end < lastEnd {
				end = lastEnd
			}
			out.Chunks = append(out.Chunks, Chunk{Text: tok.Text, Start: start, End: end})
			lastStart, lastEnd = start, end
		}
	}

	out.Text = strings.Join(parts, " ")
	return out
}

// rungConfidence maps the accepted ladder rung to a confidence signal:
// rung 0 (deterministic decode accepted first try) scores 1.0, with a
// linear falloff as the ladder climbs.
func rungConfidence(rung, ladderLen int) float64 {
	if ladderLen == 0 || rung >= ladderLen {
		return 0
	}
	return 1 - float64(rung)/float64(ladderLen)
}

// overlapBudget bounds how many duplicated words the guard band can
// plausibly hold, assuming speech runs no faster than about three words
// per second.
func overlapBudget(prev []string, overlap time.Duration) int {
	budget := int(overlap.Seconds() * 3)
	if budget > len(prev) {
		budget = len(prev)
	}
	return budget
}

// overlapRun finds the longest k <= limit such that the last k tokens of
// prev equal the first k tokens of next, comparing case-insensitively.
// Best effort: word repetition outside the guard band is left alone.
func overlapRun(prev, next []string, limit int) int {
	if limit > len(next) {
		limit = len(next)
	}
	for k := limit; k > 0; k-- {
		match := true
		for i := 0; i < k; i++ {
			if !strings.EqualFold(prev[len(prev)-k+i], next[i]) {
				match = false
				break
			}
		}
		if match {
			return k
		}
	}
	return 0
}
