package audio

import "time"

// Default segmentation parameters.
const (
	// DefaultWindow bounds one segment to the model's context length.
	DefaultWindow = 30 * time.Second

	// DefaultOverlap is the guard band between adjacent segments so words
	// spanning a boundary land whole in at least one segment.
	DefaultOverlap = 2 * time.Second
)

// Segment is one time-windowed slice of the source audio. Samples alias
// the source buffer; the slice is handed to exactly one inference call at
// a time.
type Segment struct {
	Index   int
	Start   time.Duration
	End     time.Duration
	Samples []float32
}

// Segmenter splits canonical audio into overlapping fixed windows. The
// split is deterministic: calling Split again on the same buffer yields
// the same segments, so a higher-level retry can re-segment freely.
type Segmenter struct {
	Window  time.Duration
	Overlap time.Duration
}

// NewSegmenter returns a Segmenter with the default window and guard band.
func NewSegmenter() Segmenter {
	return Segmenter{Window: DefaultWindow, Overlap: DefaultOverlap}
}

// Count returns the number of segments d seconds of audio produce:
// ceil((d - overlap) / (window - overlap)), minimum 1.
func (s Segmenter) Count(d time.Duration) int {
	if d <= s.Window {
		return 1
	}
	stride := s.Window - s.Overlap
	n := int((d - s.Overlap + stride - 1) / stride)
	if n < 1 {
		n = 1
	}
	return n
}

// Split produces the ordered segment sequence for buf. Segments are in
// strictly increasing start order, overlap by the guard band and together
// cover the whole buffer. Empty audio yields one empty segment; the
// decision that nothing was transcribed belongs to the decoder's
// acceptance policy, not here.
func (s Segmenter) Split(buf *Buffer) []Segment {
	window := int(s.Window.Seconds() * SampleRate)
	overlap := int(s.Overlap.Seconds() * SampleRate)
	stride := window - overlap

	total := len(buf.Samples)
	if total <= window {
		return []Segment{{
			Index:   0,
			Start:   0,
			End:     buf.Duration(),
			Samples: buf.Samples,
		}}
	}

	var segments []Segment
	for start := 0; start < total; start += stride {
		end := start + window
		if end > total {
			end = total
		}
		segments = append(segments, Segment{
			Index:   len(segments),
			Start:   sampleOffset(start),
			End:     sampleOffset(end),
			Samples: buf.Samples[start:end],
		})
		if end == total {
			break
		}
	}
	return segments
}

func sampleOffset(n int) time.Duration {
	return time.Duration(n) * time.Second / SampleRate
}
