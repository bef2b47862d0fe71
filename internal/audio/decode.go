// Package audio converts uploaded recordings into the canonical sample
// format every downstream component operates on (mono float32 PCM at
// 16 kHz) and slices long recordings into bounded segments.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// SampleRate is the canonical sample rate in Hz.
const SampleRate = 16000

// ErrUnsupported is returned for file types the service does not accept.
// Corrupt content of an accepted type yields an ordinary decode error
// instead.
var ErrUnsupported = errors.New("unsupported audio format")

// Buffer holds decoded audio in the canonical format.
type Buffer struct {
	Samples []float32
}

// Duration returns the audio duration at the canonical sample rate.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(len(b.Samples)) * time.Second / SampleRate
}

// DecodeFile decodes a WAV or MP3 file into the canonical format,
// downmixing to mono and resampling to 16 kHz as needed.
func DecodeFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	default:
		return nil, ErrUnsupported
	}
}

func decodeWAV(r io.ReadSeeker) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels == 0 || pcm.Format.SampleRate == 0 {
		return nil, errors.New("wav file has no format chunk")
	}
	if d.BitDepth == 0 {
		return nil, errors.New("wav file has invalid bit depth")
	}

	scale := float32(int(1) << (d.BitDepth - 1))
	channels := pcm.Format.NumChannels
	frames := len(pcm.Data) / channels

	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(pcm.Data[i*channels+ch]) / scale
		}
		samples[i] = sum / float32(channels)
	}

	return &Buffer{Samples: resampleLinear(samples, pcm.Format.SampleRate, SampleRate)}, nil
}

func decodeMP3(r io.Reader) (*Buffer, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	// go-mp3 always yields 16-bit little-endian stereo frames.
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	frames := len(raw) / 4
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		left := int16(raw[i*4]) | int16(raw[i*4+1])<<8
		right := int16(raw[i*4+2]) | int16(raw[i*4+3])<<8
		samples[i] = (float32(left) + float32(right)) / 2 / 32768
	}

	return &Buffer{Samples: resampleLinear(samples, d.SampleRate(), SampleRate)}, nil
}

// resampleLinear converts samples between sample rates using linear
// interpolation, which is adequate for speech input to the model.
func resampleLinear(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(srcRate) / float64(dstRate)
	newLen := int(float64(len(samples)) / ratio)
	out := make([]float32, newLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx+1 < len(samples) {
			frac := float32(pos - float64(idx))
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else if idx < len(samples) {
			out[i] = samples[idx]
		}
	}
	return out
}
