package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV writes a sine tone WAV file and returns its path.
func writeTestWAV(t *testing.T, sampleRate, channels int, seconds float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	frames := int(float64(sampleRate) * seconds)
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		v := int(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = v
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func TestDecodeWAVCanonicalPassthrough(t *testing.T) {
	path := writeTestWAV(t, SampleRate, 1, 1.0)

	buf, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if len(buf.Samples) != SampleRate {
		t.Errorf("got %d samples, want %d", len(buf.Samples), SampleRate)
	}
	if buf.Duration().Seconds() != 1.0 {
		t.Errorf("duration = %v, want 1s", buf.Duration())
	}

	levels := Measure(buf.Samples)
	if levels.Silent() {
		t.Error("decoded tone measured as silence")
	}
	if levels.Peak > 1.0 {
		t.Errorf("peak %f exceeds full scale", levels.Peak)
	}
}

func TestDecodeWAVResamplesAndDownmixes(t *testing.T) {
	path := writeTestWAV(t, 44100, 2, 1.0)

	buf, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}

	// One second of source audio must stay one second after resampling,
	// within a couple of interpolation frames.
	got := len(buf.Samples)
	if got < SampleRate-4 || got > SampleRate+4 {
		t.Errorf("resampled to %d samples, want ~%d", got, SampleRate)
	}
	if Measure(buf.Samples).Silent() {
		t.Error("downmixed tone measured as silence")
	}
}

func TestDecodeRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.ogg")
	if err := os.WriteFile(path, []byte("not audio"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := DecodeFile(path)
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("error %v should be ErrUnsupported", err)
	}
}

func TestDecodeRejectsCorruptWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("RIFFgarbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := DecodeFile(path)
	if err == nil {
		t.Fatal("expected error for corrupt WAV data")
	}
	if errors.Is(err, ErrUnsupported) {
		t.Errorf("corrupt content of a supported type is not ErrUnsupported: %v", err)
	}
}

func TestDecodeRejectsZeroBitDepthWAV(t *testing.T) {
	// Structurally valid WAV whose fmt chunk declares zero bits per sample.
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))     // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1))     // mono
	binary.Write(&b, binary.LittleEndian, uint32(16000)) // sample rate
	binary.Write(&b, binary.LittleEndian, uint32(0))     // byte rate
	binary.Write(&b, binary.LittleEndian, uint16(0))     // block align
	binary.Write(&b, binary.LittleEndian, uint16(0))     // bits per sample
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(0))

	path := filepath.Join(t.TempDir(), "zerobits.wav")
	if err := os.WriteFile(path, b.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := DecodeFile(path); err == nil {
		t.Fatal("expected error for zero bit depth")
	}
}

func TestResampleLinear(t *testing.T) {
	src := make([]float32, 8000)
	for i := range src {
		src[i] = float32(math.Sin(2 * math.Pi * 100 * float64(i) / 8000))
	}

	out := resampleLinear(src, 8000, 16000)
	if len(out) != 16000 {
		t.Errorf("upsampled length %d, want 16000", len(out))
	}

	back := resampleLinear(out, 16000, 8000)
	if len(back) != 8000 {
		t.Errorf("downsampled length %d, want 8000", len(back))
	}
}

func TestMeasureSilence(t *testing.T) {
	if !Measure(make([]float32, SampleRate)).Silent() {
		t.Error("all-zero audio should be silent")
	}
	if Measure(nil).Peak != 0 {
		t.Error("empty audio should have zero peak")
	}
}
