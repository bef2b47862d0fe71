// Package engine defines the speech recognition capability used by the
// transcription pipeline. The interface keeps the acoustic model opaque so
// the orchestrator can be tested against a fake implementation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// SampleRate is the input format every engine expects: mono float32 PCM.
const SampleRate = 16000

// Device identifies the compute device an engine runs on.
type Device string

const (
	DeviceCUDA Device = "cuda"
	DeviceCPU  Device = "cpu"
)

// DetectDevice resolves a configured device override ("auto", "cuda", "cpu")
// to a concrete device. Auto prefers CUDA on linux/windows hosts where an
// NVIDIA runtime is plausible and falls back to CPU everywhere else; the
// engine itself downgrades to CPU if the provider fails to initialize.
func DetectDevice(override string) Device {
	switch override {
	case string(DeviceCUDA):
		return DeviceCUDA
	case string(DeviceCPU):
		return DeviceCPU
	}
	if runtime.GOOS == "linux" || runtime.GOOS == "windows" {
		return DeviceCUDA
	}
	return DeviceCPU
}

// Params controls one inference call.
type Params struct {
	Language    string  // recognition language, e.g. "english"
	Temperature float32 // decoding temperature; 0 is deterministic
	Timestamps  bool    // whether token timestamps are wanted
}

// Token is one decoded token with timestamps relative to the start of the
// inferred samples, in seconds.
type Token struct {
	Text  string
	Start float64
	End   float64
}

// Result is the output of one inference call.
type Result struct {
	Text   string
	Tokens []Token
}

// Engine is the loaded speech model. Implementations are safe for
// concurrent use but serialize inference internally; callers that need
// device-level fairness must additionally gate calls themselves.
type Engine interface {
	// Infer transcribes mono 16 kHz float32 samples. An empty Result with a
	// nil error is a valid outcome (no speech).
	Infer(ctx context.Context, samples []float32, p Params) (Result, error)

	// ModelID returns the identifier of the loaded model.
	ModelID() string

	// Device returns the device inference runs on.
	Device() Device

	// Close releases model resources.
	Close() error
}

// TransientError wraps an inference failure that may succeed on retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient inference error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient reports whether err is retryable at another ladder rung.
func Transient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
