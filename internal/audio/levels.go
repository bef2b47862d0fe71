package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Levels summarizes signal energy for audit records and silence gating.
type Levels struct {
	RMS  float64
	Peak float64
}

// silenceRMS is the level below which a recording is considered silent.
const silenceRMS = 0.005

// Measure computes RMS and peak amplitude over the buffer.
func Measure(samples []float32) Levels {
	if len(samples) == 0 {
		return Levels{}
	}
	v := make([]float64, len(samples))
	for i, s := range samples {
		v[i] = math.Abs(float64(s))
	}
	rms := floats.Norm(v, 2) / math.Sqrt(float64(len(v)))
	return Levels{RMS: rms, Peak: floats.Max(v)}
}

// Silent reports whether the measured signal is effectively silence.
func (l Levels) Silent() bool {
	return l.RMS < silenceRMS
}
