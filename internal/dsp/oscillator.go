// internal/dsp/oscillator.go
package dsp

import (
	"math"
	"sync/atomic"
)

// rampStep shapes key clicks away: the envelope moves this fraction
// of full scale per sample (~5ms at 48kHz).
const rampStep = 1.0 / 240.0

// Oscillator generates a keyed sine tone. SetTone may be called from any
// goroutine; Fill runs on the audio thread.
type Oscillator struct {
	sampleRate float64
	amplitude  float64

	on   atomic.Bool
	freq atomic.Uint64 // math.Float64bits(hz)

	phase    float64
	envelope float64
}

// NewOscillator creates a silent oscillator.
func NewOscillator(sampleRate, amplitude float64) *Oscillator {
	return &Oscillator{sampleRate: sampleRate, amplitude: amplitude}
}

// SetTone starts the tone at hz or stops it. It implements cw.ToneSink.
func (o *Oscillator) SetTone(on bool, hz float64) {
	if on {
		o.freq.Store(math.Float64bits(hz))
	}
	o.on.Store(on)
}

// On reports whether the tone is keyed.
func (o *Oscillator) On() bool {
	return o.on.Load()
}

// Fill writes the next len(out) samples.
func (o *Oscillator) Fill(out []float32) {
	target := 0.0
	if o.on.Load() {
		target = 1.0
	}
	step := 2 * math.Pi * math.Float64frombits(o.freq.Load()) / o.sampleRate
	for i := range out {
		switch {
		case o.envelope < target:
			o.envelope = math.Min(target, o.envelope+rampStep)
		case o.envelope > target:
			o.envelope = math.Max(target, o.envelope-rampStep)
		}
		out[i] = float32(o.amplitude * o.envelope * math.Sin(o.phase))
		o.phase += step
		if o.phase >= 2*math.Pi {
			o.phase -= 2 * math.Pi
		}
	}
}
