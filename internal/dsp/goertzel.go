// internal/dsp/goertzel.go
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("target frequency must be positive and less than Nyquist frequency")
	// ErrInsufficientSamples indicates not enough samples for the configured block size
	ErrInsufficientSamples = errors.New("insufficient samples for block size")
)

// GoertzelConfig holds configuration for the single-bin tone filter.
type GoertzelConfig struct {
	// TargetFrequency is the keyed tone to listen for in Hz (from config: tone_frequency)
	TargetFrequency float64
	// SampleRate is the capture rate in Hz (from config: sample_rate)
	SampleRate float64
	// BlockSize is the number of samples per level reading (from config: block_size)
	BlockSize int
}

// Goertzel measures the amplitude of one frequency over fixed blocks.
type Goertzel struct {
	config     GoertzelConfig
	coeff      float64 // 2cos(ω)
	normalizer float64 // 2/N, a full-scale sine reads ~1.0
}

// NewGoertzel creates a Goertzel filter for cfg.
func NewGoertzel(cfg GoertzelConfig) (*Goertzel, error) {
	if cfg.BlockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.TargetFrequency <= 0 || cfg.TargetFrequency >= cfg.SampleRate/2 {
		return nil, ErrInvalidFrequency
	}

	omega := 2.0 * math.Pi * cfg.TargetFrequency / cfg.SampleRate
	return &Goertzel{
		config:     cfg,
		coeff:      2.0 * math.Cos(omega),
		normalizer: 2.0 / float64(cfg.BlockSize),
	}, nil
}

// Magnitude returns the tone amplitude in the first BlockSize samples.
func (g *Goertzel) Magnitude(samples []float32) (float64, error) {
	if len(samples) < g.config.BlockSize {
		return 0, ErrInsufficientSamples
	}
	return g.magnitude(samples[:g.config.BlockSize]), nil
}

// magnitude runs the recurrence over block. Caller checks the length.
func (g *Goertzel) magnitude(block []float32) float64 {
	var s1, s2 float64
	for _, x := range block {
		s1, s2 = float64(x)+g.coeff*s1-s2, s1
	}
	power := s1*s1 + s2*s2 - g.coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) * g.normalizer
}

// BlockSize returns the configured block size.
func (g *Goertzel) BlockSize() int {
	return g.config.BlockSize
}

// Config returns the filter configuration.
func (g *Goertzel) Config() GoertzelConfig {
	return g.config
}
