// internal/dsp/detector.go
package dsp

import (
	"errors"
	"math"
	"sync/atomic"
	"time"
)

var (
	// ErrInvalidThreshold indicates threshold must be between 0 and 1
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")
	// ErrInvalidAGCDecay indicates AGC decay must be between 0 and 1
	ErrInvalidAGCDecay = errors.New("agc decay must be between 0.0 and 1.0")
	// ErrInvalidAGCAttack indicates AGC attack must be between 0 and 1
	ErrInvalidAGCAttack = errors.New("agc attack must be between 0.0 and 1.0")
	// ErrGoertzelRequired indicates Goertzel instance is required
	ErrGoertzelRequired = errors.New("goertzel instance is required")
)

// agcFloor keeps the AGC peak away from zero.
const agcFloor = 0.001

// DetectorConfig holds configuration for the tone level detector.
type DetectorConfig struct {
	// Threshold is the level a block must exceed to count as a mark (from config: threshold)
	Threshold float64
	// AGCEnabled normalizes the level against a decaying peak (from config: agc_enabled)
	AGCEnabled bool
	// AGCDecay is the per-block peak decay factor (from config: agc_decay)
	AGCDecay float64
	// AGCAttack is how quickly the peak follows louder signals (from config: agc_attack)
	AGCAttack float64
}

// LevelDetector turns captured audio into a "tone present" level that the
// decoder samples. Process runs on the audio thread; Sample may be called
// from the polling loop at any time. Edge filtering is left to the decoder.
type LevelDetector struct {
	config   DetectorConfig
	goertzel *Goertzel

	pending []float32 // samples not yet filling a block
	agcPeak float64

	present atomic.Bool
	level   atomic.Uint64 // math.Float64bits of the last level
}

// NewDetector creates a level detector using g for tone measurement.
func NewDetector(cfg DetectorConfig, g *Goertzel) (*LevelDetector, error) {
	if g == nil {
		return nil, ErrGoertzelRequired
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if cfg.AGCDecay < 0 || cfg.AGCDecay > 1 {
		return nil, ErrInvalidAGCDecay
	}
	if cfg.AGCAttack < 0 || cfg.AGCAttack > 1 {
		return nil, ErrInvalidAGCAttack
	}
	return &LevelDetector{
		config:   cfg,
		goertzel: g,
		pending:  make([]float32, 0, g.BlockSize()),
		agcPeak:  agcFloor,
	}, nil
}

// Process consumes samples normalized to -1.0..1.0.
func (d *LevelDetector) Process(samples []float32) {
	n := d.goertzel.BlockSize()
	for len(samples) > 0 {
		take := n - len(d.pending)
		if take > len(samples) {
			take = len(samples)
		}
		d.pending = append(d.pending, samples[:take]...)
		samples = samples[take:]
		if len(d.pending) == n {
			d.processBlock(d.pending)
			d.pending = d.pending[:0]
		}
	}
}

func (d *LevelDetector) processBlock(block []float32) {
	level := d.goertzel.magnitude(block)
	if d.config.AGCEnabled {
		level = d.applyAGC(level)
	}
	d.level.Store(math.Float64bits(level))
	d.present.Store(level > d.config.Threshold)
}

// applyAGC normalizes level against a peak that attacks quickly and decays slowly.
func (d *LevelDetector) applyAGC(level float64) float64 {
	if level > d.agcPeak {
		d.agcPeak += d.config.AGCAttack * (level - d.agcPeak)
	} else {
		d.agcPeak *= d.config.AGCDecay
	}
	if d.agcPeak < agcFloor {
		d.agcPeak = agcFloor
	}
	normalized := level / d.agcPeak
	if normalized > 1.0 {
		normalized = 1.0
	}
	return normalized
}

// Sample reports whether the last block carried the tone.
func (d *LevelDetector) Sample(time.Time) bool {
	return d.present.Load()
}

// Level returns the last measured (normalized) tone level.
func (d *LevelDetector) Level() float64 {
	return math.Float64frombits(d.level.Load())
}

// Reset clears buffered samples and detection state.
func (d *LevelDetector) Reset() {
	d.pending = d.pending[:0]
	d.agcPeak = agcFloor
	d.present.Store(false)
	d.level.Store(0)
}

// Config returns the detector configuration.
func (d *LevelDetector) Config() DetectorConfig {
	return d.config
}
