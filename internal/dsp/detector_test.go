// internal/dsp/detector_test.go
package dsp

import (
	"errors"
	"testing"
	"time"
)

func testDetector(t *testing.T, cfg DetectorConfig) *LevelDetector {
	t.Helper()
	d, err := NewDetector(cfg, testGoertzel(t))
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	return d
}

func TestNewDetector_InvalidConfig(t *testing.T) {
	g := testGoertzel(t)
	tests := []struct {
		name string
		cfg  DetectorConfig
		g    *Goertzel
		want error
	}{
		{"nil goertzel", DetectorConfig{Threshold: 0.4}, nil, ErrGoertzelRequired},
		{"threshold high", DetectorConfig{Threshold: 1.5}, g, ErrInvalidThreshold},
		{"threshold negative", DetectorConfig{Threshold: -0.1}, g, ErrInvalidThreshold},
		{"decay", DetectorConfig{Threshold: 0.4, AGCDecay: 2}, g, ErrInvalidAGCDecay},
		{"attack", DetectorConfig{Threshold: 0.4, AGCAttack: -1}, g, ErrInvalidAGCAttack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDetector(tt.cfg, tt.g); !errors.Is(err, tt.want) {
				t.Errorf("NewDetector() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLevelDetector_Threshold(t *testing.T) {
	d := testDetector(t, DetectorConfig{Threshold: 0.4})
	now := time.Now()

	if d.Sample(now) {
		t.Error("Sample() = true before any audio")
	}
	d.Process(generateSineWave(testToneFrequency, testSampleRate, testBlockSize, 0.8))
	if !d.Sample(now) {
		t.Errorf("Sample() = false for a 0.8 tone (level %v)", d.Level())
	}
	d.Process(generateSineWave(testToneFrequency, testSampleRate, testBlockSize, 0.2))
	if d.Sample(now) {
		t.Errorf("Sample() = true for a 0.2 tone (level %v)", d.Level())
	}
}

func TestLevelDetector_PartialBlocks(t *testing.T) {
	d := testDetector(t, DetectorConfig{Threshold: 0.4})
	tone := generateSineWave(testToneFrequency, testSampleRate, testBlockSize, 1.0)

	d.Process(tone[:100])
	if d.Sample(time.Now()) {
		t.Error("Sample() = true before a block completed")
	}
	d.Process(tone[100:])
	if !d.Sample(time.Now()) {
		t.Error("Sample() = false after the block completed")
	}
}

func TestLevelDetector_AGC(t *testing.T) {
	d := testDetector(t, DetectorConfig{Threshold: 0.5, AGCEnabled: true, AGCDecay: 0.99, AGCAttack: 0.5})
	quiet := generateSineWave(testToneFrequency, testSampleRate, testBlockSize, 0.05)

	// a weak tone is normalized up against the peak it sets
	for i := 0; i < 10; i++ {
		d.Process(quiet)
	}
	if !d.Sample(time.Now()) {
		t.Errorf("Sample() = false for a weak tone with AGC (level %v)", d.Level())
	}
	d.Process(make([]float32, testBlockSize))
	if d.Sample(time.Now()) {
		t.Errorf("Sample() = true for silence (level %v)", d.Level())
	}
}

func TestLevelDetector_Reset(t *testing.T) {
	d := testDetector(t, DetectorConfig{Threshold: 0.4})
	d.Process(generateSineWave(testToneFrequency, testSampleRate, testBlockSize, 1.0))
	d.Reset()
	if d.Sample(time.Now()) || d.Level() != 0 {
		t.Errorf("after Reset Sample() = %v, Level() = %v", d.Sample(time.Now()), d.Level())
	}
}
