// internal/cw/speaker.go
package cw

import "sync"

// Tone pitches used when none are configured
const (
	// DefaultOutputPitch is A3, played while the encoder keys the output
	DefaultOutputPitch = 220.0
	// DefaultSidePitch is C4, played while the decoder hears a mark
	DefaultSidePitch = 261.63
)

// SpeakerConfig enables the two audible feedback channels.
type SpeakerConfig struct {
	// OutputTone sounds the keyed transmit audio (from config: output_tone)
	OutputTone bool
	// SideTone monitors the received signal (from config: sidetone)
	SideTone bool
	// OutputPitch in Hz (from config: output_pitch)
	OutputPitch float64
	// SidePitch in Hz (from config: sidetone_pitch)
	SidePitch float64
}

// Speaker shares one ToneSink between the encoder and the decoder.
// The sidetone takes priority: while the receive side is keyed the
// output tone is suppressed.
type Speaker struct {
	config SpeakerConfig
	sink   ToneSink

	mu      sync.Mutex
	keyDown bool
}

// NewSpeaker returns a speaker writing to sink. Zero pitches get defaults.
func NewSpeaker(cfg SpeakerConfig, sink ToneSink) *Speaker {
	if cfg.OutputPitch <= 0 {
		cfg.OutputPitch = DefaultOutputPitch
	}
	if cfg.SidePitch <= 0 {
		cfg.SidePitch = DefaultSidePitch
	}
	return &Speaker{config: cfg, sink: sink}
}

// OutputTone follows the encoder's asserted state.
func (s *Speaker) OutputTone(on bool) {
	if s == nil || s.sink == nil || !s.config.OutputTone {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.keyDown:
		// the sidetone owns the sink until the receive side lets go
	case on:
		s.sink.SetTone(true, s.config.OutputPitch)
	default:
		s.sink.SetTone(false, 0)
	}
}

// SideTone follows the decoder's signal state.
func (s *Speaker) SideTone(on bool) {
	if s == nil || s.sink == nil || !s.config.SideTone {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyDown = on
	if on {
		s.sink.SetTone(true, s.config.SidePitch)
	} else {
		s.sink.SetTone(false, 0)
	}
}

// Config returns the speaker configuration.
func (s *Speaker) Config() SpeakerConfig {
	return s.config
}
