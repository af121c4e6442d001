// internal/cli/rig/rig.go
// Package rig builds the station's signal source, keying sink and tone
// output from the loaded settings.
package rig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/audio"
	"github.com/ColonelBlimp/cwkeyer/internal/config"
	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/ColonelBlimp/cwkeyer/internal/dsp"
	"github.com/ColonelBlimp/cwkeyer/internal/serialkey"
)

// toneAmplitude leaves headroom on the playback device.
const toneAmplitude = 0.5

var ErrNoSerialPort = errors.New("serial_port is required in keyer mode")

// Purpose says which halves of the station will run.
type Purpose int

const (
	// Receive needs a signal source
	Receive Purpose = 1 << iota
	// Transmit needs a keying sink
	Transmit
	// Loopback joins the encoder's output to the decoder's input in software
	Loopback
)

// swappable in tests
var (
	openSerial = func(cfg serialkey.Config) (keyLine, error) { return serialkey.Open(cfg) }
	openTone   = startToneOutput
	openAudio  = startCapture
)

// keyLine is a serial key: sampled, keyed, and closed.
type keyLine interface {
	cw.SignalSource
	cw.SignalSink
	Err() error
	Close() error
}

// Rig holds the opened hardware. Source and Sink may be nil when the
// purpose does not need them.
type Rig struct {
	Source  cw.SignalSource
	Sink    cw.SignalSink
	Speaker *cw.Speaker

	key     keyLine
	closers []func() error
}

// Open opens what purpose needs. Audio devices stop when ctx is cancelled;
// Close releases everything.
func Open(ctx context.Context, s *config.Settings, purpose Purpose, logger *slog.Logger) (*Rig, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Rig{}

	if s.OutputTone || s.SideTone {
		osc := dsp.NewOscillator(s.SampleRate, toneAmplitude)
		closer, err := openTone(ctx, s, osc)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, closer)
		r.Speaker = cw.NewSpeaker(SpeakerConfig(s), osc)
		logger.Debug("tone output started", "output_tone", s.OutputTone, "sidetone", s.SideTone)
	}

	if purpose&Loopback != 0 {
		line := &softLine{}
		r.Source, r.Sink = line, line
		logger.Debug("software loopback")
		return r, nil
	}

	mode, _ := cw.ParseInputMode(s.InputMode)
	needSerial := (purpose&Receive != 0 && mode == cw.ModeKeyer) ||
		(purpose&Transmit != 0 && (mode == cw.ModeKeyer || s.SerialPort != ""))
	if needSerial {
		if err := r.openKey(s, logger); err != nil {
			_ = r.Close()
			return nil, err
		}
	}

	if purpose&Receive != 0 && mode == cw.ModeAudio {
		det, closer, err := openAudio(ctx, s)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		r.closers = append(r.closers, closer)
		r.Source = det
		logger.Debug("audio capture started", "device_index", s.DeviceIndex, "tone_frequency", s.ToneFrequency)
	}
	return r, nil
}

func (r *Rig) openKey(s *config.Settings, logger *slog.Logger) error {
	if s.SerialPort == "" {
		return ErrNoSerialPort
	}
	in, err := serialkey.ParseInputLine(s.InputLine)
	if err != nil {
		return err
	}
	out, err := serialkey.ParseOutputLine(s.OutputLine)
	if err != nil {
		return err
	}
	key, err := openSerial(serialkey.Config{Port: s.SerialPort, BaudRate: s.BaudRate, Input: in, Output: out})
	if err != nil {
		return err
	}
	r.key = key
	r.Source, r.Sink = key, key
	r.closers = append(r.closers, key.Close)
	logger.Debug("serial key opened", "port", s.SerialPort, "input", in, "output", out)
	return nil
}

// Err reports a latched serial line error.
func (r *Rig) Err() error {
	if r.key == nil {
		return nil
	}
	return r.key.Err()
}

// Close releases the hardware in reverse order of opening.
func (r *Rig) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// DecoderConfig maps settings onto the decoder.
func DecoderConfig(s *config.Settings) cw.DecoderConfig {
	mode, _ := cw.ParseInputMode(s.InputMode)
	policy, _ := cw.ParseWordGapPolicy(s.WordGapPolicy)
	return cw.DecoderConfig{
		WPM:           s.WPM,
		Mode:          mode,
		ActiveLow:     s.ActiveLow,
		Debounce:      s.Debounce(),
		WordGapPolicy: policy,
	}
}

// EncoderConfig maps settings onto the encoder.
func EncoderConfig(s *config.Settings) cw.EncoderConfig {
	return cw.EncoderConfig{WPM: s.WPM}
}

// SpeakerConfig maps settings onto the speaker.
func SpeakerConfig(s *config.Settings) cw.SpeakerConfig {
	return cw.SpeakerConfig{
		OutputTone:  s.OutputTone,
		SideTone:    s.SideTone,
		OutputPitch: s.OutputPitch,
		SidePitch:   s.SidetonePitch,
	}
}

// ListAudioDevices returns capture and playback device names.
func ListAudioDevices() (capture, playback []string, err error) {
	return audio.DeviceNames()
}

// softLine is a key line joined back to itself.
type softLine struct{ on atomic.Bool }

func (l *softLine) SetOutput(on bool)     { l.on.Store(on) }
func (l *softLine) Sample(time.Time) bool { return l.on.Load() }

func audioConfig(s *config.Settings, device int) audio.Config {
	cfg := audio.DefaultConfig()
	cfg.DeviceIndex = device
	cfg.SampleRate = uint32(s.SampleRate)
	cfg.BufferSize = uint32(s.BufferSize)
	return cfg
}

func startToneOutput(ctx context.Context, s *config.Settings, gen audio.ToneGenerator) (func() error, error) {
	out := audio.NewToneOutput(audioConfig(s, s.PlaybackDeviceIndex), gen)
	if err := out.Init(); err != nil {
		return nil, err
	}
	if err := out.Start(ctx); err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("start tone output: %w", err)
	}
	return out.Close, nil
}

func startCapture(ctx context.Context, s *config.Settings) (cw.SignalSource, func() error, error) {
	g, err := dsp.NewGoertzel(dsp.GoertzelConfig{
		TargetFrequency: s.ToneFrequency,
		SampleRate:      s.SampleRate,
		BlockSize:       s.BlockSize,
	})
	if err != nil {
		return nil, nil, err
	}
	det, err := dsp.NewDetector(dsp.DetectorConfig{
		Threshold:  s.Threshold,
		AGCEnabled: s.AGCEnabled,
		AGCDecay:   s.AGCDecay,
		AGCAttack:  s.AGCAttack,
	}, g)
	if err != nil {
		return nil, nil, err
	}

	capture := audio.NewCapture(audioConfig(s, s.DeviceIndex), det)
	if err := capture.Init(); err != nil {
		return nil, nil, err
	}
	if err := capture.Start(ctx); err != nil {
		_ = capture.Close()
		return nil, nil, fmt.Errorf("start capture: %w", err)
	}
	return det, capture.Close, nil
}
