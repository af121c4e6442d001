// internal/audio/tone.go
package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// ToneGenerator renders samples for playback.
type ToneGenerator interface {
	Fill(out []float32)
}

// ToneOutput plays a ToneGenerator (normally a dsp.Oscillator) on a
// playback device. Keying is done on the generator, not here.
type ToneOutput struct {
	config    Config
	generator ToneGenerator

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running atomic.Bool
	mono    []float32 // reused render buffer
}

// NewToneOutput creates a playback output for generator
func NewToneOutput(cfg Config, generator ToneGenerator) *ToneOutput {
	return &ToneOutput{
		config:    cfg,
		generator: generator,
		mono:      make([]float32, cfg.BufferSize),
	}
}

// Init initializes the audio backend
func (t *ToneOutput) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx, err := initContext()
	if err != nil {
		return err
	}
	t.ctx = ctx
	return nil
}

// Start begins playback. The device stops when ctx is cancelled.
func (t *ToneOutput) Start(ctx context.Context) error {
	if t.running.Load() {
		return ErrAlreadyRunning
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx == nil {
		return ErrNotInitialized
	}

	channels := t.config.Channels
	if channels == 0 {
		channels = 1
	}
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.SampleRate = t.config.SampleRate
	deviceConfig.PeriodSizeInFrames = t.config.BufferSize
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = channels

	id, err := deviceID(t.ctx, malgo.Playback, t.config.DeviceIndex)
	if err != nil {
		return err
	}
	if id != nil {
		deviceConfig.Playback.DeviceID = id.Pointer()
	}

	onSendFrames := func(output, _ []byte, frames uint32) {
		t.render(bytesAsFloat32(output), int(frames), int(channels))
	}

	device, err := malgo.InitDevice(t.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		return fmt.Errorf("init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start playback device: %w", err)
	}
	t.device = device
	t.running.Store(true)

	go func() {
		<-ctx.Done()
		_ = t.Stop()
	}()
	return nil
}

// render fills interleaved output with the mono generator signal.
func (t *ToneOutput) render(out []float32, frames, channels int) {
	if frames > len(t.mono) {
		t.mono = make([]float32, frames)
	}
	mono := t.mono[:frames]
	t.generator.Fill(mono)
	for i, s := range mono {
		for ch := 0; ch < channels && i*channels+ch < len(out); ch++ {
			out[i*channels+ch] = s
		}
	}
}

// Stop stops playback
func (t *ToneOutput) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running.Load() {
		return ErrNotRunning
	}
	if t.device != nil {
		_ = t.device.Stop()
		t.device.Uninit()
		t.device = nil
	}
	t.running.Store(false)
	return nil
}

// Close releases all audio resources
func (t *ToneOutput) Close() error {
	_ = t.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	return freeContext(&t.ctx)
}

// IsRunning returns true if playback is active
func (t *ToneOutput) IsRunning() bool {
	return t.running.Load()
}
