// internal/audio/capture.go
// Package audio connects the Morse state machines to sound hardware through
// malgo: capture feeds the tone level detector, playback sounds the tones.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
)

var (
	ErrNotInitialized = errors.New("audio device not initialized")
	ErrAlreadyRunning = errors.New("audio device already running")
	ErrNotRunning     = errors.New("audio device not running")
	ErrNoConsumer     = errors.New("audio capture needs a sample consumer")
)

// Config holds audio device configuration
type Config struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 48000
	Channels    uint32 // 1 for mono
	BufferSize  uint32 // frames per callback
}

// DefaultConfig returns defaults suited to tone keying
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		Channels:    1,
		BufferSize:  512,
	}
}

// SampleConsumer receives captured samples on the audio thread.
// Process must be fast and must not retain the slice.
type SampleConsumer interface {
	Process(samples []float32)
}

// Capture streams microphone or line-in audio into a SampleConsumer.
type Capture struct {
	config   Config
	consumer SampleConsumer

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running atomic.Bool
}

// NewCapture creates a capture feeding consumer
func NewCapture(cfg Config, consumer SampleConsumer) *Capture {
	return &Capture{config: cfg, consumer: consumer}
}

// Init initializes the audio backend
func (c *Capture) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, err := initContext()
	if err != nil {
		return err
	}
	c.ctx = ctx
	return nil
}

// ListDevices returns available capture devices
func (c *Capture) ListDevices() ([]malgo.DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx == nil {
		return nil, ErrNotInitialized
	}
	return listDevices(c.ctx, malgo.Capture)
}

// Start begins capturing. The device stops when ctx is cancelled.
func (c *Capture) Start(ctx context.Context) error {
	if c.running.Load() {
		return ErrAlreadyRunning
	}
	if c.consumer == nil {
		return ErrNoConsumer
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return ErrNotInitialized
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.BufferSize
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = c.config.Channels

	id, err := deviceID(c.ctx, malgo.Capture, c.config.DeviceIndex)
	if err != nil {
		return err
	}
	if id != nil {
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	onRecvFrames := func(_, input []byte, _ uint32) {
		samples := bytesAsFloat32(input)
		if len(samples) == 0 {
			return
		}
		c.consumer.Process(samples)
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start capture device: %w", err)
	}
	c.device = device
	c.running.Store(true)

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()
	return nil
}

// Stop stops capturing
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running.Load() {
		return ErrNotRunning
	}
	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
	c.running.Store(false)
	return nil
}

// Close releases all audio resources
func (c *Capture) Close() error {
	_ = c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	return freeContext(&c.ctx)
}

// IsRunning returns true if capture is active
func (c *Capture) IsRunning() bool {
	return c.running.Load()
}

// bytesAsFloat32 reinterprets little-endian F32 frames without copying.
// The result aliases data and is only valid during the callback.
func bytesAsFloat32(data []byte) []float32 {
	n := len(data) / 4
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), n)
}
