//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/dsp"
)

// These tests require actual audio hardware and are skipped by default.
// Run with: go test -tags=integration ./internal/audio

func TestCapture_ListDevices_Integration(t *testing.T) {
	capture := NewCapture(DefaultConfig(), &sampleCounter{})
	defer capture.Close()

	if err := capture.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	devices, err := capture.ListDevices()
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}

	t.Logf("Found %d capture devices:", len(devices))
	for i, d := range devices {
		t.Logf("  [%d] %s", i, d.Name())
	}
}

func TestCapture_ReceivesSamples_Integration(t *testing.T) {
	consumer := &sampleCounter{}
	capture := NewCapture(DefaultConfig(), consumer)
	defer capture.Close()

	if err := capture.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := capture.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)

	if capture.IsRunning() {
		t.Error("capture still running after context cancellation")
	}
	t.Logf("received %d samples in %d callbacks", consumer.samples, consumer.calls)
}

func TestToneOutput_Plays_Integration(t *testing.T) {
	osc := dsp.NewOscillator(48000, 0.3)
	out := NewToneOutput(DefaultConfig(), osc)
	defer out.Close()

	if err := out.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	if err := out.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	osc.SetTone(true, 600)
	time.Sleep(200 * time.Millisecond)
	osc.SetTone(false, 0)
	<-ctx.Done()
}

func TestDeviceNames_Integration(t *testing.T) {
	capture, playback, err := DeviceNames()
	if err != nil {
		t.Fatalf("DeviceNames() error = %v", err)
	}
	t.Logf("capture: %v", capture)
	t.Logf("playback: %v", playback)
}
