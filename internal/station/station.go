// internal/station/station.go
// Package station runs the receive and transmit state machines from a single
// polling loop.
package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/ColonelBlimp/cwkeyer/internal/recovery"
)

// DefaultPollInterval must stay well below the debounce interval.
const DefaultPollInterval = time.Millisecond

var (
	ErrNothingToRun      = errors.New("station needs a decoder or an encoder")
	ErrNoSource          = errors.New("decoder needs a signal source")
	ErrInvalidPollPeriod = errors.New("poll interval must be positive")
)

// Options wires a station. Either Decoder or Encoder may be nil.
type Options struct {
	Decoder *cw.Decoder
	Encoder *cw.Encoder
	// Source is sampled for the decoder
	Source cw.SignalSource
	// Sink is released if the loop panics; it should be the encoder's sink
	Sink cw.SignalSink
	// Output receives decoded characters; nil discards them
	Output io.Writer
	Logger *slog.Logger
}

// Station owns a decoder and an encoder. Send, SetSpeed and Idle may be
// called from any goroutine; everything else belongs to the loop.
type Station struct {
	decoder *cw.Decoder
	encoder *cw.Encoder
	source  cw.SignalSource
	sink    cw.SignalSink
	out     io.Writer
	log     *slog.Logger

	overruns uint64
	buf      [1]byte

	mu           sync.Mutex
	queue        []byte
	busy         bool // encoder has a character in flight
	speed        int
	speedPending bool
}

// New validates opts and returns a station.
func New(opts Options) (*Station, error) {
	if opts.Decoder == nil && opts.Encoder == nil {
		return nil, ErrNothingToRun
	}
	if opts.Decoder != nil && opts.Source == nil {
		return nil, ErrNoSource
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Station{
		decoder: opts.Decoder,
		encoder: opts.Encoder,
		source:  opts.Source,
		sink:    opts.Sink,
		out:     opts.Output,
		log:     opts.Logger,
	}, nil
}

// Send queues text for transmission. Without an encoder it is dropped.
func (s *Station) Send(text string) {
	if s.encoder == nil || text == "" {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, text...)
	s.mu.Unlock()
}

// SetSpeed changes both state machines' speed at the next tick.
// Out of range values are clamped like cw.NewTimingProfile does.
func (s *Station) SetSpeed(wpm int) {
	s.mu.Lock()
	s.speed = wpm
	s.speedPending = true
	s.mu.Unlock()
}

// Idle reports whether everything queued has been sent.
func (s *Station) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) == 0 && !s.busy
}

// Tick runs one poll of both state machines.
func (s *Station) Tick(now time.Time) error {
	s.mu.Lock()
	if s.speedPending {
		s.applySpeed(s.speed)
		s.speedPending = false
	}
	if s.encoder != nil {
		if s.encoder.Available() && len(s.queue) > 0 {
			c := s.queue[0]
			s.queue = s.queue[1:]
			if s.encoder.Write(c) {
				s.log.Debug("sending", "char", string(c))
			}
		}
		s.encoder.Tick(now)
		s.busy = !s.encoder.Available()
	}
	s.mu.Unlock()

	if s.decoder == nil {
		return nil
	}
	s.decoder.Tick(now, s.source.Sample(now))
	if n := s.decoder.Overruns(); n != s.overruns {
		s.log.Warn("decoded character overwritten before it was read", "overruns", n)
		s.overruns = n
	}
	if !s.decoder.Available() {
		return nil
	}
	s.buf[0] = s.decoder.Read()
	if s.buf[0] == cw.ErrorMarker {
		s.log.Debug("undecodable sequence")
	}
	if _, err := s.out.Write(s.buf[:]); err != nil {
		return fmt.Errorf("write decoded text: %w", err)
	}
	return nil
}

func (s *Station) applySpeed(wpm int) {
	if s.decoder != nil {
		s.decoder.SetSpeed(wpm)
	}
	if s.encoder != nil {
		s.encoder.SetSpeed(wpm)
	}
	s.log.Info("speed changed", "wpm", cw.NewTimingProfile(wpm).WPM)
}

// Run polls at interval until ctx is cancelled or output fails.
func (s *Station) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidPollPeriod
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Debug("station running", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.release()
			return nil
		case now := <-ticker.C:
			if err := s.Tick(now); err != nil {
				s.release()
				return err
			}
		}
	}
}

// Start runs the loop in its own goroutine. The returned channel yields
// Run's result and is then closed.
func (s *Station) Start(ctx context.Context, interval time.Duration) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		defer recovery.HandlePanicFunc(s.release)
		done <- s.Run(ctx, interval)
	}()
	return done
}

// WaitIdle blocks until Idle or ctx is done.
func (s *Station) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !s.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// release unkeys the transmitter.
func (s *Station) release() {
	if s.sink != nil {
		s.sink.SetOutput(false)
	}
}
