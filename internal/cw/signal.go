// internal/cw/signal.go
package cw

import "time"

// SignalSource reports whether a mark is present at the given time.
// Keyer sources return the raw line level; audio sources return the
// thresholded tone level.
type SignalSource interface {
	Sample(now time.Time) bool
}

// SignalSink drives the physical output line.
type SignalSink interface {
	SetOutput(asserted bool)
}

// SymbolSink is an optional extension of SignalSink. When the encoder's sink
// implements it, the sink is told which symbol starts and stops and whether
// it is the first or last one of the character.
type SymbolSink interface {
	StartSymbol(startOfChar bool, s Symbol)
	StopSymbol(endOfChar bool, s Symbol)
}

// ToneSink plays or silences an audible tone. hz is ignored when on is false.
type ToneSink interface {
	SetTone(on bool, hz float64)
}

// SignalSinkFunc adapts a function to SignalSink.
type SignalSinkFunc func(asserted bool)

// SetOutput calls f(asserted).
func (f SignalSinkFunc) SetOutput(asserted bool) { f(asserted) }

// SignalSourceFunc adapts a function to SignalSource.
type SignalSourceFunc func(now time.Time) bool

// Sample calls f(now).
func (f SignalSourceFunc) Sample(now time.Time) bool { return f(now) }
