// internal/cw/encoder.go
package cw

import "time"

// Phase is the encoder's transmit state.
type Phase int

const (
	// PhaseIdle means no character is in flight
	PhaseIdle Phase = iota
	// PhaseAsserting means the output is keyed for the current symbol
	PhaseAsserting
	// PhaseGapAfterSymbol is the one-dot pause between symbols of a character
	PhaseGapAfterSymbol
	// PhaseGapAfterLetter is the one-dash pause after the last symbol
	PhaseGapAfterLetter
	// PhaseWordSpace is the extra silence sent for a space character
	PhaseWordSpace
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAsserting:
		return "asserting"
	case PhaseGapAfterSymbol:
		return "gap-after-symbol"
	case PhaseGapAfterLetter:
		return "gap-after-letter"
	case PhaseWordSpace:
		return "word-space"
	default:
		return "unknown"
	}
}

// EncoderConfig holds configuration for the encoder.
type EncoderConfig struct {
	// WPM is the transmit speed (from config: wpm)
	WPM int
}

// Encoder keys a SignalSink to send characters.
// It is not safe for concurrent use; drive it from a single polling loop.
type Encoder struct {
	table   *CodeTable
	sink    SignalSink
	symbols SymbolSink // sink, if it wants symbol detail
	speaker *Speaker
	timing  TimingProfile

	pending byte
	signals []Symbol // leaf-to-root, sent from the end
	cursor  int      // signals[cursor-1] is the current symbol

	phase      Phase
	phaseStart time.Time
	phaseHold  time.Duration // captured when the phase began
}

// NewEncoder creates an encoder. sink and speaker may be nil.
func NewEncoder(cfg EncoderConfig, table *CodeTable, sink SignalSink, speaker *Speaker) (*Encoder, error) {
	if table == nil {
		return nil, ErrNilTable
	}
	e := &Encoder{
		table:   table,
		sink:    sink,
		speaker: speaker,
		timing:  NewTimingProfile(cfg.WPM),
		signals: make([]Symbol, 0, table.Depth()),
	}
	if ss, ok := sink.(SymbolSink); ok {
		e.symbols = ss
	}
	e.setOutput(false)
	e.speaker.OutputTone(false)
	return e, nil
}

// SetSpeed recomputes the timing profile. A phase already running keeps
// the duration it started with.
func (e *Encoder) SetSpeed(wpm int) {
	e.timing = NewTimingProfile(wpm)
}

// Speed returns the clamped speed in WPM.
func (e *Encoder) Speed() int { return e.timing.WPM }

// Timing returns the current timing profile.
func (e *Encoder) Timing() TimingProfile { return e.timing }

// Phase returns the current transmit phase.
func (e *Encoder) Phase() Phase { return e.phase }

// Available reports whether the encoder is idle and will accept a character.
func (e *Encoder) Available() bool {
	return e.phase == PhaseIdle && e.pending == 0
}

// Write queues c for transmission. It returns false when the encoder is
// busy or c is 0 or the table wildcard.
func (e *Encoder) Write(c byte) bool {
	if !e.Available() || c == 0 || c == Wildcard {
		return false
	}
	e.pending = c
	return true
}

// Tick advances the transmit state machine.
func (e *Encoder) Tick(now time.Time) {
	if e.phase == PhaseIdle {
		if e.pending == 0 {
			return
		}
		e.load(now)
	}

	elapsed := now.Sub(e.phaseStart)
	switch e.phase {
	case PhaseAsserting:
		if elapsed >= e.phaseHold {
			e.stop(e.cursor <= 1)
			if e.cursor > 1 {
				e.enter(now, PhaseGapAfterSymbol, e.timing.Dot)
			} else {
				e.enter(now, PhaseGapAfterLetter, e.timing.Dash)
			}
		}
	case PhaseGapAfterSymbol:
		if elapsed >= e.phaseHold {
			e.cursor--
			e.start(now, false)
		}
	case PhaseGapAfterLetter:
		if elapsed >= e.phaseHold {
			e.finish()
		}
	case PhaseWordSpace:
		// inter-letter spacing was already sent after the previous letter
		if elapsed > e.phaseHold {
			e.finish()
		}
	}
}

// load traces the pending character and begins its first symbol.
func (e *Encoder) load(now time.Time) {
	index := e.table.FindIndex(e.pending)
	if index == NotFound {
		index = 0
	}
	e.signals = Trace(e.signals[:0], index)
	e.cursor = len(e.signals)
	if e.signals[0] == WordSpace {
		e.enter(now, PhaseWordSpace, e.timing.WordGap-e.timing.Dash)
		return
	}
	e.start(now, true)
}

func (e *Encoder) start(now time.Time, startOfChar bool) {
	s := e.signals[e.cursor-1]
	e.setOutput(true)
	e.speaker.OutputTone(true)
	if e.symbols != nil {
		e.symbols.StartSymbol(startOfChar, s)
	}
	hold := e.timing.Dot
	if s == Dash {
		hold = e.timing.Dash
	}
	e.enter(now, PhaseAsserting, hold)
}

func (e *Encoder) stop(endOfChar bool) {
	e.setOutput(false)
	e.speaker.OutputTone(false)
	if e.symbols != nil {
		e.symbols.StopSymbol(endOfChar, e.signals[e.cursor-1])
	}
}

func (e *Encoder) enter(now time.Time, p Phase, hold time.Duration) {
	e.phase = p
	e.phaseStart = now
	e.phaseHold = hold
}

func (e *Encoder) finish() {
	e.cursor = 0
	e.phase = PhaseIdle
	e.pending = 0
}

func (e *Encoder) setOutput(on bool) {
	if e.sink != nil {
		e.sink.SetOutput(on)
	}
}
