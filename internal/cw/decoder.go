// internal/cw/decoder.go
package cw

import (
	"errors"
	"time"
)

// InputMode selects how raw samples are filtered before classification.
type InputMode int

const (
	// ModeKeyer debounces a digital key line
	ModeKeyer InputMode = iota
	// ModeAudio applies a minimum-duration filter to a thresholded tone
	ModeAudio
)

func (m InputMode) String() string {
	switch m {
	case ModeKeyer:
		return "keyer"
	case ModeAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// ParseInputMode maps a config value to an InputMode.
func ParseInputMode(s string) (InputMode, bool) {
	switch s {
	case "keyer", "":
		return ModeKeyer, true
	case "audio":
		return ModeAudio, true
	}
	return ModeKeyer, false
}

// DefaultDebounce is the keyer debounce interval. Keep well below one dot.
const DefaultDebounce = 20 * time.Millisecond

// ErrInvalidDebounce indicates the debounce interval is negative
var ErrInvalidDebounce = errors.New("debounce interval must not be negative")

// DecoderConfig holds configuration for the decoder.
type DecoderConfig struct {
	// WPM is the receive speed (from config: wpm)
	WPM int
	// Mode selects keyer debouncing or audio filtering (from config: input_mode)
	Mode InputMode
	// ActiveLow inverts keyer samples, for pulled-up key lines (from config: active_low)
	ActiveLow bool
	// Debounce is the keyer settle time (from config: debounce_ms)
	Debounce time.Duration
	// WordGapPolicy selects the word space threshold (from config: word_gap_policy)
	WordGapPolicy WordGapPolicy
}

// Decoder turns timed mark/space samples into characters.
// It is not safe for concurrent use; drive it from a single polling loop.
type Decoder struct {
	config  DecoderConfig
	table   *CodeTable
	speaker *Speaker
	timing  TimingProfile

	treeIndex   int
	signalState bool
	lastRaw     bool

	markStart      time.Time
	spaceStart     time.Time
	lastTransition time.Time

	classified       bool // the last mark has been resolved (or discarded)
	wordSpaceEmitted bool

	out      byte
	overruns uint64
}

// NewDecoder creates a decoder. speaker may be nil.
func NewDecoder(cfg DecoderConfig, table *CodeTable, speaker *Speaker) (*Decoder, error) {
	if table == nil {
		return nil, ErrNilTable
	}
	if cfg.Debounce < 0 {
		return nil, ErrInvalidDebounce
	}
	d := &Decoder{
		config:           cfg,
		table:            table,
		speaker:          speaker,
		timing:           NewTimingProfile(cfg.WPM),
		classified:       true,
		wordSpaceEmitted: true,
	}
	d.speaker.SideTone(false)
	return d, nil
}

// SetSpeed recomputes the timing profile; it applies from the next tick.
func (d *Decoder) SetSpeed(wpm int) {
	d.timing = NewTimingProfile(wpm)
}

// Speed returns the clamped speed in WPM.
func (d *Decoder) Speed() int { return d.timing.WPM }

// Timing returns the current timing profile.
func (d *Decoder) Timing() TimingProfile { return d.timing }

// SignalState returns the filtered "receiving a mark" state.
func (d *Decoder) SignalState() bool { return d.signalState }

// Available reports whether a decoded character is waiting.
func (d *Decoder) Available() bool { return d.out != 0 }

// Read returns the waiting character and clears it. It returns 0 when
// nothing is waiting.
func (d *Decoder) Read() byte {
	c := d.out
	d.out = 0
	return c
}

// Overruns counts characters overwritten before they were read.
func (d *Decoder) Overruns() uint64 { return d.overruns }

// Tick advances the decoder by one sample.
func (d *Decoder) Tick(now time.Time, raw bool) {
	before := d.signalState
	if d.config.Mode == ModeAudio {
		d.filterAudio(now, raw)
	} else {
		d.debounceKeyer(now, raw)
	}
	if d.signalState != before {
		d.speaker.SideTone(d.signalState)
	}

	if d.signalState {
		// a new mark is in progress
		d.classified = false
		d.wordSpaceEmitted = false
		return
	}

	if !d.classified {
		d.classify(now)
	}

	pause := since(now, d.spaceStart)
	if pause >= 2*d.timing.Dot && d.treeIndex > 0 {
		d.emit(d.table.Lookup(d.treeIndex))
		d.treeIndex = 0
		return
	}
	if pause > d.config.WordGapPolicy.Threshold(d.timing) && !d.wordSpaceEmitted {
		d.emit(' ')
		d.wordSpaceEmitted = true
	}
}

func (d *Decoder) debounceKeyer(now time.Time, raw bool) {
	if d.config.ActiveLow {
		raw = !raw
	}
	if raw != d.lastRaw {
		d.lastTransition = now
	}
	d.lastRaw = raw

	if since(now, d.lastTransition) > d.config.Debounce {
		d.signalState = raw
		if raw {
			d.markStart = d.lastTransition
		} else {
			d.spaceStart = d.lastTransition
		}
	}
}

func (d *Decoder) filterAudio(now time.Time, raw bool) {
	settle := d.timing.Dot / 2
	if raw {
		if since(now, d.lastTransition) > settle {
			d.markStart = now
			d.signalState = true
		}
		d.lastTransition = now
		return
	}
	if d.signalState && since(now, d.lastTransition) > settle {
		d.spaceStart = d.lastTransition
		d.signalState = false
	}
}

// classify resolves the mark that just ended into a dot or a dash.
func (d *Decoder) classify(now time.Time) {
	if !d.table.CanDescend(d.treeIndex) {
		d.emit(ErrorMarker)
		d.treeIndex = 0
		d.classified = true
		return
	}
	if since(now, d.spaceStart) <= d.timing.Dot/4 {
		return
	}

	mark := d.spaceStart.Sub(d.markStart)
	switch {
	case mark <= d.timing.Dot/4:
		// glitch
	case mark < d.timing.Dash/2:
		d.treeIndex = d.table.Descend(d.treeIndex, Dot)
		d.classified = true
	case mark < d.timing.Dash+d.timing.Dot:
		d.treeIndex = d.table.Descend(d.treeIndex, Dash)
		d.classified = true
	}
}

func (d *Decoder) emit(c byte) {
	if d.out != 0 {
		d.overruns++
	}
	d.out = c
}

// Reset returns the decoder to idle without changing its speed.
func (d *Decoder) Reset() {
	d.treeIndex = 0
	d.signalState = false
	d.lastRaw = false
	d.markStart = time.Time{}
	d.spaceStart = time.Time{}
	d.lastTransition = time.Time{}
	d.classified = true
	d.wordSpaceEmitted = true
	d.out = 0
	d.speaker.SideTone(false)
}
