// internal/cw/timing.go
package cw

import "time"

// Morse code timing ratios (ITU standard, PARIS word = 50 dot units)
const (
	// DotUnitsPerMinute divided by WPM gives the dot duration in milliseconds
	DotUnitsPerMinute = 1200
	// DashDotRatio is the ratio of dash duration to dot duration
	DashDotRatio = 3
	// WordGapRatio is the ratio of the gap between words to dot duration
	WordGapRatio = 7
	// MinWPM is the lowest accepted speed; lower values are clamped
	MinWPM = 1
	// MaxWPM is the highest speed with a dot of at least one millisecond
	MaxWPM = DotUnitsPerMinute
	// DefaultWPM matches the power-on speed of the hardware keyer
	DefaultWPM = 13
)

// TimingProfile holds the durations derived from a speed setting.
// Values are truncated to whole milliseconds.
type TimingProfile struct {
	WPM     int
	Dot     time.Duration
	Dash    time.Duration
	WordGap time.Duration
}

// NewTimingProfile derives the profile for wpm, clamping it to
// [MinWPM, MaxWPM].
func NewTimingProfile(wpm int) TimingProfile {
	switch {
	case wpm < MinWPM:
		wpm = MinWPM
	case wpm > MaxWPM:
		wpm = MaxWPM
	}
	return TimingProfile{
		WPM:     wpm,
		Dot:     time.Duration(DotUnitsPerMinute/wpm) * time.Millisecond,
		Dash:    time.Duration(DashDotRatio*DotUnitsPerMinute/wpm) * time.Millisecond,
		WordGap: time.Duration(WordGapRatio*DotUnitsPerMinute/wpm) * time.Millisecond,
	}
}

// WordGapPolicy selects when a pause counts as a word boundary.
type WordGapPolicy int

const (
	// WordGapFull emits a space once the pause exceeds the full word gap
	WordGapFull WordGapPolicy = iota
	// WordGapTwoThirds emits a space once the pause exceeds 2/3 of the word gap
	WordGapTwoThirds
)

// Threshold returns the pause length that must be exceeded before a space.
func (p WordGapPolicy) Threshold(t TimingProfile) time.Duration {
	if p == WordGapTwoThirds {
		return (t.WordGap * 2 / 3).Truncate(time.Millisecond)
	}
	return t.WordGap
}

func (p WordGapPolicy) String() string {
	switch p {
	case WordGapFull:
		return "full"
	case WordGapTwoThirds:
		return "two_thirds"
	default:
		return "unknown"
	}
}

// ParseWordGapPolicy maps a config value to a policy.
func ParseWordGapPolicy(s string) (WordGapPolicy, bool) {
	switch s {
	case "full", "":
		return WordGapFull, true
	case "two_thirds":
		return WordGapTwoThirds, true
	}
	return WordGapFull, false
}

// since returns now-t, treating an unset t as the distant past.
func since(now, t time.Time) time.Duration {
	if t.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(t)
}
