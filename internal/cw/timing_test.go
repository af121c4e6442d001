package cw

import (
	"testing"
	"time"
)

func TestNewTimingProfile(t *testing.T) {
	tests := []struct {
		wpm                int
		wantWPM            int
		dot, dash, wordGap time.Duration
	}{
		{13, 13, 92 * time.Millisecond, 276 * time.Millisecond, 646 * time.Millisecond},
		{20, 20, 60 * time.Millisecond, 180 * time.Millisecond, 420 * time.Millisecond},
		{1, 1, 1200 * time.Millisecond, 3600 * time.Millisecond, 8400 * time.Millisecond},
		{0, 1, 1200 * time.Millisecond, 3600 * time.Millisecond, 8400 * time.Millisecond},
		{-5, 1, 1200 * time.Millisecond, 3600 * time.Millisecond, 8400 * time.Millisecond},
		{1200, 1200, time.Millisecond, 3 * time.Millisecond, 7 * time.Millisecond},
		{1201, 1200, time.Millisecond, 3 * time.Millisecond, 7 * time.Millisecond},
		{5000, 1200, time.Millisecond, 3 * time.Millisecond, 7 * time.Millisecond},
	}

	for _, tt := range tests {
		p := NewTimingProfile(tt.wpm)
		if p.WPM != tt.wantWPM {
			t.Errorf("NewTimingProfile(%d).WPM = %d, want %d", tt.wpm, p.WPM, tt.wantWPM)
		}
		if p.Dot != tt.dot || p.Dash != tt.dash || p.WordGap != tt.wordGap {
			t.Errorf("NewTimingProfile(%d) = %v/%v/%v, want %v/%v/%v",
				tt.wpm, p.Dot, p.Dash, p.WordGap, tt.dot, tt.dash, tt.wordGap)
		}
		if p.Dot <= 0 {
			t.Errorf("NewTimingProfile(%d).Dot = %v, must be positive", tt.wpm, p.Dot)
		}
	}
}

func TestWordGapPolicy_Threshold(t *testing.T) {
	p := NewTimingProfile(13)
	if got := WordGapFull.Threshold(p); got != 646*time.Millisecond {
		t.Errorf("WordGapFull.Threshold() = %v, want 646ms", got)
	}
	if got := WordGapTwoThirds.Threshold(p); got != 430*time.Millisecond {
		t.Errorf("WordGapTwoThirds.Threshold() = %v, want 430ms", got)
	}
}

func TestParseWordGapPolicy(t *testing.T) {
	tests := []struct {
		in   string
		want WordGapPolicy
		ok   bool
	}{
		{"full", WordGapFull, true},
		{"", WordGapFull, true},
		{"two_thirds", WordGapTwoThirds, true},
		{"half", WordGapFull, false},
	}
	for _, tt := range tests {
		got, ok := ParseWordGapPolicy(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseWordGapPolicy(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
		if ok && tt.in != "" && got.String() != tt.in {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), tt.in)
		}
	}
}
