package cw

import "testing"

// toneRecorder is a ToneSink that keeps the last request.
type toneRecorder struct {
	on    bool
	hz    float64
	calls int
}

func (r *toneRecorder) SetTone(on bool, hz float64) {
	r.on = on
	r.hz = hz
	r.calls++
}

func TestNewSpeaker_DefaultPitches(t *testing.T) {
	s := NewSpeaker(SpeakerConfig{}, &toneRecorder{})
	cfg := s.Config()
	if cfg.OutputPitch != DefaultOutputPitch {
		t.Errorf("OutputPitch = %v, want %v", cfg.OutputPitch, DefaultOutputPitch)
	}
	if cfg.SidePitch != DefaultSidePitch {
		t.Errorf("SidePitch = %v, want %v", cfg.SidePitch, DefaultSidePitch)
	}
}

func TestSpeaker_Disabled(t *testing.T) {
	rec := &toneRecorder{}
	s := NewSpeaker(SpeakerConfig{}, rec)
	s.OutputTone(true)
	s.SideTone(true)
	if rec.calls != 0 {
		t.Errorf("disabled speaker made %d calls", rec.calls)
	}
}

func TestSpeaker_OutputTone(t *testing.T) {
	rec := &toneRecorder{}
	s := NewSpeaker(SpeakerConfig{OutputTone: true, OutputPitch: 700}, rec)

	s.OutputTone(true)
	if !rec.on || rec.hz != 700 {
		t.Errorf("after OutputTone(true) tone = %v @ %v, want on @ 700", rec.on, rec.hz)
	}
	s.OutputTone(false)
	if rec.on {
		t.Error("after OutputTone(false) tone is on")
	}
}

func TestSpeaker_SideToneOverridesOutput(t *testing.T) {
	rec := &toneRecorder{}
	s := NewSpeaker(SpeakerConfig{OutputTone: true, SideTone: true}, rec)

	s.SideTone(true)
	if !rec.on || rec.hz != DefaultSidePitch {
		t.Fatalf("sidetone = %v @ %v, want on @ %v", rec.on, rec.hz, DefaultSidePitch)
	}
	s.OutputTone(true)
	if !rec.on || rec.hz != DefaultSidePitch {
		t.Errorf("while the sidetone is keyed tone = %v @ %v, want on @ %v", rec.on, rec.hz, DefaultSidePitch)
	}
	s.SideTone(false)
	s.OutputTone(true)
	if !rec.on || rec.hz != DefaultOutputPitch {
		t.Errorf("output tone = %v @ %v, want on @ %v", rec.on, rec.hz, DefaultOutputPitch)
	}
}

func TestSpeaker_OutputStopKeepsSideTone(t *testing.T) {
	rec := &toneRecorder{}
	s := NewSpeaker(SpeakerConfig{OutputTone: true, SideTone: true}, rec)

	s.OutputTone(true)
	s.SideTone(true)
	s.OutputTone(false)
	if !rec.on || rec.hz != DefaultSidePitch {
		t.Errorf("after OutputTone(false) tone = %v @ %v, want sidetone on @ %v", rec.on, rec.hz, DefaultSidePitch)
	}
	s.SideTone(false)
	if rec.on {
		t.Error("tone still on after both sides released")
	}
}

func TestSpeaker_NilSafe(t *testing.T) {
	var s *Speaker
	s.OutputTone(true)
	s.SideTone(true)

	s = NewSpeaker(SpeakerConfig{OutputTone: true, SideTone: true}, nil)
	s.OutputTone(true)
	s.SideTone(true)
}
