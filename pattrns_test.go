package pattrns

import "testing"

func stdTimeBase() TimeBase {
	return TimeBase{BeatsPerMinute: 120, BeatsPerBar: 4, SamplesPerSec: 44100}
}

func TestSamplesPerWholeNoteMatchesScenarioBase(t *testing.T) {
	tb := stdTimeBase()
	if got := tb.SamplesPerWholeNote(); got != 88200 {
		t.Fatalf("SamplesPerWholeNote() = %d, want 88200", got)
	}
}

// S1: cycle("c4 d4 e4 f4") -> 4 events at samples 0,22050,44100,66150 with
// MIDI keys 60,62,64,65 on channel 1.
func TestScenarioEqualSequence(t *testing.T) {
	p, err := FromSource("c4 d4 e4 f4", stdTimeBase(), nil)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	var got []Event
	err = p.RunUntil(88200, func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	wantTimes := []uint64{0, 22050, 44100, 66150}
	wantKeys := []int{60, 62, 64, 65}
	if len(got) != 4 {
		t.Fatalf("expected 4 events, got %d: %+v", len(got), got)
	}
	for i, ev := range got {
		if ev.TimeSamples != wantTimes[i] {
			t.Errorf("event %d time = %d, want %d", i, ev.TimeSamples, wantTimes[i])
		}
		if ev.Note.Key != wantKeys[i] {
			t.Errorf("event %d key = %d, want %d", i, ev.Note.Key, wantKeys[i])
		}
		if ev.Channel != 1 {
			t.Errorf("event %d channel = %d, want 1", i, ev.Channel)
		}
	}
}

// S2: cycle("[c4, e4, g4]") -> 3 events, all at sample 0, keys 60,64,67, on
// channels 1,2,3.
func TestScenarioStack(t *testing.T) {
	p, err := FromSource("[c4, e4, g4]", stdTimeBase(), nil)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	var got []Event
	err = p.RunUntil(88200, func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	wantKeys := map[uint32]int{1: 60, 2: 64, 3: 67}
	for _, ev := range got {
		if ev.TimeSamples != 0 {
			t.Errorf("channel %d time = %d, want 0", ev.Channel, ev.TimeSamples)
		}
		if ev.Note.Key != wantKeys[ev.Channel] {
			t.Errorf("channel %d key = %d, want %d", ev.Channel, ev.Note.Key, wantKeys[ev.Channel])
		}
	}
}

// S4: cycle("<c4 e4 g4>") over three consecutive runs -> one event per run,
// samples 0, 88200, 176400, keys 60, 64, 67.
func TestScenarioAlternationAcrossCycles(t *testing.T) {
	p, err := FromSource("<c4 e4 g4>", stdTimeBase(), nil)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	var got []Event
	err = p.RunUntil(3*88200, func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	wantTimes := []uint64{0, 88200, 176400}
	wantKeys := []int{60, 64, 67}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, ev := range got {
		if ev.TimeSamples != wantTimes[i] || ev.Note.Key != wantKeys[i] {
			t.Errorf("event %d = {%d,%d}, want {%d,%d}", i, ev.TimeSamples, ev.Note.Key, wantTimes[i], wantKeys[i])
		}
	}
}

// S5: cycle("c4?0") always onsets; cycle("c4?1") is always silent.
func TestScenarioDegradeExtremes(t *testing.T) {
	never, err := FromSource("c4?0", stdTimeBase(), nil)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	var gotNever []Event
	if err := never.RunUntil(88200, func(ev Event) error { gotNever = append(gotNever, ev); return nil }); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if len(gotNever) != 1 || gotNever[0].TimeSamples != 0 {
		t.Fatalf("c4?0: expected one onset at 0, got %+v", gotNever)
	}

	always, err := FromSource("c4?1", stdTimeBase(), nil)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	var gotAlways []Event
	if err := always.RunUntil(88200, func(ev Event) error { gotAlways = append(gotAlways, ev); return nil }); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if len(gotAlways) != 0 {
		t.Fatalf("c4?1: expected silence, got %+v", gotAlways)
	}
}

// S6: cycle("c4:v0.5:p-0.5") -> one event with volume 0.5, panning -0.5.
func TestScenarioTargetAttributes(t *testing.T) {
	p, err := FromSource("c4:v0.5:p-0.5", stdTimeBase(), nil)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	var got []Event
	if err := p.RunUntil(88200, func(ev Event) error { got = append(got, ev); return nil }); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	ev := got[0]
	if ev.Note.Volume == nil || *ev.Note.Volume != 0.5 {
		t.Fatalf("volume = %v, want 0.5", ev.Note.Volume)
	}
	if ev.Note.Panning == nil || *ev.Note.Panning != -0.5 {
		t.Fatalf("panning = %v, want -0.5", ev.Note.Panning)
	}
}

// Property 7: cloning a pattern and setting a parameter on the clone must
// not affect the original (regression for the 0.9.2 shared-storage bug).
func TestCloneInstanceParameterIndependence(t *testing.T) {
	params, err := NewParameterSet(Parameter{ID: "gain", Type: ParamFloat, Min: 0, Max: 1})
	if err != nil {
		t.Fatalf("NewParameterSet: %v", err)
	}
	p, err := FromSource("bd sn", stdTimeBase(), nil)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	p.params = params
	if err := p.SetParameter("gain", 0.25); err != nil {
		t.Fatalf("SetParameter: %v", err)
	}

	clone := p.CloneInstance(stdTimeBase())
	if err := clone.SetParameter("gain", 0.9); err != nil {
		t.Fatalf("SetParameter on clone: %v", err)
	}

	orig, _ := p.Parameters().Get("gain")
	cloned, _ := clone.Parameters().Get("gain")
	if orig.Value() != 0.25 {
		t.Fatalf("original gain mutated to %v after cloning", orig.Value())
	}
	if cloned.Value() != 0.9 {
		t.Fatalf("clone gain = %v, want 0.9", cloned.Value())
	}
}

func TestSetParameterClampsOutOfRange(t *testing.T) {
	params, err := NewParameterSet(Parameter{ID: "gain", Type: ParamFloat, Min: 0, Max: 1})
	if err != nil {
		t.Fatalf("NewParameterSet: %v", err)
	}
	if err := params.Set("gain", 5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ := params.Get("gain")
	if got.Value() != 1 {
		t.Fatalf("gain = %v, want clamped to 1", got.Value())
	}
}

func TestNewParameterSetRejectsDuplicateIDs(t *testing.T) {
	_, err := NewParameterSet(Parameter{ID: "a"}, Parameter{ID: "a"})
	if err == nil {
		t.Fatal("expected ConfigError for duplicate parameter id")
	}
}
