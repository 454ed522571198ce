package fatigue

import (
	"errors"
	"math"
	"testing"
)

// feedOpen advances the detector with open-eye frames at the given cadence,
// returning the last state.
func feedOpen(t *testing.T, d *Detector, start, step float64, n int) State {
	t.Helper()
	var state State
	var err error
	for i := 0; i < n; i++ {
		state, err = d.Update(0.9, start+float64(i)*step)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}
	return state
}

func TestDetector_AllOpenIsAlert(t *testing.T) {
	d := New(DefaultConfig())

	state := feedOpen(t, d, 0, 1.0/15, 100)

	if state.Perclos != 0 {
		t.Errorf("perclos = %f, want 0", state.Perclos)
	}
	if state.Level != LevelAlert {
		t.Errorf("level = %s, want %s", state.Level, LevelAlert)
	}
	if state.Recommendation != LevelAlert.Recommendation() {
		t.Errorf("recommendation = %q, want %q", state.Recommendation, LevelAlert.Recommendation())
	}
}

func TestDetector_AllClosedIsSevere(t *testing.T) {
	d := New(DefaultConfig())

	var state State
	var err error
	for i := 0; i < 100; i++ {
		state, err = d.Update(0.05, float64(i)/15)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	if state.Perclos != 1 {
		t.Errorf("perclos = %f, want 1", state.Perclos)
	}
	if state.Level != LevelSevereFatigue {
		t.Errorf("level = %s, want %s", state.Level, LevelSevereFatigue)
	}
}

func TestDetector_BlinkDuration(t *testing.T) {
	d := New(DefaultConfig())

	// Open, then a closure spanning exactly 250 ms
	feedOpen(t, d, 0, 0.05, 3)
	if _, err := d.Update(0.05, 10.0); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	state, err := d.Update(0.9, 10.25)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if state.BlinkRatePerMinute != 1 {
		t.Errorf("blink rate = %d, want 1", state.BlinkRatePerMinute)
	}
	if state.AvgBlinkDurationMS != 250 {
		t.Errorf("avg blink duration = %f, want 250", state.AvgBlinkDurationMS)
	}
	if state.MicrosleepCount != 0 {
		t.Errorf("microsleep count = %d, want 0", state.MicrosleepCount)
	}
}

func TestDetector_MicrosleepBoundary(t *testing.T) {
	t.Run("500ms closure is a microsleep", func(t *testing.T) {
		d := New(DefaultConfig())
		feedOpen(t, d, 0, 0.05, 3)
		d.Update(0.05, 10.0)
		state, err := d.Update(0.9, 10.5)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if state.MicrosleepCount != 1 {
			t.Errorf("microsleep count = %d, want 1", state.MicrosleepCount)
		}
	})

	t.Run("499ms closure is an ordinary blink", func(t *testing.T) {
		d := New(DefaultConfig())
		feedOpen(t, d, 0, 0.05, 3)
		d.Update(0.05, 10.0)
		state, err := d.Update(0.9, 10.499)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if state.MicrosleepCount != 0 {
			t.Errorf("microsleep count = %d, want 0", state.MicrosleepCount)
		}
		if state.BlinkRatePerMinute != 1 {
			t.Errorf("blink rate = %d, want 1", state.BlinkRatePerMinute)
		}
	})
}

func TestDetector_WindowNeverExceedsCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowDuration = 2
	cfg.AssumedFPS = 5
	d := New(cfg)

	if d.WindowCapacity() != 10 {
		t.Fatalf("capacity = %d, want 10", d.WindowCapacity())
	}

	// capacity + k updates leave exactly capacity samples
	var state State
	for i := 0; i < 15; i++ {
		var err error
		state, err = d.Update(0.9, float64(i)*0.2)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if state.DataPoints > 10 {
			t.Fatalf("window holds %d samples, capacity 10", state.DataPoints)
		}
	}

	if state.DataPoints != 10 {
		t.Errorf("data points = %d, want 10", state.DataPoints)
	}
	if state.WindowCoverage != 1 {
		t.Errorf("window coverage = %f, want 1", state.WindowCoverage)
	}
}

func TestDetector_EvictsSamplesOlderThanWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowDuration = 10
	cfg.AssumedFPS = 10
	d := New(cfg)

	// Sparse cadence: samples arrive every 4 seconds, far below the assumed
	// rate, so the count bound alone would cover 400 seconds.
	var state State
	for i := 0; i < 20; i++ {
		var err error
		state, err = d.Update(0.9, float64(i)*4)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	// Only samples within the last 10 seconds of t=76 survive: t=68, 72, 76.
	if state.DataPoints != 3 {
		t.Errorf("data points = %d, want 3", state.DataPoints)
	}
}

func TestDetector_BlinkRateExcludesOldEvents(t *testing.T) {
	d := New(DefaultConfig())

	// A blink ending at t=1
	d.Update(0.9, 0.5)
	d.Update(0.05, 0.8)
	state, err := d.Update(0.9, 1.0)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if state.BlinkRatePerMinute != 1 {
		t.Fatalf("blink rate = %d, want 1", state.BlinkRatePerMinute)
	}

	// At t=62 the blink is older than 60 seconds and no longer counted
	state, err = d.Update(0.9, 62.0)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if state.BlinkRatePerMinute != 0 {
		t.Errorf("blink rate = %d, want 0", state.BlinkRatePerMinute)
	}
	if state.AvgBlinkDurationMS != 0 {
		t.Errorf("avg blink duration = %f, want 0 after pruning", state.AvgBlinkDurationMS)
	}
}

func TestDetector_Calibration(t *testing.T) {
	t.Run("synthetic classifies 0.12 as closed", func(t *testing.T) {
		d := New(DefaultConfig())
		if err := d.SetCalibration(CalibrationSynthetic); err != nil {
			t.Fatalf("SetCalibration() error = %v", err)
		}
		state, err := d.Update(0.12, 0)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if state.Perclos != 1 {
			t.Errorf("perclos = %f, want 1 (frame closed)", state.Perclos)
		}
	})

	t.Run("real classifies 0.12 as open", func(t *testing.T) {
		d := New(DefaultConfig())
		if err := d.SetCalibration(CalibrationReal); err != nil {
			t.Fatalf("SetCalibration() error = %v", err)
		}
		state, err := d.Update(0.12, 0)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if state.Perclos != 0 {
			t.Errorf("perclos = %f, want 0 (frame open)", state.Perclos)
		}
	})

	t.Run("unknown mode rejected", func(t *testing.T) {
		d := New(DefaultConfig())
		if err := d.SetCalibration("cartoon"); err == nil {
			t.Error("expected error for unknown calibration mode")
		}
	})

	t.Run("does not reset history", func(t *testing.T) {
		d := New(DefaultConfig())
		feedOpen(t, d, 0, 0.1, 5)
		if err := d.SetCalibration(CalibrationReal); err != nil {
			t.Fatalf("SetCalibration() error = %v", err)
		}
		state, err := d.Update(0.9, 1.0)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if state.DataPoints != 6 {
			t.Errorf("data points = %d, want 6", state.DataPoints)
		}
	})
}

func TestDetector_RejectsInvalidSamples(t *testing.T) {
	d := New(DefaultConfig())
	d.Update(0.9, 1.0)

	cases := []struct {
		name      string
		openness  float64
		timestamp float64
	}{
		{"NaN openness", math.NaN(), 2.0},
		{"Inf openness", math.Inf(1), 2.0},
		{"NaN timestamp", 0.9, math.NaN()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := d.Update(tc.openness, tc.timestamp); !errors.Is(err, ErrInvalidSample) {
				t.Errorf("expected ErrInvalidSample, got %v", err)
			}
		})
	}

	// Rejected frames leave state untouched
	state, err := d.Update(0.9, 2.0)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if state.DataPoints != 2 {
		t.Errorf("data points = %d, want 2", state.DataPoints)
	}
}

func TestDetector_RejectsOutOfOrderTimestamps(t *testing.T) {
	d := New(DefaultConfig())
	d.Update(0.9, 2.0)

	if _, err := d.Update(0.05, 1.0); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}

	// Equal timestamps are allowed (monotonically non-decreasing)
	if _, err := d.Update(0.9, 2.0); err != nil {
		t.Errorf("equal timestamp rejected: %v", err)
	}

	// The rejected closed frame must not have started a closure
	state, err := d.Update(0.9, 3.0)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if state.BlinkRatePerMinute != 0 {
		t.Errorf("blink rate = %d, want 0", state.BlinkRatePerMinute)
	}
}

func TestDetector_LevelProgression(t *testing.T) {
	cfg := DefaultConfig()
	d := New(cfg)

	// A fully open minute keeps the operator alert
	state := feedOpen(t, d, 0, 1.0/15, 300)
	if state.Level != LevelAlert {
		t.Fatalf("level = %s, want %s", state.Level, LevelAlert)
	}

	// Grow the closed fraction; severity must rise monotonically through
	// mild fatigue into drowsy as PERCLOS passes 0.08 and 0.15.
	prevSeverity := state.Level.Severity()
	seen := map[Level]bool{state.Level: true}
	ts := 300 / 15.0
	for i := 0; i < 90; i++ {
		ts += 1.0 / 15
		var err error
		state, err = d.Update(0.05, ts)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if state.Level.Severity() < prevSeverity {
			t.Fatalf("severity dropped from %d to %d while closures accumulate", prevSeverity, state.Level.Severity())
		}
		prevSeverity = state.Level.Severity()
		seen[state.Level] = true
	}

	if !seen[LevelMildFatigue] {
		t.Error("expected to pass through mild fatigue")
	}
	if state.Level != LevelDrowsy {
		t.Errorf("final level = %s, want %s (closed fraction ~0.23 of 390 samples)", state.Level, LevelDrowsy)
	}
}

func TestDetector_Summary(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		d := New(DefaultConfig())
		s := d.Summary()
		if s.HasData {
			t.Error("expected HasData false before any update")
		}
	})

	t.Run("with blinks", func(t *testing.T) {
		d := New(DefaultConfig())
		d.Update(0.9, 0)
		d.Update(0.05, 1.0)
		d.Update(0.9, 1.25) // 250 ms blink
		d.Update(0.05, 2.0)
		d.Update(0.9, 2.75) // 750 ms microsleep

		s := d.Summary()
		if !s.HasData {
			t.Fatal("expected HasData true")
		}
		if s.TotalBlinks != 2 {
			t.Errorf("total blinks = %d, want 2", s.TotalBlinks)
		}
		if s.TotalMicrosleeps != 1 {
			t.Errorf("total microsleeps = %d, want 1", s.TotalMicrosleeps)
		}
		if s.MinBlinkDurationMS != 250 {
			t.Errorf("min blink duration = %f, want 250", s.MinBlinkDurationMS)
		}
		if s.MaxBlinkDurationMS != 750 {
			t.Errorf("max blink duration = %f, want 750", s.MaxBlinkDurationMS)
		}
		if s.AvgBlinkDurationMS != 500 {
			t.Errorf("avg blink duration = %f, want 500", s.AvgBlinkDurationMS)
		}
		if s.SessionDurationSeconds != 60 {
			t.Errorf("session duration = %f, want 60", s.SessionDurationSeconds)
		}
	})

	t.Run("session totals survive pruning", func(t *testing.T) {
		d := New(DefaultConfig())
		d.Update(0.9, 0.5)
		d.Update(0.05, 0.8)
		d.Update(0.9, 1.0) // blink at t=1
		d.Update(0.9, 120) // blink list pruned

		s := d.Summary()
		if s.TotalBlinks != 0 {
			t.Errorf("windowed blinks = %d, want 0 after pruning", s.TotalBlinks)
		}
		if s.Totals.Blinks != 1 {
			t.Errorf("session total blinks = %d, want 1", s.Totals.Blinks)
		}
		if s.Totals.Frames != 4 {
			t.Errorf("session total frames = %d, want 4", s.Totals.Frames)
		}
		if s.Totals.ClosedFrames != 1 {
			t.Errorf("session closed frames = %d, want 1", s.Totals.ClosedFrames)
		}
	})
}

func TestLevel_Severity(t *testing.T) {
	levels := []Level{LevelAlert, LevelMildFatigue, LevelDrowsy, LevelSevereFatigue}
	for i := 1; i < len(levels); i++ {
		if levels[i].Severity() <= levels[i-1].Severity() {
			t.Errorf("%s should rank above %s", levels[i], levels[i-1])
		}
	}
}
