// Package fatigue classifies per-frame eye-openness samples into blink and
// microsleep events and aggregates them into the PERCLOS drowsiness metric.
package fatigue

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/vigil/internal/window"
)

// Detection constants.
const (
	// MicrosleepDurationMS is the minimum eye-closure duration classified as a
	// microsleep rather than an ordinary blink.
	MicrosleepDurationMS = 500
	// BlinkRetentionSeconds is how long blink events are retained, relative to
	// the latest observed timestamp.
	BlinkRetentionSeconds = 60
	// alertPerclosThreshold is the PERCLOS boundary below which the operator
	// is considered fully alert.
	alertPerclosThreshold = 0.08
	// drowsyPerclosThreshold is the PERCLOS boundary between drowsy and
	// severe fatigue.
	drowsyPerclosThreshold = 0.25
)

// Sentinel errors returned by Update. A rejected sample leaves detector state
// untouched, so later frames are processed normally.
var (
	// ErrInvalidSample is returned for NaN or infinite input values.
	ErrInvalidSample = errors.New("invalid sample")
	// ErrOutOfOrder is returned when a timestamp precedes the previous one.
	ErrOutOfOrder = errors.New("out of order timestamp")
)

// Config holds construction parameters for the fatigue detector.
type Config struct {
	// PerclosThreshold is the PERCLOS boundary between mild fatigue and drowsy.
	PerclosThreshold float64
	// EyeClosedThreshold is the eye-openness ratio below which a frame counts
	// as closed. Overridden by SetCalibration.
	EyeClosedThreshold float64
	// WindowDuration is the PERCLOS window span in seconds.
	WindowDuration float64
	// AssumedFPS is the expected input frame rate, used to size the window.
	AssumedFPS float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		PerclosThreshold:   0.15,
		EyeClosedThreshold: 0.15,
		WindowDuration:     60,
		AssumedFPS:         15,
	}
}

// observation is one classified frame in the PERCLOS window.
type observation struct {
	timestamp float64
	closed    bool
}

// BlinkEvent records a completed eye closure.
type BlinkEvent struct {
	EndTimestamp float64 `json:"end_timestamp"`
	DurationMS   float64 `json:"duration_ms"`
}

// IsMicrosleep reports whether the closure lasted long enough to count as a
// microsleep.
func (b BlinkEvent) IsMicrosleep() bool {
	return b.DurationMS >= MicrosleepDurationMS
}

// State is the fatigue snapshot recomputed on every update. It is a pure
// function of the current window and blink list.
type State struct {
	Perclos            float64 `json:"perclos"`
	PerclosPercentage  float64 `json:"perclos_percentage"`
	Level              Level   `json:"fatigue_level"`
	Recommendation     string  `json:"recommendation"`
	BlinkRatePerMinute int     `json:"blink_rate_per_minute"`
	MicrosleepCount    int     `json:"microsleep_count"`
	AvgBlinkDurationMS float64 `json:"avg_blink_duration_ms"`
	DataPoints         int     `json:"data_points"`
	WindowCoverage     float64 `json:"window_coverage"`
}

// Totals are monotone whole-session counters, independent of the rolling
// window, so end-of-session reports reflect the full session rather than the
// last minute.
type Totals struct {
	Frames         int     `json:"frames"`
	ClosedFrames   int     `json:"closed_frames"`
	Blinks         int     `json:"blinks"`
	Microsleeps    int     `json:"microsleeps"`
	FirstTimestamp float64 `json:"first_timestamp"`
	LastTimestamp  float64 `json:"last_timestamp"`
}

// Summary aggregates the retained window and blink list, plus session totals.
type Summary struct {
	HasData                bool    `json:"has_data"`
	OverallPerclos         float64 `json:"overall_perclos"`
	TotalBlinks            int     `json:"total_blinks"`
	TotalMicrosleeps       int     `json:"total_microsleeps"`
	SessionDurationSeconds float64 `json:"session_duration_seconds"`
	MinBlinkDurationMS     float64 `json:"min_blink_duration_ms"`
	MaxBlinkDurationMS     float64 `json:"max_blink_duration_ms"`
	AvgBlinkDurationMS     float64 `json:"avg_blink_duration_ms"`
	Totals                 Totals  `json:"totals"`
}

// eyeState tracks the blink state machine.
type eyeState int

const (
	eyeUnknown eyeState = iota
	eyeOpen
	eyeClosed
)

// Detector turns a per-frame eye-openness signal into blink events and a
// PERCLOS-based fatigue level. It is not safe for concurrent use; one
// producer is expected to drive Update sequentially per frame.
type Detector struct {
	cfg      Config
	capacity int

	samples *window.Buffer[observation]
	blinks  []BlinkEvent

	state         eyeState
	closureStart  float64
	closureActive bool

	lastTimestamp float64
	hasSamples    bool

	totals Totals
}

// New creates a Detector. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.PerclosThreshold <= 0 {
		cfg.PerclosThreshold = def.PerclosThreshold
	}
	if cfg.EyeClosedThreshold <= 0 {
		cfg.EyeClosedThreshold = def.EyeClosedThreshold
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = def.WindowDuration
	}
	if cfg.AssumedFPS <= 0 {
		cfg.AssumedFPS = def.AssumedFPS
	}

	capacity := int(cfg.WindowDuration * cfg.AssumedFPS)
	if capacity < 1 {
		capacity = 1
	}

	return &Detector{
		cfg:      cfg,
		capacity: capacity,
		samples:  window.New[observation](capacity),
	}
}

// SetCalibration applies a named threshold profile. It only adjusts the
// closure threshold; accumulated history is never reset.
func (d *Detector) SetCalibration(mode Calibration) error {
	threshold, ok := mode.Threshold()
	if !ok {
		return fmt.Errorf("unknown calibration mode %q", mode)
	}
	d.cfg.EyeClosedThreshold = threshold
	return nil
}

// EyeClosedThreshold returns the closure threshold currently in effect.
func (d *Detector) EyeClosedThreshold() float64 {
	return d.cfg.EyeClosedThreshold
}

// WindowCapacity returns the maximum number of samples the PERCLOS window holds.
func (d *Detector) WindowCapacity() int {
	return d.capacity
}

// Update processes one frame and returns the fresh fatigue snapshot.
// NaN or infinite inputs are rejected with ErrInvalidSample and timestamps
// earlier than the previous frame with ErrOutOfOrder; rejected frames do not
// mutate detector state.
func (d *Detector) Update(eyeOpenness, timestamp float64) (State, error) {
	if !isFinite(eyeOpenness) || !isFinite(timestamp) {
		return State{}, fmt.Errorf("%w: openness=%v timestamp=%v", ErrInvalidSample, eyeOpenness, timestamp)
	}
	if d.hasSamples && timestamp < d.lastTimestamp {
		return State{}, fmt.Errorf("%w: %v < %v", ErrOutOfOrder, timestamp, d.lastTimestamp)
	}

	// Step 1: classify the frame and append it to the bounded window.
	// Out-of-range openness values pass through the comparison unmodified.
	closed := eyeOpenness < d.cfg.EyeClosedThreshold
	d.samples.Append(observation{timestamp: timestamp, closed: closed})

	// Evict samples older than the window span. The count bound above keeps
	// memory fixed; this keeps the covered span honest when the input cadence
	// differs from the assumed frame rate.
	for {
		oldest, ok := d.samples.Oldest()
		if !ok || oldest.timestamp > timestamp-d.cfg.WindowDuration {
			break
		}
		d.samples.PopOldest()
	}

	// Step 2: blink state machine.
	if closed {
		if d.state == eyeOpen {
			d.closureStart = timestamp
			d.closureActive = true
		}
		d.state = eyeClosed
	} else {
		if d.state == eyeClosed && d.closureActive {
			d.recordBlink(timestamp)
		}
		d.state = eyeOpen
	}
	d.pruneBlinks(timestamp)

	if !d.hasSamples {
		d.totals.FirstTimestamp = timestamp
		d.hasSamples = true
	}
	d.lastTimestamp = timestamp
	d.totals.LastTimestamp = timestamp
	d.totals.Frames++
	if closed {
		d.totals.ClosedFrames++
	}

	return d.snapshot(timestamp), nil
}

// recordBlink closes out the active closure as a blink event.
func (d *Detector) recordBlink(timestamp float64) {
	durationMS := (timestamp - d.closureStart) * 1000
	event := BlinkEvent{EndTimestamp: timestamp, DurationMS: durationMS}
	d.blinks = append(d.blinks, event)
	d.closureActive = false

	d.totals.Blinks++
	if event.IsMicrosleep() {
		d.totals.Microsleeps++
	}
}

// pruneBlinks discards blink events older than the retention window relative
// to the latest timestamp.
func (d *Detector) pruneBlinks(latest float64) {
	cutoff := latest - BlinkRetentionSeconds
	kept := d.blinks[:0]
	for _, b := range d.blinks {
		if b.EndTimestamp > cutoff {
			kept = append(kept, b)
		}
	}
	d.blinks = kept
}

// snapshot recomputes the fatigue state from the current window and blink list.
func (d *Detector) snapshot(latest float64) State {
	var closedCount int
	items := d.samples.Items()
	for _, o := range items {
		if o.closed {
			closedCount++
		}
	}

	perclos := 0.0
	if len(items) > 0 {
		perclos = float64(closedCount) / float64(len(items))
	}

	level := classify(perclos, d.cfg.PerclosThreshold)

	var blinkRate, microsleeps int
	var totalDuration float64
	cutoff := latest - BlinkRetentionSeconds
	for _, b := range d.blinks {
		if b.EndTimestamp > cutoff {
			blinkRate++
		}
		if b.IsMicrosleep() {
			microsleeps++
		}
		totalDuration += b.DurationMS
	}

	avgDuration := 0.0
	if len(d.blinks) > 0 {
		avgDuration = totalDuration / float64(len(d.blinks))
	}

	return State{
		Perclos:            perclos,
		PerclosPercentage:  perclos * 100,
		Level:              level,
		Recommendation:     level.Recommendation(),
		BlinkRatePerMinute: blinkRate,
		MicrosleepCount:    microsleeps,
		AvgBlinkDurationMS: avgDuration,
		DataPoints:         len(items),
		WindowCoverage:     float64(len(items)) / float64(d.capacity),
	}
}

// classify maps a PERCLOS value to a fatigue level.
func classify(perclos, perclosThreshold float64) Level {
	switch {
	case perclos < alertPerclosThreshold:
		return LevelAlert
	case perclos < perclosThreshold:
		return LevelMildFatigue
	case perclos < drowsyPerclosThreshold:
		return LevelDrowsy
	default:
		return LevelSevereFatigue
	}
}

// Summary aggregates the currently retained window and blink list. The
// windowed figures cover at most the window span; Totals carries the
// whole-session counters.
func (d *Detector) Summary() Summary {
	if !d.hasSamples {
		return Summary{}
	}

	s := Summary{
		HasData:                true,
		TotalBlinks:            len(d.blinks),
		SessionDurationSeconds: float64(d.capacity) / d.cfg.AssumedFPS,
		Totals:                 d.totals,
	}

	var closedCount int
	items := d.samples.Items()
	for _, o := range items {
		if o.closed {
			closedCount++
		}
	}
	if len(items) > 0 {
		s.OverallPerclos = float64(closedCount) / float64(len(items))
	}

	if len(d.blinks) > 0 {
		minDur := d.blinks[0].DurationMS
		maxDur := d.blinks[0].DurationMS
		var total float64
		for _, b := range d.blinks {
			if b.DurationMS < minDur {
				minDur = b.DurationMS
			}
			if b.DurationMS > maxDur {
				maxDur = b.DurationMS
			}
			if b.IsMicrosleep() {
				s.TotalMicrosleeps++
			}
			total += b.DurationMS
		}
		s.MinBlinkDurationMS = minDur
		s.MaxBlinkDurationMS = maxDur
		s.AvgBlinkDurationMS = total / float64(len(d.blinks))
	}

	return s
}

// isFinite reports whether v is neither NaN nor infinite.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
