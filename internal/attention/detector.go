// Package attention tracks gaze stability over a short sliding window and
// aggregates contiguous high-stability intervals into focus sessions.
package attention

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/vigil/internal/window"
)

// Sentinel errors returned by Update. A rejected sample leaves detector state
// untouched, so later frames are processed normally.
var (
	// ErrInvalidSample is returned for NaN or infinite input values.
	ErrInvalidSample = errors.New("invalid sample")
	// ErrOutOfOrder is returned when a timestamp precedes the previous one.
	ErrOutOfOrder = errors.New("out of order timestamp")
)

// Focus represents the classified attention state.
type Focus string

const (
	// FocusUnknown is reported while fewer than three gaze samples exist.
	FocusUnknown Focus = "unknown"
	// FocusFocused indicates steady fixation.
	FocusFocused Focus = "focused"
	// FocusModerate indicates partially steady gaze.
	FocusModerate Focus = "moderate_focus"
	// FocusDistracted indicates unstable, wandering gaze.
	FocusDistracted Focus = "distracted"
)

// minObservations is the number of gaze samples required before stability can
// be computed.
const minObservations = 3

// moderateFocusThreshold is the stability boundary between moderate focus and
// distraction.
const moderateFocusThreshold = 0.5

// Config holds construction parameters for the attention detector.
type Config struct {
	// StabilityThreshold is the per-frame gaze displacement considered the
	// edge of stable fixation.
	StabilityThreshold float64
	// WindowSize is the gaze history capacity in samples.
	WindowSize int
	// FocusThreshold is the stability boundary for classifying FOCUSED.
	FocusThreshold float64
	// SessionThreshold is the stability boundary for opening and closing
	// focus sessions. It is intentionally looser than FocusThreshold so brief
	// stability dips do not flap session bookkeeping.
	SessionThreshold float64
	// SessionRetention is how long closed focus sessions are retained, in
	// seconds relative to the latest session end.
	SessionRetention float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		StabilityThreshold: 0.1,
		WindowSize:         30,
		FocusThreshold:     0.8,
		SessionThreshold:   0.7,
		SessionRetention:   300,
	}
}

// gazeObservation is one time-stamped gaze position.
type gazeObservation struct {
	timestamp float64
	x, y      float64
}

// FocusSession is a maximal contiguous interval of stable gaze.
type FocusSession struct {
	Start    float64 `json:"start_timestamp"`
	End      float64 `json:"end_timestamp"`
	Duration float64 `json:"duration"`
}

// State is the attention snapshot recomputed on every update.
type State struct {
	GazeStability    float64 `json:"gaze_stability"`
	AttentionState   Focus   `json:"attention_state"`
	DistractionScore float64 `json:"distraction_score"`
	AvgGazeMovement  float64 `json:"avg_gaze_movement"`
}

// Totals are monotone whole-session counters, independent of session pruning.
type Totals struct {
	Samples        int     `json:"samples"`
	FocusSessions  int     `json:"focus_sessions"`
	FocusSeconds   float64 `json:"focus_seconds"`
	FirstTimestamp float64 `json:"first_timestamp"`
	LastTimestamp  float64 `json:"last_timestamp"`
}

// Summary aggregates the retained focus sessions, plus session totals.
type Summary struct {
	HasData            bool    `json:"has_data"`
	FocusSessionCount  int     `json:"focus_session_count"`
	AvgSessionDuration float64 `json:"avg_session_duration"`
	MaxSessionDuration float64 `json:"max_session_duration"`
	TotalFocusSeconds  float64 `json:"total_focus_seconds"`
	Totals             Totals  `json:"totals"`
}

// Detector turns a per-frame gaze position into a stability score, an
// attention classification, and focus-session bookkeeping. It is not safe for
// concurrent use; one producer is expected to drive Update sequentially.
type Detector struct {
	cfg Config

	gaze     *window.Buffer[gazeObservation]
	sessions []FocusSession

	sessionOpen  bool
	sessionStart float64

	lastTimestamp float64
	hasSamples    bool

	totals Totals
}

// New creates a Detector. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.StabilityThreshold <= 0 {
		cfg.StabilityThreshold = def.StabilityThreshold
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.FocusThreshold <= 0 {
		cfg.FocusThreshold = def.FocusThreshold
	}
	if cfg.SessionThreshold <= 0 {
		cfg.SessionThreshold = def.SessionThreshold
	}
	if cfg.SessionRetention <= 0 {
		cfg.SessionRetention = def.SessionRetention
	}

	return &Detector{
		cfg:  cfg,
		gaze: window.New[gazeObservation](cfg.WindowSize),
	}
}

// Update processes one gaze sample and returns the fresh attention snapshot.
// Validation mirrors the fatigue detector: NaN or infinite inputs and
// backwards timestamps are rejected without mutating state.
func (d *Detector) Update(x, y, timestamp float64) (State, error) {
	if !isFinite(x) || !isFinite(y) || !isFinite(timestamp) {
		return State{}, fmt.Errorf("%w: gaze=(%v, %v) timestamp=%v", ErrInvalidSample, x, y, timestamp)
	}
	if d.hasSamples && timestamp < d.lastTimestamp {
		return State{}, fmt.Errorf("%w: %v < %v", ErrOutOfOrder, timestamp, d.lastTimestamp)
	}

	d.gaze.Append(gazeObservation{timestamp: timestamp, x: x, y: y})

	if !d.hasSamples {
		d.totals.FirstTimestamp = timestamp
		d.hasSamples = true
	}
	d.lastTimestamp = timestamp
	d.totals.LastTimestamp = timestamp
	d.totals.Samples++

	// Too little history to judge stability either way.
	if d.gaze.Len() < minObservations {
		return State{
			GazeStability:  0.5,
			AttentionState: FocusUnknown,
		}, nil
	}

	// Step 1: mean magnitude of consecutive gaze displacements.
	items := d.gaze.Items()
	var totalMovement float64
	var rapidMovements int
	steps := len(items) - 1
	for i := 1; i < len(items); i++ {
		dist := displacement(items[i-1], items[i])
		totalMovement += dist
		if dist >= 2*d.cfg.StabilityThreshold {
			rapidMovements++
		}
	}
	avgMovement := totalMovement / float64(steps)

	// Step 2: invert and normalize into a stability score.
	stability := 1 - math.Min(avgMovement/d.cfg.StabilityThreshold, 1)
	stability = math.Max(0, math.Min(1, stability))

	// Step 3: classification.
	var focus Focus
	switch {
	case stability > d.cfg.FocusThreshold:
		focus = FocusFocused
	case stability > moderateFocusThreshold:
		focus = FocusModerate
	default:
		focus = FocusDistracted
	}

	// Step 4: fraction of rapid movements.
	distraction := float64(rapidMovements) / float64(steps)

	// Step 5: focus-session hysteresis.
	d.trackSession(stability, timestamp)

	return State{
		GazeStability:    stability,
		AttentionState:   focus,
		DistractionScore: distraction,
		AvgGazeMovement:  avgMovement,
	}, nil
}

// trackSession opens a focus session when stability rises above the session
// threshold and closes it when stability falls back to or below it.
func (d *Detector) trackSession(stability, timestamp float64) {
	if stability > d.cfg.SessionThreshold {
		if !d.sessionOpen {
			d.sessionOpen = true
			d.sessionStart = timestamp
		}
		return
	}

	if !d.sessionOpen {
		return
	}

	session := FocusSession{
		Start:    d.sessionStart,
		End:      timestamp,
		Duration: timestamp - d.sessionStart,
	}
	d.sessions = append(d.sessions, session)
	d.sessionOpen = false

	d.totals.FocusSessions++
	d.totals.FocusSeconds += session.Duration

	// Prune sessions outside the retention window.
	cutoff := timestamp - d.cfg.SessionRetention
	kept := d.sessions[:0]
	for _, s := range d.sessions {
		if s.End > cutoff {
			kept = append(kept, s)
		}
	}
	d.sessions = kept
}

// SessionOpen reports whether a focus session is currently open.
func (d *Detector) SessionOpen() bool {
	return d.sessionOpen
}

// Summary aggregates the retained (recent) focus sessions. Totals carries the
// whole-session counters, which pruning never reduces.
func (d *Detector) Summary() Summary {
	if !d.hasSamples {
		return Summary{}
	}

	s := Summary{
		HasData:           true,
		FocusSessionCount: len(d.sessions),
		Totals:            d.totals,
	}

	if len(d.sessions) == 0 {
		return s
	}

	var total, max float64
	for _, session := range d.sessions {
		total += session.Duration
		if session.Duration > max {
			max = session.Duration
		}
	}
	s.TotalFocusSeconds = total
	s.MaxSessionDuration = max
	s.AvgSessionDuration = total / float64(len(d.sessions))

	return s
}

// displacement is the Euclidean distance between two gaze observations.
func displacement(a, b gazeObservation) float64 {
	dx := b.x - a.x
	dy := b.y - a.y
	return math.Sqrt(dx*dx + dy*dy)
}

// isFinite reports whether v is neither NaN nor infinite.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
