// Package monitor orchestrates the fatigue and attention detectors over one
// monitored session.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/vigil/internal/alert"
	"github.com/ayusman/vigil/internal/attention"
	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/source"
	"github.com/ayusman/vigil/internal/store"
)

// Config holds configuration options for the monitor.
type Config struct {
	Fatigue     fatigue.Config
	Attention   attention.Config
	Calibration fatigue.Calibration
	Store       *store.Store
	Hooks       *alert.Runner
	Logger      *zap.Logger
}

// Snapshot pairs the latest fatigue and attention states for one frame.
type Snapshot struct {
	SessionID string          `json:"session_id"`
	Timestamp float64         `json:"timestamp"`
	Fatigue   fatigue.State   `json:"fatigue"`
	Attention attention.State `json:"attention"`
}

// Monitor drives both detectors once per incoming frame, tracks level
// transitions, fires alert hooks on escalations, and assembles the
// end-of-session report.
type Monitor struct {
	mu sync.RWMutex

	id        string
	startedAt time.Time

	fatigue   *fatigue.Detector
	attention *attention.Detector

	calibration fatigue.Calibration
	store       *store.Store
	hooks       *alert.Runner
	logger      *zap.Logger

	last            Snapshot
	hasFrames       bool
	dropped         int
	peakLevel       fatigue.Level
	lastLevel       fatigue.Level
	lastFocus       attention.Focus
	lastMicrosleeps int
}

// New creates a Monitor for a fresh session. An empty Calibration leaves the
// configured eye-closed threshold in effect.
func New(cfg Config) (*Monitor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Monitor{
		id:          uuid.NewString(),
		startedAt:   time.Now(),
		fatigue:     fatigue.New(cfg.Fatigue),
		attention:   attention.New(cfg.Attention),
		calibration: cfg.Calibration,
		store:       cfg.Store,
		hooks:       cfg.Hooks,
		logger:      logger,
		peakLevel:   fatigue.LevelAlert,
		lastLevel:   fatigue.LevelAlert,
		lastFocus:   attention.FocusUnknown,
	}

	if cfg.Calibration != "" {
		if err := m.fatigue.SetCalibration(cfg.Calibration); err != nil {
			return nil, err
		}
	}

	logger.Info("session started",
		zap.String("session_id", m.id),
		zap.String("calibration", string(m.calibration)))

	return m, nil
}

// SessionID returns the unique ID of the monitored session.
func (m *Monitor) SessionID() string {
	return m.id
}

// Calibration returns the active calibration mode.
func (m *Monitor) Calibration() fatigue.Calibration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calibration
}

// SetCalibration switches the eye-closure threshold profile mid-session.
// Accumulated history is kept.
func (m *Monitor) SetCalibration(mode fatigue.Calibration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fatigue.SetCalibration(mode); err != nil {
		return err
	}
	m.calibration = mode
	m.logger.Info("calibration changed",
		zap.String("session_id", m.id),
		zap.String("mode", string(mode)))
	return nil
}

// Process feeds one frame to both detectors and returns the paired snapshot.
// A frame rejected by either detector is counted and skipped; it never
// prevents later frames from being processed.
func (m *Monitor) Process(frame source.Frame) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fatigueState, err := m.fatigue.Update(frame.EyeOpenness, frame.Timestamp)
	if err != nil {
		m.dropped++
		return Snapshot{}, fmt.Errorf("fatigue: %w", err)
	}

	attentionState, err := m.attention.Update(frame.Gaze.X, frame.Gaze.Y, frame.Timestamp)
	if err != nil {
		m.dropped++
		return Snapshot{}, fmt.Errorf("attention: %w", err)
	}

	m.observeTransitions(frame.Timestamp, fatigueState, attentionState)

	m.last = Snapshot{
		SessionID: m.id,
		Timestamp: frame.Timestamp,
		Fatigue:   fatigueState,
		Attention: attentionState,
	}
	m.hasFrames = true

	return m.last, nil
}

// observeTransitions logs state changes and fires alert hooks on escalations.
// Called with the mutex held.
func (m *Monitor) observeTransitions(timestamp float64, fs fatigue.State, as attention.State) {
	if fs.Level != m.lastLevel {
		m.logger.Info("fatigue level changed",
			zap.String("session_id", m.id),
			zap.String("from", string(m.lastLevel)),
			zap.String("to", string(fs.Level)),
			zap.Float64("perclos", fs.Perclos))

		escalated := fs.Level.Severity() > m.lastLevel.Severity()
		if escalated && fs.Level.Severity() >= fatigue.LevelDrowsy.Severity() {
			m.fire(alert.Event{
				SessionID: m.id,
				Timestamp: timestamp,
				Kind:      alert.KindFatigueLevel,
				Level:     string(fs.Level),
				Detail:    fs.Recommendation,
			})
		}
	}
	if fs.Level.Severity() > m.peakLevel.Severity() {
		m.peakLevel = fs.Level
	}
	m.lastLevel = fs.Level

	microsleeps := m.fatigue.Summary().Totals.Microsleeps
	if microsleeps > m.lastMicrosleeps {
		m.logger.Warn("microsleep detected",
			zap.String("session_id", m.id),
			zap.Float64("timestamp", timestamp))
		m.fire(alert.Event{
			SessionID: m.id,
			Timestamp: timestamp,
			Kind:      alert.KindMicrosleep,
			Level:     string(fs.Level),
		})
	}
	m.lastMicrosleeps = microsleeps

	if as.AttentionState != m.lastFocus {
		m.logger.Info("attention state changed",
			zap.String("session_id", m.id),
			zap.String("from", string(m.lastFocus)),
			zap.String("to", string(as.AttentionState)),
			zap.Float64("stability", as.GazeStability))

		if as.AttentionState == attention.FocusDistracted {
			m.fire(alert.Event{
				SessionID: m.id,
				Timestamp: timestamp,
				Kind:      alert.KindDistraction,
				Detail:    fmt.Sprintf("gaze stability %.2f", as.GazeStability),
			})
		}
	}
	m.lastFocus = as.AttentionState
}

// fire dispatches an alert event without blocking the frame path.
func (m *Monitor) fire(ev alert.Event) {
	if m.hooks == nil {
		return
	}
	go m.hooks.Fire(ev)
}

// Snapshot returns the most recent paired snapshot.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasFrames {
		return Snapshot{SessionID: m.id}
	}
	return m.last
}

// Dropped returns the number of frames rejected by validation.
func (m *Monitor) Dropped() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dropped
}

// Summaries returns the current fatigue and attention summaries.
func (m *Monitor) Summaries() (fatigue.Summary, attention.Summary) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fatigue.Summary(), m.attention.Summary()
}

// Run drains the source, processing every frame until it is exhausted or the
// context is cancelled. Rejected frames are logged and skipped.
func (m *Monitor) Run(ctx context.Context, src source.Source) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if _, err := m.Process(frame); err != nil {
			m.logger.Warn("frame rejected",
				zap.Float64("timestamp", frame.Timestamp),
				zap.Error(err))
		}
	}
}

// Finish assembles the end-of-session report and, when a store is configured,
// persists it.
func (m *Monitor) Finish() (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fatigueSummary := m.fatigue.Summary()
	attentionSummary := m.attention.Summary()

	calibration := m.calibration
	if calibration == "" {
		calibration = fatigue.CalibrationSynthetic
	}

	totals := fatigueSummary.Totals
	overallPerclos := 0.0
	if totals.Frames > 0 {
		overallPerclos = float64(totals.ClosedFrames) / float64(totals.Frames)
	}

	sess := &store.Session{
		ID:                 m.id,
		StartedAt:          m.startedAt,
		EndedAt:            time.Now(),
		Calibration:        string(calibration),
		Frames:             totals.Frames,
		ClosedFrames:       totals.ClosedFrames,
		OverallPerclos:     overallPerclos,
		PeakFatigueLevel:   string(m.peakLevel),
		TotalBlinks:        totals.Blinks,
		TotalMicrosleeps:   totals.Microsleeps,
		AvgBlinkDurationMS: fatigueSummary.AvgBlinkDurationMS,
		FocusSessions:      attentionSummary.Totals.FocusSessions,
		FocusSeconds:       attentionSummary.Totals.FocusSeconds,
	}

	if m.store != nil {
		if err := m.store.Sessions().Create(sess); err != nil {
			return nil, fmt.Errorf("persist session report: %w", err)
		}
	}

	m.logger.Info("session finished",
		zap.String("session_id", m.id),
		zap.Int("frames", sess.Frames),
		zap.Int("dropped", m.dropped),
		zap.Float64("overall_perclos", sess.OverallPerclos),
		zap.String("peak_fatigue_level", sess.PeakFatigueLevel),
		zap.Int("microsleeps", sess.TotalMicrosleeps))

	return sess, nil
}
