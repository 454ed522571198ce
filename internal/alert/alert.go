// Package alert dispatches fatigue and attention escalations to external hook
// executables.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind identifies the escalation that triggered an event.
type Kind string

const (
	// KindFatigueLevel fires when the fatigue level escalates to drowsy or worse.
	KindFatigueLevel Kind = "fatigue_level"
	// KindMicrosleep fires when a new microsleep is detected.
	KindMicrosleep Kind = "microsleep"
	// KindDistraction fires when the attention state becomes distracted.
	KindDistraction Kind = "distraction"
)

// Event is the JSON payload written to each hook's stdin.
type Event struct {
	SessionID string  `json:"session_id"`
	Timestamp float64 `json:"timestamp"`
	Kind      Kind    `json:"kind"`
	Level     string  `json:"level,omitempty"`
	Detail    string  `json:"detail,omitempty"`
}

// Hook is a discovered alert executable.
type Hook struct {
	Name       string
	Executable string
}

// Runner discovers hook executables in a directory and dispatches events to
// them with a timeout. Hook failures are logged and never propagate into the
// frame-processing path.
type Runner struct {
	dir     string
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.RWMutex
	hooks []Hook
}

// NewRunner creates a Runner for the given hook directory.
func NewRunner(dir string, timeout time.Duration, logger *zap.Logger) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{dir: dir, timeout: timeout, logger: logger}
}

// Discover scans the hook directory for executable files. A missing directory
// is not an error; there is simply nothing to run.
func (r *Runner) Discover() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = nil

	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if fi.Mode()&0111 == 0 {
			continue // not executable
		}
		r.hooks = append(r.hooks, Hook{
			Name:       entry.Name(),
			Executable: filepath.Join(r.dir, entry.Name()),
		})
	}

	return nil
}

// Hooks returns the discovered hooks.
func (r *Runner) Hooks() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hook, len(r.hooks))
	copy(out, r.hooks)
	return out
}

// Fire dispatches the event to every discovered hook in sequence. Individual
// hook failures are logged and do not stop the remaining hooks.
func (r *Runner) Fire(ev Event) {
	for _, hook := range r.Hooks() {
		if err := r.run(hook, ev); err != nil {
			r.logger.Warn("alert hook failed",
				zap.String("hook", hook.Name),
				zap.String("kind", string(ev.Kind)),
				zap.Error(err))
		}
	}
}

// run executes one hook with the event JSON on stdin under the timeout.
func (r *Runner) run(hook Hook, ev Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	cmd := exec.CommandContext(ctx, hook.Executable)
	cmd.Stdin = bytes.NewReader(payload)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("hook timeout after %s", r.timeout)
	}
	if err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("hook failed: %w, stderr: %s", err, stderr.String())
		}
		return fmt.Errorf("hook failed: %w", err)
	}
	return nil
}
