package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// ExtractorSource runs the external facial-landmark extractor as a subprocess
// and reads one JSON frame per stdout line. The extractor owns the camera and
// all image processing; only the two numeric signals cross this boundary.
type ExtractorSource struct {
	command string
	args    []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdout  *bufio.Reader
	started bool
	line    int
}

// NewExtractor creates an ExtractorSource for the given command.
// The subprocess is started lazily on the first call to Next.
func NewExtractor(command string, args ...string) *ExtractorSource {
	return &ExtractorSource{command: command, args: args}
}

// Next returns the next frame emitted by the extractor, or io.EOF once the
// extractor exits and its output is drained.
func (s *ExtractorSource) Next() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return Frame{}, err
	}

	for {
		line, err := s.stdout.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return Frame{}, io.EOF
			}
			return Frame{}, fmt.Errorf("read extractor output: %w", err)
		}
		s.line++

		if len(line) <= 1 {
			continue
		}

		var frame Frame
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			return Frame{}, fmt.Errorf("parse extractor frame at line %d: %w", s.line, err)
		}
		return frame, nil
	}
}

// Close terminates the extractor process.
func (s *ExtractorSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.cmd == nil {
		return nil
	}
	s.started = false

	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	return s.cmd.Wait()
}

func (s *ExtractorSource) ensureStarted() error {
	if s.started {
		return nil
	}

	cmd := exec.Command(s.command, s.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("extractor stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start extractor %q: %w", s.command, err)
	}

	s.cmd = cmd
	s.stdout = bufio.NewReader(stdout)
	s.started = true
	return nil
}
