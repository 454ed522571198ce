package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReplaySource reads frames from a JSONL stream, one frame object per line.
// Blank lines are skipped. It is used to replay recorded sessions and in tests.
type ReplaySource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// NewReplay creates a ReplaySource reading from r.
func NewReplay(r io.Reader) *ReplaySource {
	return &ReplaySource{scanner: bufio.NewScanner(r)}
}

// OpenReplay creates a ReplaySource reading from the file at path.
func OpenReplay(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	s := NewReplay(f)
	s.closer = f
	return s, nil
}

// Next returns the next frame, or io.EOF at end of stream.
func (s *ReplaySource) Next() (Frame, error) {
	for s.scanner.Scan() {
		s.line++
		text := strings.TrimSpace(s.scanner.Text())
		if text == "" {
			continue
		}

		var frame Frame
		if err := json.Unmarshal([]byte(text), &frame); err != nil {
			return Frame{}, fmt.Errorf("parse frame at line %d: %w", s.line, err)
		}
		return frame, nil
	}

	if err := s.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

// Close closes the underlying file, if any.
func (s *ReplaySource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
