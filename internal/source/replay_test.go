package source

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReplaySource_ReadsFrames(t *testing.T) {
	input := `{"timestamp": 0.0, "eye_openness": 0.9, "gaze": {"x": 0.5, "y": 0.5}}

{"timestamp": 0.066, "eye_openness": 0.05, "gaze": {"x": 0.52, "y": 0.48}}
`
	s := NewReplay(strings.NewReader(input))
	defer s.Close()

	first, err := s.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if first.Timestamp != 0 || first.EyeOpenness != 0.9 || first.Gaze.X != 0.5 {
		t.Errorf("unexpected first frame: %+v", first)
	}

	// Blank line is skipped
	second, err := s.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if second.Timestamp != 0.066 || second.EyeOpenness != 0.05 {
		t.Errorf("unexpected second frame: %+v", second)
	}

	if _, err := s.Next(); err != io.EOF {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReplaySource_MalformedLine(t *testing.T) {
	s := NewReplay(strings.NewReader("{not json}\n"))
	defer s.Close()

	if _, err := s.Next(); err == nil {
		t.Error("expected error for malformed frame line")
	}
}

func TestOpenReplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	content := `{"timestamp": 1.5, "eye_openness": 0.3, "gaze": {"x": 0.1, "y": 0.2}}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s, err := OpenReplay(path)
	if err != nil {
		t.Fatalf("OpenReplay() error = %v", err)
	}
	defer s.Close()

	frame, err := s.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if frame.Timestamp != 1.5 || frame.Gaze.Y != 0.2 {
		t.Errorf("unexpected frame: %+v", frame)
	}

	if _, err := OpenReplay(filepath.Join(dir, "missing.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMockSource(t *testing.T) {
	m := NewMock(
		Frame{Timestamp: 0, EyeOpenness: 0.9},
		Frame{Timestamp: 0.1, EyeOpenness: 0.05},
	)

	for i := 0; i < 2; i++ {
		if _, err := m.Next(); err != nil {
			t.Fatalf("Next() error = %v", err)
		}
	}
	if _, err := m.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}

	m.Close()
	if !m.Closed() {
		t.Error("expected Closed() true after Close")
	}
}
