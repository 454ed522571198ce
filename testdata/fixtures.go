// Package testdata embeds recorded session fixtures used by replay and
// end-to-end tests.
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"io"
)

//go:embed sessions/*.jsonl
var sessionsFS embed.FS

// Session returns a recorded session by name as a frame-per-line JSON stream.
func Session(name string) (io.Reader, error) {
	data, err := sessionsFS.ReadFile("sessions/" + name + ".jsonl")
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", name, err)
	}
	return bytes.NewReader(data), nil
}

// SessionBytes returns the raw bytes of a recorded session by name.
func SessionBytes(name string) ([]byte, error) {
	data, err := sessionsFS.ReadFile("sessions/" + name + ".jsonl")
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", name, err)
	}
	return data, nil
}
