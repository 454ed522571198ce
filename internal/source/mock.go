package source

import "io"

// MockSource is a test implementation of the Source interface.
// It yields a scripted sequence of frames, then io.EOF.
type MockSource struct {
	frames []Frame
	err    error
	pos    int
	closed bool
}

// NewMock creates a MockSource that yields the given frames in order.
func NewMock(frames ...Frame) *MockSource {
	return &MockSource{frames: frames}
}

// SetError sets an error returned once the scripted frames are exhausted,
// instead of io.EOF.
func (m *MockSource) SetError(err error) {
	m.err = err
}

// Next returns the next scripted frame.
func (m *MockSource) Next() (Frame, error) {
	if m.pos >= len(m.frames) {
		if m.err != nil {
			return Frame{}, m.err
		}
		return Frame{}, io.EOF
	}
	f := m.frames[m.pos]
	m.pos++
	return f, nil
}

// Close marks the source as closed.
func (m *MockSource) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockSource) Closed() bool {
	return m.closed
}
