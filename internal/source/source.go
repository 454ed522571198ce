// Package source provides frame sources that deliver per-frame eye-openness
// and gaze samples from the external facial-landmark extractor.
package source

// Gaze is a normalized gaze position.
type Gaze struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame is one time-stamped observation from the landmark extractor.
// Timestamps are in seconds on a monotonic or video-relative clock.
type Frame struct {
	Timestamp   float64 `json:"timestamp"`
	EyeOpenness float64 `json:"eye_openness"`
	Gaze        Gaze    `json:"gaze"`
}

// Source defines the interface for frame source implementations.
type Source interface {
	// Next returns the next frame. It returns io.EOF when the source is
	// exhausted.
	Next() (Frame, error)

	// Close releases any resources held by the source.
	Close() error
}
