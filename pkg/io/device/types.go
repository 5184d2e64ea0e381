package device

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPermissionDenied means the user or platform refused microphone
	// access. Not retryable without user action.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable means no capture device could be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

// Frame is one chunk of captured PCM16 audio with its capture parameters.
type Frame struct {
	Data       []byte // 16-bit little-endian PCM
	SampleRate int
	Channels   int
	Timestamp  time.Time
}

// Source is a stream of audio frames from a capture device. Open may be
// called once; the returned channel closes when the source stops, either via
// Close or a device failure.
type Source interface {
	Open(ctx context.Context) (<-chan Frame, error)
	Close() error
}
