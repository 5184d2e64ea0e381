package stt

import (
	"context"
	"time"

	"github.com/unilert/unilert/pkg/io/device"
)

// Segment is one finalized chunk of recognized speech.
type Segment struct {
	Text        string
	Language    string
	GeneratedAt time.Time
	// AudioDuration covers the audio the segment was recognized from.
	AudioDuration time.Duration
}

// Transcriber converts buffered audio frames to text. Implementations talk to
// a remote recognition service and may fail transiently.
type Transcriber interface {
	Transcribe(ctx context.Context, frames []device.Frame) (Segment, error)
}
