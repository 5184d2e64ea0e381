package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unilert/unilert/pkg/io/device"
)

// Source adapts a websocket audio stream into a device.Source. The transport
// handler pushes decoded frames in; the capture loop consumes them like any
// local microphone.
type Source struct {
	id     uuid.UUID
	frames chan device.Frame

	mu         sync.Mutex
	opened     bool
	closed     bool
	lastActive time.Time
}

func New(buffer int) *Source {
	if buffer <= 0 {
		buffer = 32
	}
	return &Source{
		id:         uuid.New(),
		frames:     make(chan device.Frame, buffer),
		lastActive: time.Now(),
	}
}

func (s *Source) ID() uuid.UUID { return s.id }

// Open implements device.Source. The stream ends when the websocket handler
// calls Close, typically on client disconnect.
func (s *Source) Open(ctx context.Context) (<-chan device.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, device.ErrDeviceUnavailable
	}
	s.opened = true
	return s.frames, nil
}

// Push hands a frame from the transport to the consumer. Frames are dropped
// when the consumer lags; live audio is worthless late. The send happens
// under the mutex so Close never closes the channel out from under it.
func (s *Source) Push(frame device.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.lastActive = time.Now()

	select {
	case s.frames <- frame:
		return true
	default:
		return false
	}
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return nil
}

func (s *Source) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
