package stt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/unilert/unilert/pkg/Logger"
	"github.com/unilert/unilert/pkg/io/device"
	audioring "github.com/unilert/unilert/pkg/io/stt/audioRing"
)

// SessionConfig tunes the continuous recognition session.
type SessionConfig struct {
	// SegmentTimeout is how often buffered audio is flushed to the
	// transcriber.
	SegmentTimeout time.Duration
	// RestartDelay is the backoff after a failed transcription attempt.
	RestartDelay time.Duration
	// MaxRestarts bounds consecutive failures before the session gives up.
	MaxRestarts int
	// RingSize is the frame buffer capacity in bytes.
	RingSize int
}

func (c *SessionConfig) normalize() {
	if c.SegmentTimeout <= 0 {
		c.SegmentTimeout = 3 * time.Second
	}
	if c.RestartDelay <= 0 {
		c.RestartDelay = time.Second
	}
	if c.MaxRestarts <= 0 {
		c.MaxRestarts = 5
	}
	if c.RingSize <= 0 {
		c.RingSize = 1 << 20
	}
}

// Session runs continuous speech recognition over pushed audio frames. It
// recovers from transient transcriber failures with a bounded restart budget;
// an explicit Stop never triggers a restart.
type Session struct {
	transcriber Transcriber
	ring        audioring.FrameRing
	cfg         SessionConfig
	logger      *Logger.Logger

	segments chan Segment

	mu       sync.Mutex
	started  bool
	stopping bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSession(transcriber Transcriber, cfg SessionConfig, logger *Logger.Logger) *Session {
	cfg.normalize()
	return &Session{
		transcriber: transcriber,
		ring:        audioring.New(cfg.RingSize),
		cfg:         cfg,
		logger:      logger,
		segments:    make(chan Segment, 16),
	}
}

// Segments emits finalized transcripts. Closed when the session ends.
func (s *Session) Segments() <-chan Segment { return s.segments }

// Push buffers a frame for the next segment flush.
func (s *Session) Push(frame device.Frame) {
	if err := s.ring.Enqueue(frame); err != nil {
		s.logger.Warnf("dropping audio frame: %v", err)
	}
}

// Start launches the recognition loop. Starting twice is an error.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("recognition session already started")
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	return nil
}

// Stop ends the session and waits for the loop to exit. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Session) run(ctx context.Context) {
	defer close(s.segments)
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.SegmentTimeout)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frames := s.ring.Drain()
		if len(frames) == 0 {
			continue
		}

		segment, err := s.transcriber.Transcribe(ctx, frames)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			if failures > s.cfg.MaxRestarts {
				s.logger.Errorf("recognition gave up after %d consecutive failures: %v", failures, err)
				return
			}
			s.logger.Warnf("transcription failed (attempt %d/%d), restarting: %v",
				failures, s.cfg.MaxRestarts, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.RestartDelay):
			}
			continue
		}
		failures = 0

		if segment.Text == "" {
			continue
		}
		select {
		case s.segments <- segment:
		default:
			s.logger.Warnf("segment channel full, dropping transcript")
		}
	}
}
