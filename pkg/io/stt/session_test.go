package stt

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unilert/unilert/pkg/Logger"
	"github.com/unilert/unilert/pkg/io/device"
)

type fakeTranscriber struct {
	calls    atomic.Int32
	failures int32
	text     string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, frames []device.Frame) (Segment, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return Segment{}, errors.New("service unavailable")
	}
	return Segment{Text: f.text, GeneratedAt: time.Now()}, nil
}

func testFrame() device.Frame {
	return device.Frame{
		Data:       []byte{1, 0, 2, 0},
		SampleRate: 16000,
		Channels:   1,
		Timestamp:  time.Now(),
	}
}

func TestSessionEmitsSegments(t *testing.T) {
	transcriber := &fakeTranscriber{text: "help me"}
	session := NewSession(transcriber, SessionConfig{
		SegmentTimeout: 10 * time.Millisecond,
		RestartDelay:   time.Millisecond,
	}, Logger.New(true))

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer session.Stop()

	session.Push(testFrame())

	select {
	case segment := <-session.Segments():
		if segment.Text != "help me" {
			t.Errorf("Expected transcript %q, got %q", "help me", segment.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for segment")
	}
}

func TestSessionDoubleStart(t *testing.T) {
	session := NewSession(&fakeTranscriber{}, SessionConfig{}, Logger.New(true))

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer session.Stop()

	if err := session.Start(context.Background()); err == nil {
		t.Error("Expected error on second Start")
	}
}

func TestSessionRecoversFromTransientFailure(t *testing.T) {
	transcriber := &fakeTranscriber{text: "fire", failures: 2}
	session := NewSession(transcriber, SessionConfig{
		SegmentTimeout: 5 * time.Millisecond,
		RestartDelay:   time.Millisecond,
		MaxRestarts:    5,
	}, Logger.New(true))

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer session.Stop()

	// Keep feeding audio so every tick has something to flush.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(2 * time.Millisecond):
				session.Push(testFrame())
			}
		}
	}()

	select {
	case segment := <-session.Segments():
		if segment.Text != "fire" {
			t.Errorf("Expected transcript %q, got %q", "fire", segment.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Session did not recover from transient failures")
	}
}

func TestSessionGivesUpAfterMaxRestarts(t *testing.T) {
	transcriber := &fakeTranscriber{failures: 100}
	session := NewSession(transcriber, SessionConfig{
		SegmentTimeout: 5 * time.Millisecond,
		RestartDelay:   time.Millisecond,
		MaxRestarts:    2,
	}, Logger.New(true))

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(2 * time.Millisecond):
				session.Push(testFrame())
			}
		}
	}()

	select {
	case _, open := <-session.Segments():
		if open {
			t.Error("Expected segment channel to close without segments")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Session did not give up after exhausting restarts")
	}
}

func TestSessionStopIsIdempotent(t *testing.T) {
	session := NewSession(&fakeTranscriber{}, SessionConfig{
		SegmentTimeout: 5 * time.Millisecond,
	}, Logger.New(true))

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	session.Stop()
	session.Stop()

	if _, open := <-session.Segments(); open {
		t.Error("Expected segment channel to be closed after Stop")
	}
}
