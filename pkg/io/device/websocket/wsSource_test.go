package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/unilert/unilert/pkg/io/device"
)

func testFrame() device.Frame {
	return device.Frame{
		Data:       []byte{0, 0, 0, 0},
		SampleRate: 16000,
		Channels:   1,
		Timestamp:  time.Now(),
	}
}

func TestSourcePushAndReceive(t *testing.T) {
	src := New(4)
	frames, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if !src.Push(testFrame()) {
		t.Error("Expected push to succeed with a free buffer")
	}
	select {
	case frame := <-frames:
		if frame.SampleRate != 16000 {
			t.Errorf("Expected sample rate 16000, got %d", frame.SampleRate)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for frame")
	}
}

func TestSourceDropsWhenFull(t *testing.T) {
	src := New(1)
	if _, err := src.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if !src.Push(testFrame()) {
		t.Fatal("Expected first push to succeed")
	}
	if src.Push(testFrame()) {
		t.Error("Expected push to report a drop when the buffer is full")
	}
}

func TestSourcePushAfterClose(t *testing.T) {
	src := New(4)
	src.Close()
	if src.Push(testFrame()) {
		t.Error("Push after Close must report failure")
	}
	if _, err := src.Open(context.Background()); err != device.ErrDeviceUnavailable {
		t.Errorf("Expected ErrDeviceUnavailable after Close, got %v", err)
	}
}

func TestSourcePushCloseRace(t *testing.T) {
	src := New(4)
	if _, err := src.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// A frame arriving while the capture loop tears the source down must be
	// dropped, never panic.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			src.Push(testFrame())
		}
	}()

	time.Sleep(time.Millisecond)
	src.Close()
	<-done

	if src.Push(testFrame()) {
		t.Error("Push after Close must report failure")
	}
}
