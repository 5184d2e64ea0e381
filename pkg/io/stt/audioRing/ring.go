package audioring

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/unilert/unilert/pkg/io/device"
)

// FrameRing buffers captured PCM frames between the device source and the
// analysis loop. It drops the oldest frames on overflow so a stalled consumer
// sees recent audio, not stale audio.
type FrameRing interface {
	Enqueue(frame device.Frame) error
	Dequeue() (device.Frame, bool)
	Drain() []device.Frame
	Len() int
	Capacity() int
}

type ring struct {
	size int
	rb   *ringbuffer.RingBuffer
}

func New(size int) FrameRing {
	return &ring{
		size: size,
		rb:   ringbuffer.New(size).SetBlocking(false),
	}
}

func (r *ring) Capacity() int { return r.size }
func (r *ring) Len() int      { return r.rb.Length() }

// Enqueue appends a frame, evicting oldest frames until it fits.
func (r *ring) Enqueue(frame device.Frame) error {
	record := encodeFrame(frame)
	if len(record) > r.rb.Capacity() {
		return errors.New("frame too large for ring")
	}

	for r.rb.Free() < len(record) {
		if !r.skipFrame() {
			r.rb.Reset()
			break
		}
	}

	_, err := r.rb.Write(record)
	return err
}

func (r *ring) Dequeue() (device.Frame, bool) {
	record, ok := r.readRecord()
	if !ok {
		return device.Frame{}, false
	}
	return decodeFrame(record)
}

// Drain empties the ring, returning frames oldest first.
func (r *ring) Drain() []device.Frame {
	var frames []device.Frame
	for {
		frame, ok := r.Dequeue()
		if !ok {
			return frames
		}
		frames = append(frames, frame)
	}
}

// skipFrame discards the oldest record without decoding it.
func (r *ring) skipFrame() bool {
	_, ok := r.readRecord()
	return ok
}

func (r *ring) readRecord() ([]byte, bool) {
	if r.rb.IsEmpty() {
		return nil, false
	}

	sizeBytes := make([]byte, 4)
	if n, err := r.rb.Read(sizeBytes); err != nil || n != 4 {
		return nil, false
	}
	size := int(binary.LittleEndian.Uint32(sizeBytes))

	record := make([]byte, size)
	if n, err := r.rb.Read(record); err != nil || n != size {
		return nil, false
	}
	return record, true
}

// Record layout: size(4) | timestampNanos(8) | sampleRate(4) | channels(2) | pcm.
// The size prefix covers everything after itself.
func encodeFrame(frame device.Frame) []byte {
	payload := 8 + 4 + 2 + len(frame.Data)
	buf := make([]byte, 4+payload)

	binary.LittleEndian.PutUint32(buf[0:], uint32(payload))
	binary.LittleEndian.PutUint64(buf[4:], uint64(frame.Timestamp.UnixNano()))
	binary.LittleEndian.PutUint32(buf[12:], uint32(frame.SampleRate))
	binary.LittleEndian.PutUint16(buf[16:], uint16(frame.Channels))
	copy(buf[18:], frame.Data)
	return buf
}

func decodeFrame(record []byte) (device.Frame, bool) {
	if len(record) < 14 {
		return device.Frame{}, false
	}
	frame := device.Frame{
		Timestamp:  time.Unix(0, int64(binary.LittleEndian.Uint64(record[0:]))),
		SampleRate: int(binary.LittleEndian.Uint32(record[8:])),
		Channels:   int(binary.LittleEndian.Uint16(record[12:])),
	}
	frame.Data = make([]byte, len(record)-14)
	copy(frame.Data, record[14:])
	return frame, true
}
