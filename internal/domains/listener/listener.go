package listener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"

	"github.com/unilert/unilert/internal/config"
	"github.com/unilert/unilert/internal/domains/detection"
	"github.com/unilert/unilert/pkg/Logger"
	"github.com/unilert/unilert/pkg/audio"
	"github.com/unilert/unilert/pkg/io/device"
	"github.com/unilert/unilert/pkg/io/stt"
)

// ErrAlreadyListening is returned by Start while a capture session is active.
var ErrAlreadyListening = errors.New("capture loop already listening")

// Listener states and events.
const (
	StateIdle      = "idle"
	StateListening = "listening"

	eventStart = "start"
	eventStop  = "stop"
)

// transcriptTTL bounds how long a recognized segment stays paired with new
// audio windows.
const transcriptTTL = 6 * time.Second

// Loop is the continuous capture loop. It pulls frames from a device source,
// windows them for the fusion engine, and scores each finalized transcript
// against the lexicon. Positive verdicts come out of Detections.
type Loop struct {
	source  device.Source
	session *stt.Session
	lexicon *detection.Lexicon
	engine  *detection.Engine
	cfg     config.DetectionConfig
	logger  *Logger.Logger

	machine    *fsm.FSM
	generation atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	detections chan detection.Detection

	transcriptMu sync.Mutex
	transcript   string
	transcriptAt time.Time
}

func New(source device.Source, session *stt.Session, lexicon *detection.Lexicon, engine *detection.Engine, cfg config.DetectionConfig, logger *Logger.Logger) *Loop {
	l := &Loop{
		source:     source,
		session:    session,
		lexicon:    lexicon,
		engine:     engine,
		cfg:        cfg,
		logger:     logger,
		detections: make(chan detection.Detection, 16),
	}
	l.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateListening},
			{Name: eventStop, Src: []string{StateListening}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Infof("capture loop: %s -> %s", e.Src, e.Dst)
			},
		},
	)
	return l
}

// Detections emits positive classifications. The channel stays open across
// stop/start cycles.
func (l *Loop) Detections() <-chan detection.Detection { return l.detections }

// State reports idle or listening.
func (l *Loop) State() string { return l.machine.Current() }

// Start opens the device and begins continuous analysis. Returns
// ErrAlreadyListening when a session is active; device errors pass through
// unchanged so callers can distinguish denied permission from a missing
// device.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.machine.Current() == StateListening {
		return ErrAlreadyListening
	}

	frames, err := l.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open audio source: %w", err)
	}

	if l.session != nil {
		if err := l.session.Start(ctx); err != nil {
			return fmt.Errorf("failed to start recognition session: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	gen := l.generation.Load()

	if err := l.machine.Event(ctx, eventStart); err != nil {
		cancel()
		return fmt.Errorf("failed to enter listening state: %w", err)
	}

	l.wg.Add(1)
	go l.run(runCtx, frames, gen)
	if l.session != nil {
		l.wg.Add(1)
		go l.consumeSegments(runCtx, gen)
	}
	return nil
}

// Stop ends the session. Analyses still in flight are suppressed by the
// generation counter, so nothing is appended after Stop returns. Idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.machine.Current() != StateListening {
		l.mu.Unlock()
		return
	}
	l.generation.Add(1)
	cancel := l.cancel
	l.mu.Unlock()

	cancel()
	if l.session != nil {
		l.session.Stop()
	}
	l.source.Close()
	l.wg.Wait()

	l.mu.Lock()
	if l.machine.Current() == StateListening {
		if err := l.machine.Event(context.Background(), eventStop); err != nil {
			l.logger.Errorf("failed to leave listening state: %v", err)
		}
	}
	l.mu.Unlock()
}

// run windows incoming PCM and schedules analyses. Windows overlap by the
// configured carry-over so speech straddling a boundary is still seen whole.
func (l *Loop) run(ctx context.Context, frames <-chan device.Frame, gen uint64) {
	defer l.wg.Done()

	windowSamples := int(l.cfg.WindowDuration.Seconds() * float64(l.cfg.SampleRate))
	carrySamples := int(l.cfg.CarryOver.Seconds() * float64(l.cfg.SampleRate))
	if carrySamples >= windowSamples {
		carrySamples = windowSamples / 2
	}

	var buffer []float64
	var lastAnalysis time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if l.session != nil {
				l.session.Push(frame)
			}

			samples := audio.DecodePCM16(frame.Data)
			if frame.SampleRate > 0 && frame.SampleRate != l.cfg.SampleRate {
				samples = audio.Resample(samples, frame.SampleRate, l.cfg.SampleRate)
			}
			buffer = append(buffer, samples...)

			if len(buffer) < windowSamples {
				continue
			}
			if time.Since(lastAnalysis) < l.cfg.AnalysisInterval {
				// throttle: keep the window trimmed while waiting
				if len(buffer) > windowSamples {
					buffer = buffer[len(buffer)-windowSamples:]
				}
				continue
			}
			lastAnalysis = time.Now()

			window := make([]float64, windowSamples)
			copy(window, buffer[len(buffer)-windowSamples:])
			buffer = append(buffer[:0], window[windowSamples-carrySamples:]...)

			l.wg.Add(1)
			go l.analyze(ctx, window, gen)
		}
	}
}

// consumeSegments scores each finalized segment against the lexicon as soon
// as it lands, firing at most one phrase detection per segment, and caches
// the transcript for pairing with audio windows on the fusion path.
func (l *Loop) consumeSegments(ctx context.Context, gen uint64) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case segment, ok := <-l.session.Segments():
			if !ok {
				return
			}
			l.transcriptMu.Lock()
			l.transcript = segment.Text
			l.transcriptAt = segment.GeneratedAt
			l.transcriptMu.Unlock()

			// A recognized trigger phrase is a detection on its own,
			// independent of the model path. One segment, one verdict.
			if match, ok := l.lexicon.Score(segment.Text); ok {
				l.emit(gen, detection.Detection{
					ID:             detection.NewDetectionID(time.Now()),
					Timestamp:      time.Now(),
					DetectedPhrase: match.Phrase.Phrase,
					Category:       match.Phrase.Category,
					Confidence:     match.Confidence,
				})
			}
		}
	}
}

func (l *Loop) currentTranscript() string {
	l.transcriptMu.Lock()
	defer l.transcriptMu.Unlock()
	if time.Since(l.transcriptAt) > transcriptTTL {
		return ""
	}
	return l.transcript
}

// analyze classifies one window. Runs off the capture goroutine so a slow
// backend never stalls frame intake.
func (l *Loop) analyze(ctx context.Context, window []float64, gen uint64) {
	defer l.wg.Done()

	features, err := audio.Extract(window, l.cfg.SampleRate)
	if err != nil {
		l.logger.Errorf("feature extraction failed: %v", err)
		return
	}

	transcript := l.currentTranscript()

	result := l.engine.Classify(ctx, window, features, transcript)
	if !result.IsEmergency {
		return
	}

	pattern := detection.ClassifyEmergencyType(features, transcript)
	phrase := transcript
	if phrase == "" {
		phrase = strings.ReplaceAll(pattern.Label, "_", " ")
	}
	l.emit(gen, detection.Detection{
		ID:             detection.NewDetectionID(result.Timestamp),
		Timestamp:      result.Timestamp,
		DetectedPhrase: phrase,
		Category:       pattern.Category,
		Confidence:     result.Confidence,
	})
}

// emit delivers a detection unless the session it belongs to has been
// stopped since the analysis was scheduled.
func (l *Loop) emit(gen uint64, d detection.Detection) {
	if l.generation.Load() != gen {
		l.logger.Debugf("suppressing late detection %s from stopped session", d.ID)
		return
	}
	select {
	case l.detections <- d:
	default:
		l.logger.Warnf("detection channel full, dropping %s", d.ID)
	}
}
