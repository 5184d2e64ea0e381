package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/unilert/unilert/internal/config"
	"github.com/unilert/unilert/pkg/Logger"
	"github.com/unilert/unilert/pkg/audio"
)

// AcousticScore is an acoustic backend's verdict on one audio window.
type AcousticScore struct {
	Confidence float64
	Label      string
}

// TextScore is a text backend's verdict on one transcript.
type TextScore struct {
	Confidence float64
	Category   Category
}

// AcousticClassifier scores raw audio windows. Implementations are expected
// to be remote and may fail; the engine degrades to rules when they do.
type AcousticClassifier interface {
	ClassifyAudio(ctx context.Context, samples []float64, sampleRate int) (AcousticScore, error)
}

// TextClassifier scores transcripts for emergency intent.
type TextClassifier interface {
	ClassifyText(ctx context.Context, transcript string) (TextScore, error)
}

// TrainingSample records one fusion pass for offline model improvement.
type TrainingSample struct {
	Features   audio.Features `json:"features"`
	Transcript string         `json:"transcript"`
	Confidence float64        `json:"confidence"`
	Label      string         `json:"label"`
	Timestamp  time.Time      `json:"timestamp"`
}

// TrainingStats summarizes the collected training log.
type TrainingStats struct {
	Total     int            `json:"total"`
	Positives int            `json:"positives"`
	ByLabel   map[string]int `json:"byLabel"`
}

// Engine fuses acoustic, transcript, and pattern evidence into one
// classification per analysis window.
type Engine struct {
	acoustic AcousticClassifier
	text     TextClassifier
	cfg      config.DetectionConfig
	store    Store
	logger   *Logger.Logger

	mu       sync.Mutex
	training []TrainingSample
}

func NewEngine(acoustic AcousticClassifier, text TextClassifier, cfg config.DetectionConfig, store Store, logger *Logger.Logger) *Engine {
	e := &Engine{
		acoustic: acoustic,
		text:     text,
		cfg:      cfg,
		store:    store,
		logger:   logger,
	}
	if err := store.Load(StoreKeyTraining, &e.training); err != nil {
		logger.Warnf("failed to load training log, starting empty: %v", err)
	}
	e.trimTrainingLocked()
	return e
}

// Classify fuses all available evidence for one analysis window. It never
// returns an error: when the model backends are unreachable it falls back to
// the rule-based scorer so the capture loop keeps producing verdicts.
func (e *Engine) Classify(ctx context.Context, samples []float64, features audio.Features, transcript string) Classification {
	now := time.Now()

	acousticScore, err := e.acoustic.ClassifyAudio(ctx, samples, e.cfg.SampleRate)
	if err != nil {
		e.logger.Warnf("acoustic classifier unavailable, using rule-based fallback: %v", err)
		return e.fallback(features, transcript, now)
	}

	var textConfidence float64
	if transcript != "" {
		textScore, err := e.text.ClassifyText(ctx, transcript)
		if err != nil {
			e.logger.Warnf("text classifier unavailable, scoring transcript by rules: %v", err)
			textScore = ruleTextScore(transcript)
		}
		textConfidence = clamp01(textScore.Confidence)
	}

	pattern := MatchPatterns(features, transcript)

	confidence := clamp01(
		clamp01(acousticScore.Confidence)*e.cfg.AcousticWeight +
			textConfidence*e.cfg.TranscriptWeight +
			pattern.Score*e.cfg.PatternWeight,
	)

	result := Classification{
		IsEmergency: confidence >= e.cfg.TriggerThreshold,
		Confidence:  confidence,
		Timestamp:   now,
	}
	if result.IsEmergency {
		result.EmergencyType = ClassifyEmergencyType(features, transcript).Label
	}

	e.record(features, transcript, result)
	return result
}

// fallback scores the window with static rules only. Mirrors the weighting
// the model path uses so thresholds stay meaningful when backends are down.
func (e *Engine) fallback(features audio.Features, transcript string, now time.Time) Classification {
	var confidence float64
	if features.Energy > 0.5 {
		confidence += 0.3
	}
	if features.ZeroCrossingRate > 0.1 {
		confidence += 0.2
	}
	confidence += 0.2 * float64(CountKeywordHits(transcript))
	confidence = clamp01(confidence)

	result := Classification{
		IsEmergency: confidence >= e.cfg.TriggerThreshold,
		Confidence:  confidence,
		Timestamp:   now,
	}
	if result.IsEmergency {
		result.EmergencyType = ClassifyEmergencyType(features, transcript).Label
	}

	e.record(features, transcript, result)
	return result
}

// ruleTextScore approximates a text backend from signature keywords, used
// when only the text classifier is down.
func ruleTextScore(transcript string) TextScore {
	confidence := clamp01(0.2 * float64(CountKeywordHits(transcript)))
	return TextScore{Confidence: confidence, Category: CategoryGeneral}
}

// record appends the pass to the bounded training log and persists it.
func (e *Engine) record(features audio.Features, transcript string, result Classification) {
	sample := TrainingSample{
		Features:   features,
		Transcript: transcript,
		Confidence: result.Confidence,
		Label:      result.EmergencyType,
		Timestamp:  result.Timestamp,
	}

	e.mu.Lock()
	e.training = append(e.training, sample)
	e.trimTrainingLocked()
	snapshot := append([]TrainingSample(nil), e.training...)
	e.mu.Unlock()

	if err := e.store.Save(StoreKeyTraining, snapshot); err != nil {
		e.logger.Errorf("failed to persist training log: %v", err)
	}
}

func (e *Engine) trimTrainingLocked() {
	limit := e.cfg.TrainingLogLimit
	if limit <= 0 {
		limit = 1000
	}
	if len(e.training) > limit {
		e.training = e.training[len(e.training)-limit:]
	}
}

// ExportTraining serializes the training log as JSON.
func (e *Engine) ExportTraining() ([]byte, error) {
	e.mu.Lock()
	snapshot := append([]TrainingSample(nil), e.training...)
	e.mu.Unlock()
	return json.Marshal(snapshot)
}

// ImportTraining replaces the training log with the given JSON export.
func (e *Engine) ImportTraining(data []byte) error {
	var samples []TrainingSample
	if err := json.Unmarshal(data, &samples); err != nil {
		return fmt.Errorf("invalid training export: %w", err)
	}

	e.mu.Lock()
	e.training = samples
	e.trimTrainingLocked()
	snapshot := append([]TrainingSample(nil), e.training...)
	e.mu.Unlock()

	if err := e.store.Save(StoreKeyTraining, snapshot); err != nil {
		return fmt.Errorf("persist training log: %w", err)
	}
	return nil
}

// TrainingStats reports counts over the collected log.
func (e *Engine) TrainingStats() TrainingStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := TrainingStats{Total: len(e.training), ByLabel: make(map[string]int)}
	for _, s := range e.training {
		if s.Confidence >= e.cfg.TriggerThreshold {
			stats.Positives++
		}
		if s.Label != "" {
			stats.ByLabel[s.Label]++
		}
	}
	return stats
}
