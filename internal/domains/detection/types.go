package detection

import (
	"fmt"
	"math/rand"
	"time"
)

// Category buckets a detection for staff routing.
type Category string

const (
	CategoryMedical  Category = "medical"
	CategorySecurity Category = "security"
	CategoryFire     Category = "fire"
	CategoryGeneral  Category = "general"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryMedical, CategorySecurity, CategoryFire, CategoryGeneral:
		return true
	}
	return false
}

// Classification is the transient outcome of one fusion pass. It is never
// persisted directly; a Detection is built from it when it trips the trigger
// threshold.
type Classification struct {
	IsEmergency   bool      `json:"isEmergency"`
	Confidence    float64   `json:"confidence"`
	EmergencyType string    `json:"emergencyType"`
	Timestamp     time.Time `json:"timestamp"`
}

// LatLng is the coordinate pair returned by the location provider.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Detection is one positive emergency classification event. Immutable after
// creation.
type Detection struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	DetectedPhrase string    `json:"detectedPhrase"`
	Category       Category  `json:"category"`
	Confidence     float64   `json:"confidence"`
	AudioClip      string    `json:"audioClip,omitempty"`
	Location       *LatLng   `json:"location,omitempty"`
}

// NewDetectionID derives a unique id from the current time plus randomness.
func NewDetectionID(now time.Time) string {
	return fmt.Sprintf("emergency_%d_%09d", now.UnixMilli(), rand.Int31n(1_000_000_000))
}

// Store abstracts local persistence so tests can run against an in-memory
// double. Implementations serialize the value wholesale under the given key.
type Store interface {
	Load(key string, v any) error
	Save(key string, v any) error
}

// Persistence keys. Each dataset lives under its own key so built-in phrases
// are never serialized next to custom ones.
const (
	StoreKeyPhrases  = "emergency_phrases"
	StoreKeyHistory  = "emergency_detection_history"
	StoreKeyTraining = "emergency_training_data"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
