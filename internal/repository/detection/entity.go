package detection

import (
	"time"

	"gorm.io/gorm"

	"github.com/unilert/unilert/internal/domains/detection"
)

// DetectionEntity mirrors one detection event in MySQL. The local JSON store
// stays authoritative for the device; this table feeds the campus dashboard.
type DetectionEntity struct {
	ID             string         `gorm:"primaryKey;type:varchar(64);not null"`
	DetectedAt     time.Time      `gorm:"column:detected_at;index;not null"`
	DetectedPhrase string         `gorm:"column:detected_phrase;type:varchar(512)"`
	Category       string         `gorm:"type:varchar(32);index;not null"`
	Confidence     float64        `gorm:"not null"`
	AudioClip      string         `gorm:"column:audio_clip;type:mediumtext"`
	Lat            *float64       `gorm:"column:lat"`
	Lng            *float64       `gorm:"column:lng"`
	CreatedAt      time.Time      `gorm:"autoCreateTime(3)"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (DetectionEntity) TableName() string {
	return "emergency_detections"
}

// ToDomain converts the entity to a domain Detection.
func (e *DetectionEntity) ToDomain() *detection.Detection {
	d := &detection.Detection{
		ID:             e.ID,
		Timestamp:      e.DetectedAt,
		DetectedPhrase: e.DetectedPhrase,
		Category:       detection.Category(e.Category),
		Confidence:     e.Confidence,
		AudioClip:      e.AudioClip,
	}
	if e.Lat != nil && e.Lng != nil {
		d.Location = &detection.LatLng{Lat: *e.Lat, Lng: *e.Lng}
	}
	return d
}

// FromDomain fills the entity from a domain Detection.
func (e *DetectionEntity) FromDomain(d *detection.Detection) {
	e.ID = d.ID
	e.DetectedAt = d.Timestamp
	e.DetectedPhrase = d.DetectedPhrase
	e.Category = string(d.Category)
	e.Confidence = d.Confidence
	e.AudioClip = d.AudioClip
	if d.Location != nil {
		lat, lng := d.Location.Lat, d.Location.Lng
		e.Lat, e.Lng = &lat, &lng
	}
}

// NewDetectionEntityFromDomain creates an entity from a domain Detection.
func NewDetectionEntityFromDomain(d *detection.Detection) *DetectionEntity {
	entity := &DetectionEntity{}
	entity.FromDomain(d)
	return entity
}
