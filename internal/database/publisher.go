package database

import (
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis"

	"github.com/unilert/unilert/internal/domains/detection"
)

// DetectionPublisher pushes detection events onto a redis channel so
// dashboards and other subscribers see them live.
type DetectionPublisher struct {
	client  *redis.Client
	channel string
}

func NewDetectionPublisher(client *redis.Client, channel string) *DetectionPublisher {
	if channel == "" {
		channel = "unilert:detections"
	}
	return &DetectionPublisher{client: client, channel: channel}
}

func (p *DetectionPublisher) Publish(d detection.Detection) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode detection: %w", err)
	}
	if err := p.client.Publish(p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish detection: %w", err)
	}
	return nil
}
