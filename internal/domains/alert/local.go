package alert

import (
	"context"

	"github.com/unilert/unilert/internal/domains/detection"
	"github.com/unilert/unilert/pkg/Logger"
)

// LogAlerter is the headless LocalAlerter: it writes alerts to the log.
// Deployments with an attached display swap in their own implementation.
type LogAlerter struct {
	logger *Logger.Logger
}

func NewLogAlerter(logger *Logger.Logger) *LogAlerter {
	return &LogAlerter{logger: logger}
}

func (a *LogAlerter) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

func (a *LogAlerter) Alert(ctx context.Context, d detection.Detection) error {
	a.logger.Warnf("EMERGENCY [%s] %q confidence=%.2f id=%s", d.Category, d.DetectedPhrase, d.Confidence, d.ID)
	return nil
}
