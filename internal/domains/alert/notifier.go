package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/unilert/unilert/pkg/Logger"
)

// HTTPNotifier posts alerts to the campus notification service.
type HTTPNotifier struct {
	url        string
	httpClient *http.Client
	logger     *Logger.Logger
}

func NewHTTPNotifier(url string, timeout time.Duration, logger *Logger.Logger) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, alert Alert) error {
	if n.url == "" {
		return fmt.Errorf("no notifier endpoint configured")
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notifier returned status %d: %s", resp.StatusCode, string(body))
	}

	n.logger.Infof("alert %s delivered to roles %v", alert.Detection.ID, alert.Roles)
	return nil
}
