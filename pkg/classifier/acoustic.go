package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/unilert/unilert/internal/domains/detection"
	"github.com/unilert/unilert/pkg/Logger"
	"github.com/unilert/unilert/pkg/audio"
)

// emergencyLabels maps acoustic model labels to confidence multipliers.
// Labels outside this table score zero from the acoustic path.
var emergencyLabels = map[string]float64{
	"scream":         1.0,
	"cry":            0.8,
	"alarm":          1.0,
	"siren":          0.9,
	"glass_breaking": 0.85,
	"gunshot":        1.0,
	"shout":          0.7,
}

// labelScore is one entry of the backend's ranked label output.
type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// AcousticClient scores audio windows against a remote sound classification
// service. The service takes a mono 16-bit WAV and returns ranked labels.
type AcousticClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *Logger.Logger
}

func NewAcousticClient(baseURL string, timeout time.Duration, logger *Logger.Logger) *AcousticClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AcousticClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ClassifyAudio posts the window as WAV and folds the ranked labels into a
// single emergency confidence. Returns an error when the backend is
// unreachable or misbehaves; the caller decides whether to degrade.
func (c *AcousticClient) ClassifyAudio(ctx context.Context, samples []float64, sampleRate int) (detection.AcousticScore, error) {
	if c.baseURL == "" {
		return detection.AcousticScore{}, fmt.Errorf("no acoustic backend configured")
	}
	if len(samples) == 0 {
		return detection.AcousticScore{}, fmt.Errorf("no samples provided")
	}

	wavData := audio.EncodeWAV(audio.EncodePCM16(samples), sampleRate, 1)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio_file", "window.wav")
	if err != nil {
		return detection.AcousticScore{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return detection.AcousticScore{}, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return detection.AcousticScore{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/classify", &body)
	if err != nil {
		return detection.AcousticScore{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return detection.AcousticScore{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return detection.AcousticScore{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return detection.AcousticScore{}, fmt.Errorf("acoustic service returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	var labels []labelScore
	if err := json.Unmarshal(responseBody, &labels); err != nil {
		return detection.AcousticScore{}, fmt.Errorf("failed to decode response: %w", err)
	}

	best := detection.AcousticScore{}
	for _, ls := range labels {
		weight, ok := emergencyLabels[ls.Label]
		if !ok {
			continue
		}
		if score := ls.Score * weight; score > best.Confidence {
			best = detection.AcousticScore{Confidence: score, Label: ls.Label}
		}
	}

	c.logger.Debugf("acoustic classification: label=%q confidence=%.3f (%d labels returned)",
		best.Label, best.Confidence, len(labels))
	return best, nil
}
