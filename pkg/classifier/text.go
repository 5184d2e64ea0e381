package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unilert/unilert/internal/domains/detection"
	"github.com/unilert/unilert/pkg/Logger"
)

// distressEmotions maps emotion labels from the text backend to confidence
// multipliers. Neutral and positive emotions contribute nothing.
var distressEmotions = map[string]float64{
	"fear":    1.0,
	"anger":   0.7,
	"sadness": 0.7,
}

// urgencyKeywords boost the emotion score when present in the transcript.
// Category resolution for the fused detection happens downstream; the hint
// here only breaks ties.
var urgencyKeywords = map[string]detection.Category{
	"help":      detection.CategoryGeneral,
	"emergency": detection.CategoryGeneral,
	"fire":      detection.CategoryFire,
	"police":    detection.CategorySecurity,
	"ambulance": detection.CategoryMedical,
	"hurt":      detection.CategoryMedical,
	"attack":    detection.CategorySecurity,
}

// TextClient scores transcripts against a remote emotion classification
// service.
type TextClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *Logger.Logger
}

func NewTextClient(baseURL string, timeout time.Duration, logger *Logger.Logger) *TextClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TextClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ClassifyText posts the transcript and folds the emotion labels plus keyword
// hits into one emergency confidence.
func (c *TextClient) ClassifyText(ctx context.Context, transcript string) (detection.TextScore, error) {
	if c.baseURL == "" {
		return detection.TextScore{}, fmt.Errorf("no text backend configured")
	}
	if strings.TrimSpace(transcript) == "" {
		return detection.TextScore{Category: detection.CategoryGeneral}, nil
	}

	payload, err := json.Marshal(map[string]string{"text": transcript})
	if err != nil {
		return detection.TextScore{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/classify", bytes.NewReader(payload))
	if err != nil {
		return detection.TextScore{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return detection.TextScore{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return detection.TextScore{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return detection.TextScore{}, fmt.Errorf("text service returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	var labels []labelScore
	if err := json.Unmarshal(responseBody, &labels); err != nil {
		return detection.TextScore{}, fmt.Errorf("failed to decode response: %w", err)
	}

	var emotionScore float64
	for _, ls := range labels {
		if weight, ok := distressEmotions[ls.Label]; ok {
			if score := ls.Score * weight; score > emotionScore {
				emotionScore = score
			}
		}
	}

	category := detection.CategoryGeneral
	var keywordBoost float64
	lower := strings.ToLower(transcript)
	for kw, cat := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			keywordBoost = 0.3
			if cat != detection.CategoryGeneral {
				category = cat
			}
		}
	}

	confidence := emotionScore + keywordBoost
	if confidence > 1 {
		confidence = 1
	}

	c.logger.Debugf("text classification: confidence=%.3f category=%s", confidence, category)
	return detection.TextScore{Confidence: confidence, Category: category}, nil
}
