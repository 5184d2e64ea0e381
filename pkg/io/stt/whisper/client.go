package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/unilert/unilert/pkg/Logger"
	"github.com/unilert/unilert/pkg/audio"
	"github.com/unilert/unilert/pkg/io/device"
	"github.com/unilert/unilert/pkg/io/stt"
)

// transcriptionResponse is the whisper service's JSON shape. Some deployments
// answer with plain text instead; both are handled.
type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Client implements stt.Transcriber against a whisper-webservice endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *Logger.Logger
}

func New(baseURL string, logger *Logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Transcribe posts the frames as one WAV file and returns the recognized
// segment.
func (c *Client) Transcribe(ctx context.Context, frames []device.Frame) (stt.Segment, error) {
	if len(frames) == 0 {
		return stt.Segment{}, fmt.Errorf("no audio frames provided")
	}

	sampleRate := frames[0].SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	var pcm []byte
	for _, f := range frames {
		pcm = append(pcm, f.Data...)
	}
	wavData := audio.EncodeWAV(pcm, sampleRate, 1)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio_file", "audio.wav")
	if err != nil {
		return stt.Segment{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return stt.Segment{}, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return stt.Segment{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	requestURL := fmt.Sprintf("%s/asr?encode=true&task=transcribe&language=en&output=json", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", requestURL, &body)
	if err != nil {
		return stt.Segment{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stt.Segment{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.Segment{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Errorf("whisper service error (status %d): %s", resp.StatusCode, string(responseBody))
		return stt.Segment{}, fmt.Errorf("whisper service returned status %d", resp.StatusCode)
	}

	duration := time.Duration(len(pcm)/2) * time.Second / time.Duration(sampleRate)
	segment := stt.Segment{
		Language:      "en",
		GeneratedAt:   time.Now(),
		AudioDuration: duration,
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		// plain text fallback
		segment.Text = string(responseBody)
		return segment, nil
	}
	segment.Text = parsed.Text
	if parsed.Language != "" {
		segment.Language = parsed.Language
	}

	c.logger.Debugf("whisper transcription: %q (language: %s)", segment.Text, segment.Language)
	return segment, nil
}
