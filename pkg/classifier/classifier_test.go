package classifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/unilert/unilert/internal/domains/detection"
	"github.com/unilert/unilert/pkg/Logger"
)

func TestAcousticClientFoldsLabels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"label":"speech","score":0.9},{"label":"scream","score":0.6},{"label":"cry","score":0.5}]`))
	}))
	defer srv.Close()

	client := NewAcousticClient(srv.URL, 0, Logger.New(true))
	score, err := client.ClassifyAudio(context.Background(), []float64{0.1, -0.1, 0.2}, 16000)
	if err != nil {
		t.Fatalf("ClassifyAudio failed: %v", err)
	}

	// scream at 0.6 outweighs cry at 0.5*0.8; speech is ignored.
	if score.Label != "scream" {
		t.Errorf("Expected scream label, got %q", score.Label)
	}
	if score.Confidence != 0.6 {
		t.Errorf("Expected confidence 0.6, got %f", score.Confidence)
	}
}

func TestAcousticClientBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewAcousticClient(srv.URL, 0, Logger.New(true))
	if _, err := client.ClassifyAudio(context.Background(), []float64{0.1}, 16000); err == nil {
		t.Error("Expected error from failing backend")
	}
}

func TestAcousticClientUnconfigured(t *testing.T) {
	client := NewAcousticClient("", 0, Logger.New(true))
	if _, err := client.ClassifyAudio(context.Background(), []float64{0.1}, 16000); err == nil {
		t.Error("Expected error without a configured backend")
	}
}

func TestTextClientEmotionAndKeywords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"label":"fear","score":0.6},{"label":"joy","score":0.9}]`))
	}))
	defer srv.Close()

	client := NewTextClient(srv.URL, 0, Logger.New(true))
	score, err := client.ClassifyText(context.Background(), "someone call an ambulance")
	if err != nil {
		t.Fatalf("ClassifyText failed: %v", err)
	}

	// fear 0.6 plus the 0.3 keyword boost; joy contributes nothing.
	if score.Confidence < 0.89 || score.Confidence > 0.91 {
		t.Errorf("Expected confidence near 0.9, got %f", score.Confidence)
	}
	if score.Category != detection.CategoryMedical {
		t.Errorf("Expected medical category hint, got %q", score.Category)
	}
}

func TestTextClientEmptyTranscript(t *testing.T) {
	client := NewTextClient("http://unused", 0, Logger.New(true))
	score, err := client.ClassifyText(context.Background(), "   ")
	if err != nil {
		t.Fatalf("ClassifyText failed: %v", err)
	}
	if score.Confidence != 0 {
		t.Errorf("Empty transcript must score zero, got %f", score.Confidence)
	}
}
