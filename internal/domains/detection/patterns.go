package detection

import (
	"strings"

	"github.com/unilert/unilert/pkg/audio"
)

// signature describes the acoustic/textual fingerprint of one emergency sound
// class. Matching awards partial credit for the spectral band, the intensity
// floor, and each trigger keyword found in the transcript.
type signature struct {
	Label    string
	Category Category
	MinFreq  float64 // Hz
	MaxFreq  float64 // Hz
	// Intensity is the RMS energy floor for full band credit.
	Intensity float64
	Keywords  []string
}

// signatures is iterated in declaration order; the first signature to reach
// the best score wins ties, so the order itself is part of the contract.
var signatures = []signature{
	{
		Label:     "scream",
		Category:  CategorySecurity,
		MinFreq:   200,
		MaxFreq:   4000,
		Intensity: 0.7,
		Keywords:  []string{"help", "emergency", "fire", "call", "police", "ambulance"},
	},
	{
		Label:     "fire_alarm",
		Category:  CategoryFire,
		MinFreq:   2000,
		MaxFreq:   4000,
		Intensity: 0.8,
		Keywords:  []string{"fire", "alarm", "smoke", "evacuation"},
	},
	{
		Label:     "breaking_glass",
		Category:  CategorySecurity,
		MinFreq:   3000,
		MaxFreq:   8000,
		Intensity: 0.6,
		Keywords:  []string{"break", "glass", "window", "crash"},
	},
	{
		Label:     "distress_call",
		Category:  CategoryGeneral,
		MinFreq:   100,
		MaxFreq:   3000,
		Intensity: 0.8,
		Keywords:  []string{"help", "stop", "no", "emergency", "call", "911"},
	},
	{
		Label:     "gunshot",
		Category:  CategorySecurity,
		MinFreq:   200,
		MaxFreq:   6000,
		Intensity: 0.9,
		Keywords:  []string{"shot", "gun", "shooting", "shots"},
	},
}

// PatternMatch is the outcome of scoring features against the signature table.
type PatternMatch struct {
	Score    float64
	Label    string
	Category Category
}

// MatchPatterns scores features (and an optional transcript) against every
// signature and returns the strongest match. Scores are capped at 1.0.
func MatchPatterns(features audio.Features, transcript string) PatternMatch {
	lower := strings.ToLower(transcript)
	best := PatternMatch{Label: "general_emergency", Category: CategoryGeneral}

	for _, sig := range signatures {
		var score float64
		if features.SpectralCentroid >= sig.MinFreq && features.SpectralCentroid <= sig.MaxFreq {
			score += 0.3
		}
		if features.Energy >= sig.Intensity {
			score += 0.3
		}
		for _, kw := range sig.Keywords {
			if strings.Contains(lower, kw) {
				score += 0.4
			}
		}
		if score > 1.0 {
			score = 1.0
		}
		if score > best.Score {
			best = PatternMatch{Score: score, Label: sig.Label, Category: sig.Category}
		}
	}
	return best
}

// ClassifyEmergencyType resolves the type label reported with a positive
// detection. It re-scores with a tighter intensity match than MatchPatterns:
// proximity to the signature's expected intensity counts, not just exceeding
// it, which separates e.g. an alarm tone from a scream at similar energy.
func ClassifyEmergencyType(features audio.Features, transcript string) PatternMatch {
	lower := strings.ToLower(transcript)
	best := PatternMatch{Label: "general_emergency", Category: CategoryGeneral}

	for _, sig := range signatures {
		var score float64
		if features.SpectralCentroid >= sig.MinFreq && features.SpectralCentroid <= sig.MaxFreq {
			score += 0.4
		}
		if diff := features.Energy - sig.Intensity; diff > -0.2 && diff < 0.2 {
			score += 0.3
		}
		for _, kw := range sig.Keywords {
			if strings.Contains(lower, kw) {
				score += 0.3
			}
		}
		if score > best.Score {
			best = PatternMatch{Score: score, Label: sig.Label, Category: sig.Category}
		}
	}
	return best
}

// CountKeywordHits counts signature keywords present in the text, used by the
// rule-based fallback scorer.
func CountKeywordHits(text string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, sig := range signatures {
		for _, kw := range sig.Keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
	}
	return hits
}
