package detection

import (
	"fmt"
	"strings"
	"sync"

	"github.com/unilert/unilert/pkg/Logger"
)

// Phrase is one trigger entry in the lexicon. Confidence is the per-phrase
// threshold knob, not a measured probability.
type Phrase struct {
	Phrase     string   `json:"phrase"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// defaultPhrases seeds every lexicon. Never persisted; only custom entries
// are written to the store.
var defaultPhrases = []Phrase{
	// Medical emergencies
	{Phrase: "help me", Category: CategoryMedical, Confidence: 0.9},
	{Phrase: "i'm hurt", Category: CategoryMedical, Confidence: 0.95},
	{Phrase: "i need medical help", Category: CategoryMedical, Confidence: 0.95},
	{Phrase: "call an ambulance", Category: CategoryMedical, Confidence: 0.9},
	{Phrase: "medical emergency", Category: CategoryMedical, Confidence: 0.95},
	{Phrase: "i can't breathe", Category: CategoryMedical, Confidence: 0.95},
	{Phrase: "chest pain", Category: CategoryMedical, Confidence: 0.85},
	{Phrase: "heart attack", Category: CategoryMedical, Confidence: 0.9},

	// Security emergencies
	{Phrase: "call security", Category: CategorySecurity, Confidence: 0.9},
	{Phrase: "help me please", Category: CategorySecurity, Confidence: 0.8},
	{Phrase: "someone is attacking me", Category: CategorySecurity, Confidence: 0.95},
	{Phrase: "i'm being followed", Category: CategorySecurity, Confidence: 0.85},
	{Phrase: "intruder", Category: CategorySecurity, Confidence: 0.9},
	{Phrase: "robbery", Category: CategorySecurity, Confidence: 0.9},
	{Phrase: "call the police", Category: CategorySecurity, Confidence: 0.85},

	// Fire emergencies
	{Phrase: "fire", Category: CategoryFire, Confidence: 0.9},
	{Phrase: "smoke", Category: CategoryFire, Confidence: 0.8},
	{Phrase: "building is on fire", Category: CategoryFire, Confidence: 0.95},
	{Phrase: "call fire department", Category: CategoryFire, Confidence: 0.9},

	// General emergencies
	{Phrase: "emergency", Category: CategoryGeneral, Confidence: 0.8},
	{Phrase: "help", Category: CategoryGeneral, Confidence: 0.7},
	{Phrase: "urgent help needed", Category: CategoryGeneral, Confidence: 0.9},
	{Phrase: "call for help", Category: CategoryGeneral, Confidence: 0.8},
	{Phrase: "mayday", Category: CategoryGeneral, Confidence: 0.95},
	{Phrase: "sos", Category: CategoryGeneral, Confidence: 0.95},
}

// PhraseMatch reports a fired phrase for a transcript.
type PhraseMatch struct {
	Phrase     Phrase
	Confidence float64 // computed match fraction, in [0,1]
}

// Lexicon holds the trigger phrases and scores transcripts against them.
// Custom entries are persisted through the injected store; built-ins are not.
type Lexicon struct {
	mu      sync.RWMutex
	phrases []Phrase // insertion-ordered: defaults first, then custom
	custom  int      // count of custom entries at the tail
	store   Store
	logger  *Logger.Logger
}

// NewLexicon seeds the built-in phrases and loads any persisted custom
// entries. A failed load degrades to the defaults with a logged warning.
func NewLexicon(store Store, logger *Logger.Logger) *Lexicon {
	l := &Lexicon{
		phrases: append([]Phrase(nil), defaultPhrases...),
		store:   store,
		logger:  logger,
	}

	var custom []Phrase
	if err := store.Load(StoreKeyPhrases, &custom); err != nil {
		logger.Warnf("failed to load custom phrases, continuing with defaults: %v", err)
		return l
	}
	for _, p := range custom {
		if err := l.add(p); err != nil {
			logger.Warnf("skipping persisted phrase %q: %v", p.Phrase, err)
		}
	}
	return l
}

// Add inserts or replaces a custom phrase. Phrases are lowercased; a phrase
// colliding with an existing entry (case-insensitive) replaces it.
func (l *Lexicon) Add(phrase string, category Category, confidence float64) error {
	if confidence <= 0 || confidence > 1 {
		confidence = 0.8
	}
	if !category.Valid() {
		return fmt.Errorf("invalid category %q", category)
	}
	p := Phrase{Phrase: strings.ToLower(strings.TrimSpace(phrase)), Category: category, Confidence: confidence}
	if p.Phrase == "" {
		return fmt.Errorf("empty phrase")
	}

	l.mu.Lock()
	err := l.add(p)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.persist()
	return nil
}

// add assumes the lock is held (or the lexicon is still private to its
// constructor).
func (l *Lexicon) add(p Phrase) error {
	defaults := len(l.phrases) - l.custom
	for i, existing := range l.phrases {
		if strings.EqualFold(existing.Phrase, p.Phrase) {
			if i < defaults {
				// Overriding a built-in: move it to the custom tail so the
				// override is persisted and survives a reload.
				l.phrases = append(l.phrases[:i], l.phrases[i+1:]...)
				l.phrases = append(l.phrases, p)
				l.custom++
				return nil
			}
			// latest add wins
			l.phrases[i] = p
			return nil
		}
	}
	l.phrases = append(l.phrases, p)
	l.custom++
	return nil
}

// Remove deletes a phrase by exact (case-insensitive) match. Removing a
// built-in is allowed; it simply stops firing for this process and the
// default set reappears on a fresh lexicon.
func (l *Lexicon) Remove(phrase string) bool {
	needle := strings.ToLower(strings.TrimSpace(phrase))

	l.mu.Lock()
	removed := false
	defaults := len(l.phrases) - l.custom
	for i, p := range l.phrases {
		if p.Phrase == needle {
			l.phrases = append(l.phrases[:i], l.phrases[i+1:]...)
			if i >= defaults {
				l.custom--
			}
			removed = true
			break
		}
	}
	l.mu.Unlock()

	if removed {
		l.persist()
	}
	return removed
}

// Phrases returns a copy of the current lexicon in insertion order.
func (l *Lexicon) Phrases() []Phrase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Phrase(nil), l.phrases...)
}

// Score matches a finalized transcript against the lexicon. The first phrase
// (in insertion order) whose word-overlap fraction reaches 0.8x its configured
// confidence fires; at most one match per transcript.
func (l *Lexicon) Score(transcript string) (PhraseMatch, bool) {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(transcript)))
	if len(words) == 0 {
		return PhraseMatch{}, false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, p := range l.phrases {
		fraction := phraseMatchFraction(words, strings.Fields(p.Phrase))
		if fraction >= p.Confidence*0.8 {
			return PhraseMatch{Phrase: p, Confidence: fraction}, true
		}
	}
	return PhraseMatch{}, false
}

// phraseMatchFraction counts phrase words present in the transcript word list,
// matching substrings in either direction so inflections still hit.
func phraseMatchFraction(transcriptWords, phraseWords []string) float64 {
	if len(phraseWords) == 0 {
		return 0
	}
	matches := 0
	for _, pw := range phraseWords {
		for _, tw := range transcriptWords {
			if strings.Contains(tw, pw) || strings.Contains(pw, tw) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(phraseWords))
}

// persist writes the custom tail of the lexicon. Failures are logged; the
// in-memory state stays authoritative for the session.
func (l *Lexicon) persist() {
	l.mu.RLock()
	custom := append([]Phrase(nil), l.phrases[len(l.phrases)-l.custom:]...)
	l.mu.RUnlock()

	if err := l.store.Save(StoreKeyPhrases, custom); err != nil {
		l.logger.Errorf("failed to persist custom phrases: %v", err)
	}
}
