package detection

import (
	"testing"

	"github.com/unilert/unilert/pkg/Logger"
)

func TestLexiconScoresBuiltinPhrase(t *testing.T) {
	lex := NewLexicon(newMemStore(), Logger.New(true))

	// "fire" has confidence 0.9 and one word; any transcript containing it
	// scores 1.0 >= 0.72.
	match, ok := lex.Score("there is a fire here")
	if !ok {
		t.Fatal("Expected a phrase match")
	}
	if match.Phrase.Phrase != "fire" {
		t.Errorf("Expected phrase %q, got %q", "fire", match.Phrase.Phrase)
	}
	if match.Phrase.Category != CategoryFire {
		t.Errorf("Expected fire category, got %q", match.Phrase.Category)
	}
	if match.Confidence != 1.0 {
		t.Errorf("Expected full match fraction, got %f", match.Confidence)
	}
}

func TestLexiconNoMatch(t *testing.T) {
	lex := NewLexicon(newMemStore(), Logger.New(true))

	if _, ok := lex.Score("the lecture starts at noon"); ok {
		t.Error("Expected no match for a benign transcript")
	}
	if _, ok := lex.Score(""); ok {
		t.Error("Expected no match for an empty transcript")
	}
}

func TestLexiconFirstMatchWins(t *testing.T) {
	lex := NewLexicon(newMemStore(), Logger.New(true))

	// "help me please" satisfies both "help me" (medical, earlier) and
	// "help me please" (security, later); insertion order decides.
	match, ok := lex.Score("help me please")
	if !ok {
		t.Fatal("Expected a phrase match")
	}
	if match.Phrase.Phrase != "help me" {
		t.Errorf("Expected earliest matching phrase, got %q", match.Phrase.Phrase)
	}
	if match.Phrase.Category != CategoryMedical {
		t.Errorf("Expected medical category, got %q", match.Phrase.Category)
	}
}

func TestLexiconAddAndRemove(t *testing.T) {
	store := newMemStore()
	lex := NewLexicon(store, Logger.New(true))
	defaults := len(lex.Phrases())

	if err := lex.Add("Code Blue", CategoryMedical, 0.9); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if len(lex.Phrases()) != defaults+1 {
		t.Errorf("Expected %d phrases, got %d", defaults+1, len(lex.Phrases()))
	}

	match, ok := lex.Score("code blue at the gym")
	if !ok || match.Phrase.Phrase != "code blue" {
		t.Errorf("Expected custom phrase to fire, got %+v ok=%v", match, ok)
	}

	if !lex.Remove("code blue") {
		t.Error("Expected Remove to report success")
	}
	if _, ok := lex.Score("code blue at the gym"); ok {
		t.Error("Removed phrase must not fire")
	}
	if lex.Remove("code blue") {
		t.Error("Removing twice should report failure")
	}
}

func TestLexiconAddReplacesDuplicate(t *testing.T) {
	lex := NewLexicon(newMemStore(), Logger.New(true))
	before := len(lex.Phrases())

	if err := lex.Add("lockdown", CategorySecurity, 0.9); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := lex.Add("LOCKDOWN", CategoryGeneral, 0.5); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if len(lex.Phrases()) != before+1 {
		t.Errorf("Duplicate add should replace, got %d phrases", len(lex.Phrases()))
	}

	match, ok := lex.Score("lockdown now")
	if !ok {
		t.Fatal("Expected a phrase match")
	}
	if match.Phrase.Category != CategoryGeneral || match.Phrase.Confidence != 0.5 {
		t.Errorf("Expected latest add to win, got %+v", match.Phrase)
	}
}

func TestLexiconRejectsInvalidInput(t *testing.T) {
	lex := NewLexicon(newMemStore(), Logger.New(true))

	if err := lex.Add("   ", CategoryMedical, 0.8); err == nil {
		t.Error("Expected error for blank phrase")
	}
	if err := lex.Add("valid phrase", Category("bogus"), 0.8); err == nil {
		t.Error("Expected error for invalid category")
	}
}

func TestLexiconPersistsOnlyCustomPhrases(t *testing.T) {
	store := newMemStore()
	lex := NewLexicon(store, Logger.New(true))

	if err := lex.Add("evacuate the hall", CategoryFire, 0.85); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	var persisted []Phrase
	if err := store.Load(StoreKeyPhrases, &persisted); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(persisted) != 1 {
		t.Fatalf("Expected only the custom phrase persisted, got %d", len(persisted))
	}
	if persisted[0].Phrase != "evacuate the hall" {
		t.Errorf("Unexpected persisted phrase %q", persisted[0].Phrase)
	}

	// A fresh lexicon over the same store picks the custom phrase back up.
	reloaded := NewLexicon(store, Logger.New(true))
	if _, ok := reloaded.Score("evacuate the hall immediately"); !ok {
		t.Error("Expected reloaded lexicon to score the custom phrase")
	}
}

func TestLexiconPersistsBuiltinOverride(t *testing.T) {
	store := newMemStore()
	lex := NewLexicon(store, Logger.New(true))
	total := len(lex.Phrases())

	if err := lex.Add("sos", CategorySecurity, 0.6); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if len(lex.Phrases()) != total {
		t.Errorf("Override must replace the built-in, got %d phrases", len(lex.Phrases()))
	}

	var persisted []Phrase
	if err := store.Load(StoreKeyPhrases, &persisted); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Phrase != "sos" || persisted[0].Confidence != 0.6 {
		t.Fatalf("Expected overridden built-in persisted, got %+v", persisted)
	}

	// A fresh lexicon over the same store keeps the override.
	reloaded := NewLexicon(store, Logger.New(true))
	match, ok := reloaded.Score("sos")
	if !ok {
		t.Fatal("Expected a phrase match")
	}
	if match.Phrase.Category != CategorySecurity || match.Phrase.Confidence != 0.6 {
		t.Errorf("Expected override to survive reload, got %+v", match.Phrase)
	}
}

func TestLexiconSurvivesStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failing = true

	lex := NewLexicon(store, Logger.New(true))
	if len(lex.Phrases()) == 0 {
		t.Error("Expected default phrases despite store failure")
	}
	if err := lex.Add("shelter in place", CategoryGeneral, 0.9); err != nil {
		t.Errorf("Add should succeed in memory despite store failure: %v", err)
	}
}
