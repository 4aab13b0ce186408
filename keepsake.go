package keepsake

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
)

// Keepsake is the persona memory engine. Every public operation swallows
// external-service and store failures internally: the worst observable
// outcome for a caller is an empty result or a no-op write.
type Keepsake struct {
	store      *Store
	extractors []Extractor
	config     Config
	logger     *log.Logger
	sweeper    *decayScheduler
}

// Init creates a Keepsake instance, runs DB migrations, and wires the
// extraction fallback chain. The decay scheduler is not started here; call
// StartDecayScheduler, or drive Decay/DecayAll from your own scheduler.
func Init(cfg Config) (*Keepsake, error) {
	cfg.ApplyDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "keepsake"})
	}

	store, err := NewStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	extractors := cfg.Extractors
	if extractors == nil {
		apiKey := cfg.GeminiAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		extractors = []Extractor{
			NewOllamaExtractor(cfg.OllamaModel, WithOllamaHost(cfg.OllamaHost)),
			RegexExtractor{},
			NewGeminiExtractor(apiKey),
		}
	}

	k := &Keepsake{
		store:      store,
		extractors: extractors,
		config:     cfg,
		logger:     logger,
	}

	logger.Info("initialized", "db", cfg.DBPath, "extractors", len(extractors))
	return k, nil
}

// ExtractMemories runs the fallback chain over a raw utterance. The first
// strategy that succeeds wins, even with zero facts. If every strategy fails
// the result degrades to an empty list; extraction never errors for callers.
func (k *Keepsake) ExtractMemories(ctx context.Context, text string) []Fact {
	for _, e := range k.extractors {
		facts, err := e.Extract(ctx, text)
		if err != nil {
			k.logger.Warn("extractor failed, falling back", "stage", e.Name(), "error", err)
			continue
		}
		if len(facts) > 0 {
			k.logger.Debug("extracted facts", "stage", e.Name(), "count", len(facts))
		}
		return facts
	}
	k.logger.Warn("all extraction stages failed", "stages", len(k.extractors))
	return nil
}

// SaveMemories persists extracted facts for a (character, user) pair. Each
// fact is written independently: one failure is logged and does not abort the
// rest of the batch. Missing identifiers or an empty batch are no-ops.
func (k *Keepsake) SaveMemories(ctx context.Context, characterID, userID string, facts []Fact, originalMessage string) {
	if characterID == "" || userID == "" || len(facts) == 0 {
		return
	}

	for _, fact := range facts {
		if err := k.store.SaveFact(ctx, characterID, userID, fact, originalMessage); err != nil {
			k.logger.Error("save memory failed", "type", fact.Type, "value", fact.Value, "error", err)
		}
	}
}

// LoadMemories returns the pair's strongest recent facts for prompt
// injection, confidence set to the current stored strength. Errors degrade to
// an empty list.
func (k *Keepsake) LoadMemories(ctx context.Context, characterID, userID string) []Fact {
	if characterID == "" || userID == "" {
		return nil
	}

	memories, err := k.store.LoadStrongest(ctx, characterID, userID, minRetrievalStrength, retrievalLimit)
	if err != nil {
		k.logger.Error("load memories failed", "character", characterID, "user", userID, "error", err)
		return nil
	}

	facts := make([]Fact, len(memories))
	for i, m := range memories {
		facts[i] = Fact{Type: m.Type, Value: m.Content, Confidence: m.Strength}
	}
	return facts
}

// Inspect returns the raw memory rows for a pair, including rows below the
// retrieval floor. Debugging surface; errors degrade to an empty list.
func (k *Keepsake) Inspect(ctx context.Context, characterID, userID string) []Memory {
	if characterID == "" || userID == "" {
		return nil
	}
	memories, err := k.store.AllForPair(ctx, characterID, userID)
	if err != nil {
		k.logger.Error("inspect failed", "character", characterID, "user", userID, "error", err)
		return nil
	}
	return memories
}

// Decay applies the daily decay sweep to one pair. Errors are logged, not
// returned.
func (k *Keepsake) Decay(ctx context.Context, characterID, userID string) {
	if characterID == "" || userID == "" {
		return
	}
	n, err := k.store.RunDecaySweep(ctx, characterID, userID)
	if err != nil {
		k.logger.Error("decay sweep failed", "character", characterID, "user", userID, "error", err)
		return
	}
	if n > 0 {
		k.logger.Info("decay sweep", "character", characterID, "user", userID, "decayed", n)
	}
}

// DecayAll sweeps every (character, user) pair with stored memories.
func (k *Keepsake) DecayAll(ctx context.Context) {
	pairs, err := k.store.ActivePairs(ctx)
	if err != nil {
		k.logger.Error("decay sweep: list pairs failed", "error", err)
		return
	}
	for _, p := range pairs {
		k.Decay(ctx, p.CharacterID, p.UserID)
	}
}

// Clear deletes every memory for a pair. User-initiated reset.
func (k *Keepsake) Clear(ctx context.Context, characterID, userID string) {
	if characterID == "" || userID == "" {
		return
	}
	n, err := k.store.ClearPair(ctx, characterID, userID)
	if err != nil {
		k.logger.Error("clear failed", "character", characterID, "user", userID, "error", err)
		return
	}
	k.logger.Info("cleared memories", "character", characterID, "user", userID, "deleted", n)
}

// Temperature scores a message against this instance's keyword configuration
// and returns the score with its derived mood.
func (k *Keepsake) Temperature(message string, history []HistoryMessage) (int, Mood) {
	score := Score(message, history, k.config.Temperature)
	return score, MoodFor(score)
}

// TemperatureConfig returns this instance's resolved keyword configuration.
func (k *Keepsake) TemperatureConfig() TemperatureConfig {
	return k.config.Temperature
}

// Store exposes the underlying store for tests and admin tooling.
func (k *Keepsake) Store() *Store {
	return k.store
}

// Close stops the decay scheduler (if started) and closes the database.
func (k *Keepsake) Close() error {
	if k.sweeper != nil {
		k.sweeper.stop()
	}
	return k.store.Close()
}
