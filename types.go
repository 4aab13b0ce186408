package keepsake

import (
	"time"

	"github.com/charmbracelet/log"
)

// MemoryType is one of the fixed fact categories extracted about a user.
type MemoryType string

const (
	TypePersonaName    MemoryType = "persona_name"    // What to call the user
	TypeSexualDynamic  MemoryType = "sexual_dynamic"  // Role/power preference
	TypeNSFWStyle      MemoryType = "nsfw_style"      // Preferred description style
	TypeHardLimits     MemoryType = "hard_limits"     // Things they never want
	TypePleasurePoints MemoryType = "pleasure_points" // Things they specifically love
	TypeInterest       MemoryType = "interest"        // Non-sexual hobbies
	TypeFact           MemoryType = "fact"            // Other personal info
	TypeEmotion        MemoryType = "emotion"         // Current emotional state
)

// KnownTypes is the closed taxonomy; extracted facts outside it are discarded.
var KnownTypes = map[MemoryType]bool{
	TypePersonaName:    true,
	TypeSexualDynamic:  true,
	TypeNSFWStyle:      true,
	TypeHardLimits:     true,
	TypePleasurePoints: true,
	TypeInterest:       true,
	TypeFact:           true,
	TypeEmotion:        true,
}

// Fact is one extracted, typed, confidence-scored statement about a user.
// On retrieval, Confidence carries the stored memory strength.
type Fact struct {
	Type       MemoryType `json:"type"`
	Value      string     `json:"value"`
	Confidence int        `json:"confidence"`
}

// Memory is the persisted memory record, scoped to a (character, user) pair.
type Memory struct {
	ID              string
	CharacterID     string
	UserID          string
	Type            MemoryType
	Content         string
	Strength        int // decaying confidence/priority score
	MentionedCount  int
	OriginalMessage string
	LastMentionedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const (
	// reinforceBoost is added to a memory's strength each time the same
	// (type, content) fact is re-extracted.
	reinforceBoost = 5

	// minRetrievalStrength excludes faded memories from retrieval without
	// deleting their rows.
	minRetrievalStrength = 10

	// retrievalLimit caps how many facts are loaded for a prompt.
	retrievalLimit = 20

	// minExtractionConfidence filters low-confidence model output.
	minExtractionConfidence = 50
)

// Config holds Keepsake initialization parameters.
type Config struct {
	DBPath        string // Path to SQLite file (default: ./data/keepsake.db)
	OllamaHost    string // Local text-generation server (default: http://127.0.0.1:11434)
	OllamaModel   string // Extraction model (default: mistral)
	GeminiAPIKey  string // Cloud fallback key; GEMINI_API_KEY env is the secondary source
	DecaySchedule string // Cron schedule for the decay sweep (default: @daily)

	Temperature TemperatureConfig

	// Extractors overrides the default fallback chain
	// (Ollama -> regex -> Gemini). Tests substitute fakes here.
	Extractors []Extractor

	// Logger receives swallowed-failure diagnostics. Nil means a default
	// stderr logger with prefix "keepsake".
	Logger *log.Logger
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "./data/keepsake.db"
	}
	if c.OllamaHost == "" {
		c.OllamaHost = "http://127.0.0.1:11434"
	}
	if c.OllamaModel == "" {
		c.OllamaModel = "mistral"
	}
	if c.DecaySchedule == "" {
		c.DecaySchedule = "@daily"
	}
	if c.Temperature.EscalationFactor == 0 {
		c.Temperature = DefaultTemperatureConfig()
	}
}
