package keepsake

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML shape of a Keepsake configuration. It is the
// "persisted configuration" source for the Gemini key; the GEMINI_API_KEY
// environment variable is consulted only when the file leaves it empty.
type FileConfig struct {
	DBPath        string `yaml:"db_path"`
	OllamaHost    string `yaml:"ollama_host"`
	OllamaModel   string `yaml:"ollama_model"`
	GeminiAPIKey  string `yaml:"gemini_api_key"`
	DecaySchedule string `yaml:"decay_schedule"`

	Keywords struct {
		Mild     []string `yaml:"mild"`
		Moderate []string `yaml:"moderate"`
		Explicit []string `yaml:"explicit"`
	} `yaml:"keywords"`
	Phrases          []string `yaml:"phrases"`
	EscalationFactor float64  `yaml:"escalation_factor"`
}

// LoadConfig reads a YAML config file and resolves it into a Config. A
// missing file yields the defaults. Keyword lists in the file replace the
// built-in lists entirely rather than merging with them.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		cfg.ApplyDefaults()
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("keepsake: read config: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return cfg, fmt.Errorf("keepsake: parse config yaml: %w", err)
	}

	cfg.DBPath = fc.DBPath
	cfg.OllamaHost = fc.OllamaHost
	cfg.OllamaModel = fc.OllamaModel
	cfg.GeminiAPIKey = fc.GeminiAPIKey
	cfg.DecaySchedule = fc.DecaySchedule

	if len(fc.Keywords.Mild) > 0 || len(fc.Keywords.Moderate) > 0 || len(fc.Keywords.Explicit) > 0 {
		tc := TemperatureConfig{
			Mild:             wordSet(fc.Keywords.Mild),
			Moderate:         wordSet(fc.Keywords.Moderate),
			Explicit:         wordSet(fc.Keywords.Explicit),
			EscalationFactor: fc.EscalationFactor,
		}
		if tc.EscalationFactor == 0 {
			tc.EscalationFactor = defaultEscalationFactor
		}
		for _, p := range fc.Phrases {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return cfg, fmt.Errorf("keepsake: invalid phrase pattern %q: %w", p, err)
			}
			tc.Phrases = append(tc.Phrases, re)
		}
		cfg.Temperature = tc
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

const defaultEscalationFactor = 1.5

// DefaultTemperatureConfig returns the built-in keyword sets, phrase
// patterns, and escalation factor. Deployments normally override the word
// lists from the YAML config.
func DefaultTemperatureConfig() TemperatureConfig {
	return TemperatureConfig{
		Mild: wordSet([]string{
			"cute", "kiss", "hug", "flirt", "beautiful", "gorgeous",
			"date", "wink", "blush", "crush", "sweet", "charming",
		}),
		Moderate: wordSet([]string{
			"sexy", "naughty", "tease", "seduce", "lingerie", "strip",
			"touch", "caress", "whisper", "bite", "desire", "crave",
		}),
		Explicit: wordSet([]string{
			"naked", "nude", "moan", "thrust", "orgasm", "climax",
			"dominate", "submissive", "bondage", "spank",
		}),
		Phrases: []*regexp.Regexp{
			regexp.MustCompile(`(?i)take (it|them|that) off`),
			regexp.MustCompile(`(?i)turn(s|ed)? me on`),
			regexp.MustCompile(`(?i)want you so bad`),
			regexp.MustCompile(`(?i)come (to bed|over here)`),
			regexp.MustCompile(`(?i)what are you wearing`),
		},
		EscalationFactor: defaultEscalationFactor,
	}
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
