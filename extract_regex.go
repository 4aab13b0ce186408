package keepsake

import (
	"context"
	"errors"
	"regexp"
)

// ErrNoMatch signals that the regex stage found nothing, so the fallback
// chain should continue to the next strategy.
var ErrNoMatch = errors.New("keepsake: no regex match")

// regexFallbackConfidence is the fixed confidence assigned to a regex-derived
// name fact.
const regexFallbackConfidence = 80

// namePatterns recover only persona_name facts; the first pattern that
// matches wins. Every other category is lost on this path — accepted
// degradation when no model is reachable.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:my name is|i'm|i am|call me)\s+([a-z]+)`),
	regexp.MustCompile(`(?i)name\s+is\s+([a-z]+)`),
	regexp.MustCompile(`([A-Z][a-z]+)\s+here`),
}

// RegexExtractor is the offline fallback stage. Implements Extractor.
type RegexExtractor struct{}

// Name identifies this stage in pipeline logs.
func (RegexExtractor) Name() string { return "regex" }

// Extract returns at most one persona_name fact, or ErrNoMatch so the chain
// moves on.
func (RegexExtractor) Extract(_ context.Context, text string) ([]Fact, error) {
	for _, pattern := range namePatterns {
		m := pattern.FindStringSubmatch(text)
		if len(m) > 1 && m[1] != "" {
			return []Fact{{
				Type:       TypePersonaName,
				Value:      m[1],
				Confidence: regexFallbackConfidence,
			}}, nil
		}
	}
	return nil, ErrNoMatch
}
