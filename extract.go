package keepsake

import (
	"context"
	"encoding/json"
	"regexp"
)

// extractionPrompt is the category-taxonomy instruction shared by every
// model-backed extractor. The model is asked for bare JSON; ParseFactList
// copes when it wraps the answer in prose or fences anyway.
const extractionPrompt = `You are a memory extraction system.
Task: Analyze the USER's message and extract key facts about them for a permanent profile.

Focus on these CATEGORIES:
1. persona_name: What you should call the user (e.g. Master, John, Sir).
2. sexual_dynamic: Their role/preference (e.g. Dominant, Submissive, Owner, Switch).
3. nsfw_style: How they like descriptions (e.g. Raw/Dirty, Romantic, Soft, Explicit).
4. hard_limits: Things they HATE or never want to happen.
5. pleasure_points: Things they LOVE or crave (e.g. hair pulling, being called x).
6. interest: General non-sexual hobbies.
7. fact: Other personal info (job, location, etc).
8. emotion: How they are feeling right now.

Return ONLY a JSON array of objects. No markdown, no text.
Format: [{"type": "category", "value": "extracted text", "confidence": 0-100}]

Only return facts with >50 confidence. If nothing relevant, return [].`

// Extractor pulls typed facts from a raw user utterance.
// A nil error means the strategy succeeded, even with zero facts; an error
// hands the utterance to the next strategy in the chain.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Fact, error)
	Name() string
}

// bracketRe grabs the first [...] substring when a model buries its JSON in
// prose.
var bracketRe = regexp.MustCompile(`\[[\s\S]*\]`)

// ParseFactList parses model output into facts. It tries a direct JSON parse,
// then rescues the first bracketed substring, then gives up with an empty
// list. It never returns an error: unparseable output is zero facts.
// Facts with confidence <= 50 or a type outside the taxonomy are dropped.
func ParseFactList(text string) []Fact {
	var raw []Fact
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		match := bracketRe.FindString(text)
		if match == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(match), &raw); err != nil {
			return nil
		}
	}

	var facts []Fact
	for _, f := range raw {
		if f.Confidence <= minExtractionConfidence {
			continue
		}
		if !KnownTypes[f.Type] {
			continue
		}
		facts = append(facts, f)
	}
	return facts
}
