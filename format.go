package keepsake

import "strings"

// promptLabels render each memory type as a natural-language lead-in.
// Unknown types fall back to the raw type string.
var promptLabels = map[MemoryType]string{
	TypePersonaName:    "They want to be called",
	TypeSexualDynamic:  "The sexual dynamic is",
	TypeNSFWStyle:      "Their preferred NSFW style is",
	TypeHardLimits:     "They have a HARD LIMIT for",
	TypePleasurePoints: "They specifically love",
	TypeInterest:       "They are interested in",
	TypeFact:           "You know this about them",
	TypeEmotion:        "They are currently feeling",
}

// FormatForPrompt renders facts as a bullet list wrapped in instructions that
// tell the consuming model to treat them as always-known background. Lines
// are deduplicated by exact rendered text. An empty fact list returns an
// empty string, which callers append as-is.
func FormatForPrompt(facts []Fact) string {
	if len(facts) == 0 {
		return ""
	}

	seen := make(map[string]bool)
	var lines []string
	for _, f := range facts {
		label, ok := promptLabels[f.Type]
		if !ok {
			label = string(f.Type)
		}
		line := "- " + label + ": " + f.Value
		if seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
	}

	var b strings.Builder
	b.WriteString("\n\n[PROFILE DATA: For internal context only. NEVER recite these bullet points.]\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n[Always react to this data as if you've ALWAYS known it. Use their name/title frequently.]")
	return b.String()
}
