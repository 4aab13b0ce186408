package keepsake

import (
	"strings"
	"testing"
)

func TestFormatForPromptEmpty(t *testing.T) {
	if got := FormatForPrompt(nil); got != "" {
		t.Errorf("empty fact list must render empty string, got %q", got)
	}
	if got := FormatForPrompt([]Fact{}); got != "" {
		t.Errorf("empty fact list must render empty string, got %q", got)
	}
}

func TestFormatForPromptLabels(t *testing.T) {
	facts := []Fact{
		{Type: TypePersonaName, Value: "Master", Confidence: 80},
		{Type: TypeHardLimits, Value: "degradation", Confidence: 90},
		{Type: TypeEmotion, Value: "lonely", Confidence: 60},
	}
	out := FormatForPrompt(facts)

	for _, want := range []string{
		"- They want to be called: Master",
		"- They have a HARD LIMIT for: degradation",
		"- They are currently feeling: lonely",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "PROFILE DATA") {
		t.Error("output missing preamble")
	}
	if !strings.Contains(out, "ALWAYS known it") {
		t.Error("output missing postamble")
	}
}

func TestFormatForPromptDeduplicates(t *testing.T) {
	facts := []Fact{
		{Type: TypeInterest, Value: "hiking", Confidence: 80},
		{Type: TypeInterest, Value: "hiking", Confidence: 95},
	}
	out := FormatForPrompt(facts)
	if strings.Count(out, "hiking") != 1 {
		t.Errorf("identical rendered lines must collapse:\n%s", out)
	}
}

func TestFormatForPromptUnknownTypeFallsBack(t *testing.T) {
	out := FormatForPrompt([]Fact{{Type: MemoryType("quirk"), Value: "hums while typing", Confidence: 70}})
	if !strings.Contains(out, "- quirk: hums while typing") {
		t.Errorf("unknown type must use raw type as label:\n%s", out)
	}
}

func TestFormatForPromptIdempotent(t *testing.T) {
	facts := []Fact{
		{Type: TypePersonaName, Value: "John", Confidence: 80},
		{Type: TypeInterest, Value: "chess", Confidence: 60},
	}
	if FormatForPrompt(facts) != FormatForPrompt(facts) {
		t.Error("formatting the same facts twice must yield identical output")
	}
}
