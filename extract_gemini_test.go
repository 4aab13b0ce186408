package keepsake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func geminiReply(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			}},
		},
	}
}

func TestGeminiExtractorSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.0-flash") {
			t.Errorf("wrong model path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query")
		}

		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)

		// All four harm categories must be unblocked.
		settings, _ := req["safetySettings"].([]any)
		if len(settings) != 4 {
			t.Errorf("expected 4 safety settings, got %d", len(settings))
		}
		for _, s := range settings {
			m := s.(map[string]any)
			if m["threshold"] != "BLOCK_NONE" {
				t.Errorf("safety category %v not unblocked", m["category"])
			}
		}

		gen, _ := req["generationConfig"].(map[string]any)
		if gen["responseMimeType"] != "application/json" {
			t.Error("expected strict JSON response mode")
		}

		json.NewEncoder(w).Encode(geminiReply(`[{"type": "hard_limits", "value": "no degradation", "confidence": 95}]`))
	}))
	defer srv.Close()

	e := NewGeminiExtractor("test-key", WithGeminiBaseURL(srv.URL))
	facts, err := e.Extract(context.Background(), "please never degrade me")
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 1 || facts[0].Type != TypeHardLimits {
		t.Fatalf("unexpected facts: %+v", facts)
	}
}

func TestGeminiExtractorProseWrappedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geminiReply(
			"Here you go:\n```json\n[{\"type\": \"interest\", \"value\": \"vinyl\", \"confidence\": 70}]\n```",
		))
	}))
	defer srv.Close()

	e := NewGeminiExtractor("test-key", WithGeminiBaseURL(srv.URL))
	facts, err := e.Extract(context.Background(), "I collect vinyl")
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 1 || facts[0].Value != "vinyl" {
		t.Fatalf("expected rescue parse of fenced reply, got %+v", facts)
	}
}

func TestGeminiExtractorNoAPIKey(t *testing.T) {
	e := NewGeminiExtractor("")
	if _, err := e.Extract(context.Background(), "test"); err == nil {
		t.Error("expected error without api key")
	}
}

func TestGeminiExtractorHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewGeminiExtractor("test-key", WithGeminiBaseURL(srv.URL))
	if _, err := e.Extract(context.Background(), "test"); err == nil {
		t.Error("expected error for HTTP 429")
	}
}

func TestGeminiExtractorEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	e := NewGeminiExtractor("test-key", WithGeminiBaseURL(srv.URL))
	if _, err := e.Extract(context.Background(), "test"); err == nil {
		t.Error("expected error for empty candidates")
	}
}
