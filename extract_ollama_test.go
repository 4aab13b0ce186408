package keepsake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaExtractorSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("wrong path: %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("wrong content type: %s", r.Header.Get("Content-Type"))
		}

		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "mistral" {
			t.Errorf("expected mistral, got %s", req.Model)
		}
		if req.Stream {
			t.Error("streaming must be disabled")
		}
		if req.Format != "json" {
			t.Errorf("expected json format, got %s", req.Format)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}
		if req.Messages[1].Content != "I love hiking" {
			t.Errorf("wrong user message: %s", req.Messages[1].Content)
		}

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaChatMessage{
				Role:    "assistant",
				Content: `[{"type": "interest", "value": "hiking", "confidence": 85}]`,
			},
		})
	}))
	defer srv.Close()

	e := NewOllamaExtractor("mistral", WithOllamaHost(srv.URL))
	facts, err := e.Extract(context.Background(), "I love hiking")
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 1 || facts[0].Value != "hiking" {
		t.Fatalf("unexpected facts: %+v", facts)
	}
}

func TestOllamaExtractorEmptyIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaChatMessage{Role: "assistant", Content: "[]"},
		})
	}))
	defer srv.Close()

	e := NewOllamaExtractor("mistral", WithOllamaHost(srv.URL))
	facts, err := e.Extract(context.Background(), "nothing interesting")
	if err != nil {
		t.Fatalf("empty fact list must not error: %v", err)
	}
	if len(facts) != 0 {
		t.Fatalf("expected no facts, got %+v", facts)
	}
}

func TestOllamaExtractorHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaExtractor("nonexistent", WithOllamaHost(srv.URL))
	if _, err := e.Extract(context.Background(), "test"); err == nil {
		t.Error("expected error for HTTP 404")
	}
}

func TestOllamaExtractorConnectionRefused(t *testing.T) {
	e := NewOllamaExtractor("mistral", WithOllamaHost("http://127.0.0.1:1"))
	if _, err := e.Extract(context.Background(), "test"); err == nil {
		t.Error("expected connection error")
	}
}

func TestOllamaExtractorDefaults(t *testing.T) {
	e := NewOllamaExtractor("mistral")
	if e.host != "http://127.0.0.1:11434" {
		t.Errorf("expected default host, got %s", e.host)
	}
	if e.model != "mistral" {
		t.Errorf("expected model mistral, got %s", e.model)
	}
}
