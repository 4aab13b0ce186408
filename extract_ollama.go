package keepsake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaExtractor extracts facts via a local Ollama server.
// Implements Extractor. No API key required. This is the primary stage of the
// fallback chain: any transport or HTTP failure passes the utterance on.
type OllamaExtractor struct {
	host   string
	model  string
	client *http.Client
}

// OllamaOption configures an OllamaExtractor.
type OllamaOption func(*OllamaExtractor)

// WithOllamaHost sets the Ollama server URL (default: http://127.0.0.1:11434).
func WithOllamaHost(host string) OllamaOption {
	return func(e *OllamaExtractor) { e.host = host }
}

// NewOllamaExtractor creates the primary extractor against a local Ollama
// instance. The model must be already pulled (e.g., "mistral").
func NewOllamaExtractor(model string, opts ...OllamaOption) *OllamaExtractor {
	e := &OllamaExtractor{
		host:   "http://127.0.0.1:11434",
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name identifies this stage in pipeline logs.
func (e *OllamaExtractor) Name() string { return "ollama" }

// Extract sends the utterance with the taxonomy instruction and parses the
// JSON reply. Zero facts with a nil error is a successful outcome and stops
// the fallback chain.
func (e *OllamaExtractor) Extract(ctx context.Context, text string) ([]Fact, error) {
	url := e.host + "/api/chat"

	reqBody := ollamaChatRequest{
		Model: e.model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: extractionPrompt},
			{Role: "user", Content: text},
		},
		Stream: false,
		Format: "json",
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama extract %d: %s", resp.StatusCode, string(body[:min(len(body), 200)]))
	}

	var ollamaResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return ParseFactList(ollamaResp.Message.Content), nil
}

// --- Ollama Chat API types ---

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   string              `json:"format,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}
