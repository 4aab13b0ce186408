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

// GeminiExtractor is the cloud fallback stage. Implements Extractor.
// Safety filtering is fully disabled: the upstream chat content is adult by
// design and a blocked response would just look like a failed extraction.
type GeminiExtractor struct {
	apiKey  string
	model   string
	baseURL string // Gemini API base URL (overridable for tests)
	client  *http.Client
}

// GeminiOption configures a GeminiExtractor.
type GeminiOption func(*GeminiExtractor)

// WithGeminiBaseURL overrides the API endpoint. Tests point this at httptest.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(e *GeminiExtractor) { e.baseURL = url }
}

// NewGeminiExtractor creates the cloud fallback extractor. An empty apiKey is
// allowed; Extract then fails immediately and the pipeline degrades to zero
// facts.
func NewGeminiExtractor(apiKey string, opts ...GeminiOption) *GeminiExtractor {
	e := &GeminiExtractor{
		apiKey:  apiKey,
		model:   "gemini-2.0-flash",
		baseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name identifies this stage in pipeline logs.
func (e *GeminiExtractor) Name() string { return "gemini" }

// Extract sends the taxonomy instruction plus the utterance, requesting a
// strict JSON response with all safety categories unblocked.
func (e *GeminiExtractor) Extract(ctx context.Context, text string) ([]Fact, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("no gemini api key configured")
	}

	url := e.baseURL + "/" + e.model + ":generateContent?key=" + e.apiKey

	prompt := extractionPrompt + "\n\nUser Message to Extract: \"" + text + "\""

	reqBody := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]any{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens":  1024,
			"temperature":      0.0,
			"responseMimeType": "application/json",
		},
		"safetySettings": []map[string]any{
			{"category": "HARM_CATEGORY_HARASSMENT", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_HATE_SPEECH", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_SEXUALLY_EXPLICIT", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_DANGEROUS_CONTENT", "threshold": "BLOCK_NONE"},
		},
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
		return nil, fmt.Errorf("gemini extract %d: %s", resp.StatusCode, string(body[:min(len(body), 300)]))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	return ParseFactList(geminiResp.Candidates[0].Content.Parts[0].Text), nil
}
