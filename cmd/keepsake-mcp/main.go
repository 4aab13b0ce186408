// keepsake-mcp exposes the keepsake persona memory engine as an MCP stdio
// server.
//
// Environment variables:
//
//	KEEPSAKE_CONFIG   — YAML config path (optional; defaults are built in)
//	KEEPSAKE_DB_PATH  — SQLite database path (overrides config)
//	OLLAMA_HOST       — local text-generation server (overrides config)
//	GEMINI_API_KEY    — cloud fallback key when the config file has none
//
// Usage:
//
//	go install github.com/duskveil/keepsake/cmd/keepsake-mcp
//	keepsake-mcp
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/duskveil/keepsake"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "keepsake"})

	cfg, err := keepsake.LoadConfig(os.Getenv("KEEPSAKE_CONFIG"))
	if err != nil {
		logger.Fatal("load config", "error", err)
	}
	if v := os.Getenv("KEEPSAKE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.OllamaHost = v
	}
	cfg.Logger = logger

	k, err := keepsake.Init(cfg)
	if err != nil {
		logger.Fatal("init", "error", err)
	}
	defer k.Close()

	if err := k.StartDecayScheduler(); err != nil {
		logger.Fatal("decay scheduler", "error", err)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "keepsake-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remember",
		Description: "Extract facts about the user from a chat message and store them for a character/user pair. Falls back to regex and a cloud model when the local model is unreachable.",
	}, rememberHandler(k))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recall",
		Description: "Load the strongest stored facts for a character/user pair, plus a ready-to-append system prompt fragment.",
	}, recallHandler(k))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "temperature",
		Description: "Score a message's conversation heat (0-100) against recent history and derive the response register (sfw / suggestive / explicit).",
	}, temperatureHandler(k))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "decay",
		Description: "Run the daily decay sweep for one character/user pair. Idempotent per day.",
	}, decayHandler(k))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "forget",
		Description: "Delete every stored memory for a character/user pair. User-initiated reset.",
	}, forgetHandler(k))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "inspect",
		Description: "List raw memory rows for a character/user pair, including faded ones below the retrieval floor. Debugging aid.",
	}, inspectHandler(k))

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Fatal("server", "error", err)
	}
}

// --- Input types ---

type rememberInput struct {
	CharacterID string `json:"character_id"      jsonschema:"Persona the memory belongs to"`
	UserID      string `json:"user_id,omitempty" jsonschema:"User the fact is about (default: user-local)"`
	Text        string `json:"text"              jsonschema:"Raw user message to extract facts from"`
}

type recallInput struct {
	CharacterID string `json:"character_id"      jsonschema:"Persona whose memories to load"`
	UserID      string `json:"user_id,omitempty" jsonschema:"User the facts are about (default: user-local)"`
}

type temperatureInput struct {
	Message string `json:"message"           jsonschema:"Incoming message to score"`
	History []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		Heat    int    `json:"heat,omitempty"`
	} `json:"history,omitempty" jsonschema:"Prior turns with previously recorded heat scores"`
}

type pairInput struct {
	CharacterID string `json:"character_id"      jsonschema:"Persona scope"`
	UserID      string `json:"user_id,omitempty" jsonschema:"User scope (default: user-local)"`
}

const defaultUserID = "user-local"

// --- Handlers ---

func rememberHandler(k *keepsake.Keepsake) func(context.Context, *mcp.CallToolRequest, rememberInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input rememberInput) (*mcp.CallToolResult, any, error) {
		if input.CharacterID == "" || input.Text == "" {
			return textResult(`{"error": "character_id and text are required"}`), nil, nil
		}
		userID := input.UserID
		if userID == "" {
			userID = defaultUserID
		}

		facts := k.ExtractMemories(ctx, input.Text)
		k.SaveMemories(ctx, input.CharacterID, userID, facts, input.Text)

		return textResult(jsonString(map[string]any{
			"stored": len(facts),
			"facts":  facts,
		})), nil, nil
	}
}

func recallHandler(k *keepsake.Keepsake) func(context.Context, *mcp.CallToolRequest, recallInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input recallInput) (*mcp.CallToolResult, any, error) {
		if input.CharacterID == "" {
			return textResult(`{"error": "character_id is required"}`), nil, nil
		}
		userID := input.UserID
		if userID == "" {
			userID = defaultUserID
		}

		facts := k.LoadMemories(ctx, input.CharacterID, userID)
		return textResult(jsonString(map[string]any{
			"facts":           facts,
			"prompt_fragment": keepsake.FormatForPrompt(facts),
		})), nil, nil
	}
}

func temperatureHandler(k *keepsake.Keepsake) func(context.Context, *mcp.CallToolRequest, temperatureInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input temperatureInput) (*mcp.CallToolResult, any, error) {
		if input.Message == "" {
			return textResult(`{"error": "message is required"}`), nil, nil
		}

		history := make([]keepsake.HistoryMessage, len(input.History))
		for i, h := range input.History {
			history[i] = keepsake.HistoryMessage{Role: h.Role, Content: h.Content, Heat: h.Heat}
		}

		score, mood := k.Temperature(input.Message, history)
		return textResult(jsonString(map[string]any{
			"score":          score,
			"mood":           mood,
			"keywords_found": keepsake.MatchedKeywords(input.Message, k.TemperatureConfig()),
			"meter":          keepsake.Meter(score),
		})), nil, nil
	}
}

func decayHandler(k *keepsake.Keepsake) func(context.Context, *mcp.CallToolRequest, pairInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input pairInput) (*mcp.CallToolResult, any, error) {
		if input.CharacterID == "" {
			return textResult(`{"error": "character_id is required"}`), nil, nil
		}
		userID := input.UserID
		if userID == "" {
			userID = defaultUserID
		}
		k.Decay(ctx, input.CharacterID, userID)
		return textResult(`{"status": "swept"}`), nil, nil
	}
}

func forgetHandler(k *keepsake.Keepsake) func(context.Context, *mcp.CallToolRequest, pairInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input pairInput) (*mcp.CallToolResult, any, error) {
		if input.CharacterID == "" {
			return textResult(`{"error": "character_id is required"}`), nil, nil
		}
		userID := input.UserID
		if userID == "" {
			userID = defaultUserID
		}
		k.Clear(ctx, input.CharacterID, userID)
		return textResult(`{"status": "cleared"}`), nil, nil
	}
}

func inspectHandler(k *keepsake.Keepsake) func(context.Context, *mcp.CallToolRequest, pairInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input pairInput) (*mcp.CallToolResult, any, error) {
		if input.CharacterID == "" {
			return textResult(`{"error": "character_id is required"}`), nil, nil
		}
		userID := input.UserID
		if userID == "" {
			userID = defaultUserID
		}

		memories := k.Inspect(ctx, input.CharacterID, userID)
		out := make([]map[string]any, len(memories))
		for i, m := range memories {
			out[i] = map[string]any{
				"id":                m.ID,
				"type":              m.Type,
				"content":           m.Content,
				"strength":          m.Strength,
				"mentioned_count":   m.MentionedCount,
				"original_message":  m.OriginalMessage,
				"last_mentioned_at": m.LastMentionedAt.Format(time.RFC3339),
				"created_at":        m.CreatedAt.Format(time.RFC3339),
			}
		}
		return textResult(jsonString(out)), nil, nil
	}
}

// --- Helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonString(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal: %v"}`, err)
	}
	return string(data)
}
