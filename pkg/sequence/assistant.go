// Package sequence implements the AI diagram assistant. User prompts are sent
// to Cloudflare Workers AI together with the current sequence and chat
// history; the model answers with an updated DSL sequence.
package sequence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const systemRules = `
You are a Sequence Diagram Assistant.
You MUST always return ONLY a valid JSON object with the following exact structure:

{
  "answer": "<reply to the user in natural language>",
  "sequence": "<full DSL sequence as a single string, or '' if unchanged/none>"
}

## Rules:
1. Strictly output valid JSON. No extra text, no markdown formatting, no commentary outside the JSON.
2. "answer" should be a clear, human-readable response that addresses the user’s request.
3. "sequence" must always contain the ENTIRE sequence DSL text (not just the new part), or '' if no sequence is relevant.
4. The sequence must follow this DSL specification:
   - Comments start with "##".
   - Messages follow: participant arrow participant : message_text
   - Participants can be quoted ("...") or unquoted.
   - Arrows: "->" or "-->".
   - Whitespace around arrows and colons is optional.
5. If there is an existing sequence, update it accordingly while preserving valid DSL formatting.
6. If the user’s request does not require a sequence update, return the existing sequence unchanged.
7. Never invent participants or messages unless explicitly requested or implied by the user.
8. Always keep the DSL valid and consistent with previous steps.

## Examples:

User: "Alice says hi to Bob"
Response:
{
  "answer": "I added Alice greeting Bob.",
  "sequence": "Alice -> Bob: Hi"
}

User: "Add a database query from Client 1 to Database Node 2"
Existing sequence:
Alice -> Bob: Hi
Response:
{
  "answer": "I added a query from Client 1 to Database Node 2.",
  "sequence": "Alice -> Bob: Hi\nClient 1 -> \"Database Node 2\": Query"
}

User: "Just explain what this means"
Existing sequence:
Alice -> Bob: Hi
Response:
{
  "answer": "This shows Alice sending a greeting message to Bob.",
  "sequence": "Alice -> Bob: Hi"
}
`

// PreviousPrompt is one earlier exchange, replayed as context.
type PreviousPrompt struct {
	Prompt        string `json:"prompt"`
	ModelResponse string `json:"model_response"`
	NewSequence   string `json:"new_sequence"`
}

// ModelResult is the model's structured reply.
type ModelResult struct {
	Answer   string `json:"answer"`
	Sequence string `json:"sequence"`
}

// Assistant talks to the model.
type Assistant interface {
	Prompt(ctx context.Context, existingSequence, prompt string, previous []PreviousPrompt) (*ModelResult, error)
}

// WorkersAIConfig configures the Cloudflare Workers AI client.
type WorkersAIConfig struct {
	AccountID string
	APIToken  string
	Model     string
	BaseURL   string
}

// WorkersAI is the Cloudflare Workers AI assistant client.
type WorkersAI struct {
	config WorkersAIConfig
	client *http.Client
}

// NewWorkersAI creates the client. BaseURL may be empty to use the production
// Cloudflare API.
func NewWorkersAI(config WorkersAIConfig) *WorkersAI {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.cloudflare.com/client/v4"
	}
	if config.Model == "" {
		config.Model = "@cf/openai/gpt-oss-20b"
	}
	return &WorkersAI{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type responsesPayload struct {
	Model           string           `json:"model"`
	Input           []promptMessage  `json:"input"`
	Temperature     float64          `json:"temperature"`
	TopP            float64          `json:"top_p"`
	MaxOutputTokens int              `json:"max_output_tokens"`
	Reasoning       reasoningOptions `json:"reasoning"`
	ResponseFormat  responseFormat   `json:"response_format"`
}

type promptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type reasoningOptions struct {
	Effort string `json:"effort"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

// sequenceSchema constrains the model output. Only "answer" is required; the
// model may omit the sequence when no update is needed.
var sequenceSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"answer": {"type": "string", "description": "Chatty but concise response"},
		"sequence": {"type": "string", "description": "Partial, full, or omitted DSL sequence depending on context"}
	},
	"required": ["answer"],
	"additionalProperties": false
}`)

type responsesEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Status string `json:"status"`
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Prompt sends the user prompt with the current sequence and chat history and
// returns the model's structured reply.
func (w *WorkersAI) Prompt(ctx context.Context, existingSequence, prompt string, previous []PreviousPrompt) (*ModelResult, error) {
	history, err := json.Marshal(previous)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat history: %w", err)
	}

	payload := responsesPayload{
		Model: w.config.Model,
		Input: []promptMessage{
			{Role: "system", Content: systemRules},
			{Role: "user", Content: prompt},
			{Role: "system", Content: "Existing sequence:\n" + existingSequence},
			{Role: "system", Content: "Chat history:\n" + string(history)},
		},
		Temperature:     0,
		TopP:            1,
		MaxOutputTokens: 1024,
		Reasoning:       reasoningOptions{Effort: "low"},
		ResponseFormat: responseFormat{
			Type:       "json_schema",
			JSONSchema: jsonSchema{Name: "sequence_response", Schema: sequenceSchema},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/accounts/%s/ai/v1/responses", w.config.BaseURL, w.config.AccountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build model request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope responsesEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("model error %s: %s", envelope.Error.Code, envelope.Error.Message)
	}

	for _, block := range envelope.Output {
		if block.Type != "message" || block.Role != "assistant" {
			continue
		}
		for _, content := range block.Content {
			if content.Type == "output_text" {
				result := CleanModelResponse(content.Text)
				if result == nil {
					return nil, fmt.Errorf("model returned no parseable JSON")
				}
				return result, nil
			}
		}
	}
	return nil, fmt.Errorf("model returned no assistant message")
}

// CleanModelResponse extracts the JSON object from raw model output that may
// carry reasoning text around it. Returns nil when no valid JSON is found.
func CleanModelResponse(raw string) *ModelResult {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || start >= end {
		return nil
	}

	result := &ModelResult{}
	if err := json.Unmarshal([]byte(raw[start:end+1]), result); err != nil {
		return nil
	}
	return result
}
