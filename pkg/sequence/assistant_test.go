package sequence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanModelResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *ModelResult
	}{
		{
			name: "plain json",
			raw:  `{"answer":"done","sequence":"A -> B: Hi"}`,
			want: &ModelResult{Answer: "done", Sequence: "A -> B: Hi"},
		},
		{
			name: "reasoning text around json",
			raw:  "Let me think. {\"answer\":\"done\",\"sequence\":\"\"} That is my answer.",
			want: &ModelResult{Answer: "done"},
		},
		{
			name: "markdown fenced",
			raw:  "```json\n{\"answer\":\"ok\",\"sequence\":\"A -> B: Hi\"}\n```",
			want: &ModelResult{Answer: "ok", Sequence: "A -> B: Hi"},
		},
		{
			name: "no json",
			raw:  "sorry, I cannot help with that",
			want: nil,
		},
		{
			name: "braces but invalid json",
			raw:  "{not json}",
			want: nil,
		},
		{
			name: "empty",
			raw:  "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanModelResponse(tt.raw))
		})
	}
}

func TestWorkersAIPrompt(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/acct-1/ai/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Write([]byte(`{
			"status": "completed",
			"output": [
				{"type": "reasoning", "content": [{"type": "reasoning_text", "text": "thinking"}]},
				{"type": "message", "role": "assistant", "content": [
					{"type": "output_text", "text": "{\"answer\":\"Added greeting.\",\"sequence\":\"Alice -> Bob: Hi\"}"}
				]}
			]
		}`))
	}))
	defer server.Close()

	client := NewWorkersAI(WorkersAIConfig{
		AccountID: "acct-1",
		APIToken:  "token-1",
		BaseURL:   server.URL,
	})

	result, err := client.Prompt(context.Background(), "", "Alice says hi to Bob", nil)
	require.NoError(t, err)
	assert.Equal(t, "Added greeting.", result.Answer)
	assert.Equal(t, "Alice -> Bob: Hi", result.Sequence)

	assert.Equal(t, "@cf/openai/gpt-oss-20b", captured["model"])
	assert.Equal(t, float64(0), captured["temperature"])
	assert.Equal(t, float64(1024), captured["max_output_tokens"])
	input := captured["input"].([]interface{})
	require.Len(t, input, 4)
	first := input[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
	assert.Contains(t, first["content"], "Sequence Diagram Assistant")
}

func TestWorkersAIPromptModelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":"5016","message":"capacity exceeded"}}`))
	}))
	defer server.Close()

	client := NewWorkersAI(WorkersAIConfig{AccountID: "acct-1", APIToken: "t", BaseURL: server.URL})
	_, err := client.Prompt(context.Background(), "", "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacity exceeded")
}

func TestWorkersAIPromptNoAssistantMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"completed","output":[{"type":"reasoning","content":[]}]}`))
	}))
	defer server.Close()

	client := NewWorkersAI(WorkersAIConfig{AccountID: "acct-1", APIToken: "t", BaseURL: server.URL})
	_, err := client.Prompt(context.Background(), "", "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no assistant message")
}
