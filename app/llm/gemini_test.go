package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"
)

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), Config{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
}

func newFakeGemini(t *testing.T, reply string, inspect func(body map[string]interface{})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("Invalid request body: %v", err)
		}
		if inspect != nil {
			inspect(body)
		}

		resp := map[string]interface{}{
			"candidates": []interface{}{
				map[string]interface{}{
					"content": map[string]interface{}{
						"role":  "model",
						"parts": []interface{}{map[string]interface{}{"text": reply}},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGeminiClient_Generate_Structured(t *testing.T) {
	server := newFakeGemini(t, `{"primary_search_term":"headless cms"}`, func(body map[string]interface{}) {
		if _, ok := body["systemInstruction"]; !ok {
			t.Error("Expected systemInstruction in request")
		}
		genConfig, ok := body["generationConfig"].(map[string]interface{})
		if !ok {
			t.Fatal("Expected generationConfig in request")
		}
		if genConfig["responseMimeType"] != "application/json" {
			t.Errorf("Expected JSON response MIME type, got %v", genConfig["responseMimeType"])
		}
		if _, ok := genConfig["responseSchema"]; !ok {
			t.Error("Expected responseSchema in request")
		}
	})
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), Config{APIKey: "k", BaseURL: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}

	text, err := client.Generate(context.Background(), Request{
		SystemInstruction: "You are an analyst.",
		Prompt:            "Analyze this.",
		Schema:            &genai.Schema{Type: genai.TypeObject},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(text, "headless cms") {
		t.Errorf("Unexpected text: %s", text)
	}
}

func TestGeminiClient_Generate_EmptyResponse(t *testing.T) {
	server := newFakeGemini(t, "   ", nil)
	defer server.Close()

	client, _ := NewGeminiClient(context.Background(), Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), Request{Prompt: "Rewrite this."})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestGeminiClient_Generate_EmptyPrompt(t *testing.T) {
	client := &GeminiClient{model: DefaultModel}
	if _, err := client.Generate(context.Background(), Request{Prompt: " "}); err == nil {
		t.Error("Expected error for empty prompt")
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"# Title\n\nBody", "# Title\n\nBody"},
		{"```markdown\n# Title\n\nBody\n```", "# Title\n\nBody"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  ```\nplain\n```  ", "plain"},
		{"```inline```", "```inline```"},
		{"Text with ``` inside", "Text with ``` inside"},
		{
			"```go\nfmt.Println(1)\n```\n\nSome prose.\n\n```sh\necho hi\n```",
			"```go\nfmt.Println(1)\n```\n\nSome prose.\n\n```sh\necho hi\n```",
		},
		{"```markdown\n# Title\n\n```sh\nls\n```\n```", "```markdown\n# Title\n\n```sh\nls\n```\n```"},
	}

	for _, tt := range tests {
		if got := StripCodeFence(tt.input); got != tt.expected {
			t.Errorf("StripCodeFence(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}
