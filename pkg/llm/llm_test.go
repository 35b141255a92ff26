package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/istimaa-app/istimaa/pkg/config"
)

func TestGroqClient_Generate(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{
			"model": "llama-3.3-70b-versatile",
			"choices": [{"message": {"content": "[{\"word_ar\": \"كتاب\"}]"}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 40}
		}`))
	}))
	defer server.Close()

	client := NewGroqClient(config.LLMProvider{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "llama-3.3-70b-versatile",
	}, 5*time.Second)

	resp, err := client.Generate(context.Background(), Request{
		Prompt:      "extract vocabulary",
		System:      "You are an Arabic teacher.",
		Temperature: 0.3,
		MaxTokens:   2000,
		JSONMode:    true,
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp.Text != `[{"word_ar": "كتاب"}]` {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.PromptTokens != 120 || resp.CompletionTokens != 40 {
		t.Fatalf("usage not mapped: %+v", resp)
	}

	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Fatal("json mode must request json_object response format")
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("system message not sent first: %+v", captured.Messages)
	}
}

func TestGroqClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	}))
	defer server.Close()

	client := NewGroqClient(config.LLMProvider{APIKey: "k", BaseURL: server.URL}, 5*time.Second)

	_, err := client.Generate(context.Background(), Request{Prompt: "p"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", se.StatusCode)
	}
	if se.Provider != "groq" {
		t.Fatalf("expected provider groq, got %s", se.Provider)
	}
}

func TestGoogleClient_Generate(t *testing.T) {
	var captured geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("api key must be passed as query parameter")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "{\"ilr_level\": "}, {"text": "\"2\"}"}]}}],
			"usageMetadata": {"promptTokenCount": 300, "candidatesTokenCount": 25}
		}`))
	}))
	defer server.Close()

	client := NewGoogleClient(config.LLMProvider{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gemini-2.0-flash",
	}, 5*time.Second)

	resp, err := client.Generate(context.Background(), Request{Prompt: "analyze", JSONMode: true})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	// Multi-part candidates are concatenated
	if resp.Text != `{"ilr_level": "2"}` {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.PromptTokens != 300 {
		t.Fatalf("usage not mapped: %+v", resp)
	}

	if captured.GenerationConfig == nil || captured.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatal("json mode must request application/json mime type")
	}
}

func TestGoogleClient_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client := NewGoogleClient(config.LLMProvider{APIKey: "k", BaseURL: server.URL, Model: "m"}, 5*time.Second)

	if _, err := client.Generate(context.Background(), Request{Prompt: "p"}); err == nil {
		t.Fatal("expected error on empty candidates")
	}
}

func TestOpenRouterClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"model": "meta-llama/llama-3.3-70b-instruct:free", "choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(config.LLMProvider{APIKey: "k", BaseURL: server.URL}, 5*time.Second)

	resp, err := client.Generate(context.Background(), Request{Prompt: "p", Model: "meta-llama/llama-3.3-70b-instruct:free"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
}
