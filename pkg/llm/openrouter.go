package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/istimaa-app/istimaa/pkg/config"
)

// OpenRouterClient is a minimal client for the OpenRouter chat API. The wire
// format is OpenAI-compatible so it reuses the chat request shapes.
type OpenRouterClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenRouterClient creates an OpenRouter client from the provider config
func NewOpenRouterClient(cfg config.LLMProvider, timeout time.Duration) *OpenRouterClient {
	base := cfg.BaseURL
	if base == "" {
		base = "https://openrouter.ai"
	}

	return &OpenRouterClient{
		apiKey:  cfg.APIKey,
		baseURL: base,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier
func (o *OpenRouterClient) Name() string { return "openrouter" }

// Generate sends the prompt to OpenRouter and returns the assistant content
func (o *OpenRouterClient) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	body := chatRequest{
		Model:       model,
		Messages:    buildChatMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return Response{}, err
	}

	endpoint := o.baseURL + "/api/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Response{}, newStatusError(o.Name(), resp)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Response{}, err
	}
	if len(cr.Choices) == 0 {
		return Response{}, fmt.Errorf("empty response from openrouter")
	}

	return Response{
		Text:             cr.Choices[0].Message.Content,
		Model:            cr.Model,
		PromptTokens:     cr.Usage.PromptTokens,
		CompletionTokens: cr.Usage.CompletionTokens,
	}, nil
}
