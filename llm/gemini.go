package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini talks to Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	cfg    Config
}

// NewGemini creates a Gemini provider. Close releases its connection.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.Model == "" || strings.HasPrefix(cfg.Model, "gpt-") {
		cfg.Model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, newServiceError(ProviderGemini, 0, err)
	}
	return &Gemini{client: client, model: cfg.Model, cfg: cfg}, nil
}

// Complete sends one system + user exchange.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return "", classifyGemini(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", malformed(ProviderGemini, "response has no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", malformed(ProviderGemini, "response has no text parts")
	}
	return b.String(), nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error { return g.client.Close() }

func classifyGemini(err error) *ServiceError {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &ServiceError{Provider: ProviderGemini, Kind: KindMalformed, Err: err}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return newServiceError(ProviderGemini, apiErr.Code, err)
	}
	return newServiceError(ProviderGemini, 0, err)
}
