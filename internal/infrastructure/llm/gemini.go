package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"MarketScanner/internal/config"
	"MarketScanner/internal/domain"
	"MarketScanner/internal/ports"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiAnalyst implements ports.Analyst with schema-constrained JSON output.
type GeminiAnalyst struct {
	client       *genai.Client
	model        string
	temperature  float32
	systemPrompt string
}

var _ ports.Analyst = (*GeminiAnalyst)(nil)

// NewGeminiAnalyst creates the genai client for the Gemini API backend.
func NewGeminiAnalyst(ctx context.Context, cfg config.AIConfig) (*GeminiAnalyst, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiAnalyst{
		client:       client,
		model:        model,
		temperature:  float32(cfg.Temperature),
		systemPrompt: systemPrompt(cfg.SystemPrompt),
	}, nil
}

// Analyze sends the digest and returns the JSON text of the first candidate.
func (g *GeminiAnalyst) Analyze(ctx context.Context, articles []domain.Article) ([]byte, error) {
	contents := []*genai.Content{genai.NewContentFromText(BuildPrompt(articles), genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temperature),
		SystemInstruction: genai.NewContentFromText(g.systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text in gemini response")
	}
	return []byte(text), nil
}

// responseSchema mirrors the JSON object requested in the prompt. Direction is
// optional; the parser flags a missing one.
func responseSchema() *genai.Schema {
	direction := &genai.Schema{Type: genai.TypeString, Enum: []string{"Bullish", "Bearish", "Neutral"}}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"market_sentiment": direction,
			"overview":         {Type: genai.TypeString},
			"opportunities": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"ticker_symbol":          {Type: genai.TypeString},
						"company_name":           {Type: genai.TypeString},
						"direction":              direction,
						"confidence":             {Type: genai.TypeNumber},
						"rationale":              {Type: genai.TypeString},
						"horizon":                {Type: genai.TypeString, Enum: []string{string(domain.HorizonShortTerm), string(domain.HorizonLongTerm)}},
						"supporting_article_ids": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					},
					Required: []string{"ticker_symbol", "company_name", "rationale"},
				},
			},
		},
		Required: []string{"market_sentiment", "overview", "opportunities"},
	}
}
