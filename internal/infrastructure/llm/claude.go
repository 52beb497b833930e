package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"MarketScanner/internal/config"
	"MarketScanner/internal/domain"
	"MarketScanner/internal/ports"
)

const defaultClaudeModel = "claude-sonnet-4-5"

// ClaudeAnalyst implements ports.Analyst with the Anthropic Messages API.
type ClaudeAnalyst struct {
	client       anthropic.Client
	model        string
	maxTokens    int64
	temperature  float64
	systemPrompt string
}

var _ ports.Analyst = (*ClaudeAnalyst)(nil)

// NewClaudeAnalyst builds the client; extra options are appended (base URL in tests).
func NewClaudeAnalyst(cfg config.AIConfig, opts ...option.RequestOption) *ClaudeAnalyst {
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	clientOpts := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.Endpoint))
	}
	return &ClaudeAnalyst{
		client:       anthropic.NewClient(clientOpts...),
		model:        model,
		maxTokens:    maxTokens,
		temperature:  cfg.Temperature,
		systemPrompt: systemPrompt(cfg.SystemPrompt),
	}
}

// Analyze sends the digest and concatenates the text blocks of the reply.
func (c *ClaudeAnalyst) Analyze(ctx context.Context, articles []domain.Article) ([]byte, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(articles))),
		},
		System: []anthropic.TextBlockParam{{Text: c.systemPrompt}},
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, fmt.Errorf("empty response from claude")
	}
	return []byte(text.String()), nil
}
