// Package summary turns an analysis result into a short natural-language
// narrative via OpenAI. The feature is optional: without an API key the
// service simply omits summaries.
package summary

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/walletlens/wallet-analyzer/internal/analyzer"
)

const systemPrompt = `You are a crypto portfolio analyst. Given a wallet's swap-trading PnL figures,
write a short factual summary (2-3 sentences) of how the wallet performed.
Mention realized and unrealized PnL and the trade count. Do not speculate
about future performance.`

// Summarizer writes one-paragraph wallet summaries.
type Summarizer struct {
	client *openai.Client
	model  string
}

// New creates a summarizer. Model defaults to gpt-4o-mini when empty.
func New(apiKey, model string) *Summarizer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Summarizer{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Summarize produces the narrative for one analysis result.
func (s *Summarizer) Summarize(ctx context.Context, a *analyzer.Analysis) (string, error) {
	allTime := a.PnL["all_time"]
	prompt := fmt.Sprintf(
		"Wallet %s made %d swaps. All-time realized PnL: %.2f USD. Unrealized PnL: %.2f USD. 7d realized: %.2f USD.",
		a.WalletAddress, len(a.TradeLedger), allTime.Realized, allTime.Unrealized, a.PnL["7d"].Realized,
	)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: 200,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
