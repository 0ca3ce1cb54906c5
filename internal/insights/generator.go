// Package insights turns summary statistics into a short narrative
// using OpenAI's chat API. The feature is optional and is only enabled
// when an API key is present.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/abelk/solarscope/internal/stats"
)

const systemPrompt = "You are an analyst for a solar irradiance measurement campaign. " +
	"Given per-column summary statistics and per-country comparisons, write a short " +
	"plain-text briefing (at most five sentences) on data quality and which regions " +
	"look most promising for solar installations. Do not invent numbers."

// Generator produces dataset narratives via OpenAI's API.
type Generator struct {
	client openai.Client
	model  string

	mu   sync.Mutex
	memo map[string]string
}

// NewGenerator creates a narrative generator.
// It reads the OPENAI_API_KEY environment variable for authentication.
func NewGenerator() (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
		memo:   make(map[string]string),
	}, nil
}

// Narrative returns a briefing for the dataset identified by fingerprint.
// Results are memoised per fingerprint, so repeated calls for an
// unchanged dataset do not hit the API again.
func (g *Generator) Narrative(ctx context.Context, fingerprint string, summary []stats.SummaryRow, comparison []stats.ComparisonRow) (string, error) {
	g.mu.Lock()
	if cached, ok := g.memo[fingerprint]; ok {
		g.mu.Unlock()
		return cached, nil
	}
	g.mu.Unlock()

	prompt := buildPrompt(summary, comparison)

	log.Printf("insights: requesting narrative for dataset %.12s...", fingerprint)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("narrative generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty completion returned")
	}

	g.mu.Lock()
	g.memo[fingerprint] = text
	g.mu.Unlock()

	return text, nil
}

func buildPrompt(summary []stats.SummaryRow, comparison []stats.ComparisonRow) string {
	var b strings.Builder
	b.WriteString("Column summaries:\n")
	for _, row := range summary {
		fmt.Fprintf(&b, "  %s: count=%d mean=%s std=%s min=%s max=%s missing=%.2f%%\n",
			row.Column, row.Count, num(row.Mean), num(row.Std), num(row.Min), num(row.Max), row.MissingPct)
	}
	if len(comparison) > 0 {
		b.WriteString("Per-country means:\n")
		for _, row := range comparison {
			fmt.Fprintf(&b, "  %s / %s: mean=%s median=%s\n",
				row.Metric, row.Country, num(row.Mean), num(row.Median))
		}
	}
	return b.String()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}
