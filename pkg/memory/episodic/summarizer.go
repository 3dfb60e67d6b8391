package episodic

import (
	"context"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

const defaultSummaryModel = "claude-3-5-haiku-latest"

// AnthropicSummarizer condenses a day's exchanges with the Messages API.
type AnthropicSummarizer struct {
	Client    *anthropic.Client
	Model     string
	MaxTokens int
}

// NewAnthropicSummarizer reads ANTHROPIC_API_KEY from the env. An empty model
// selects defaultSummaryModel.
func NewAnthropicSummarizer(model string) *AnthropicSummarizer {
	if model == "" {
		model = defaultSummaryModel
	}
	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &AnthropicSummarizer{
		Client:    &cl,
		Model:     model,
		MaxTokens: 512,
	}
}

func (a *AnthropicSummarizer) Summarize(ctx context.Context, texts []string) (string, error) {
	prompt := "Summarize the following conversation excerpts from one day into at most three short sentences. " +
		"Focus on health, mood, meals, activities and family mentions. Reply with the summary only.\n\n" +
		strings.Join(texts, "\n")

	msg, err := a.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("episodic: summarize: %w", err)
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return b.String(), nil
}
