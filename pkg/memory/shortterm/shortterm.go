// Package shortterm provides the windowed view over recent conversation
// history used as immediate context.
package shortterm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/storage"
)

// DefaultWindow is the number of exchanges included when the caller passes 0.
const DefaultWindow = 10

// Exchange is one user/assistant turn in the window.
type Exchange struct {
	UserMessage       string
	AssistantResponse string
	Timestamp         time.Time
}

// Provider reads the short-term window from the conversation store. It holds
// no state of its own; the view is derived per call.
type Provider struct {
	conversations storage.ConversationStore
	window        int
}

func NewProvider(conversations storage.ConversationStore, window int) *Provider {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Provider{conversations: conversations, window: window}
}

// RecentContext returns up to maxExchanges recent exchanges, oldest first.
// maxExchanges <= 0 uses the configured window. An empty result means "no
// history", not an error.
func (p *Provider) RecentContext(ctx context.Context, userID string, maxExchanges int) ([]Exchange, error) {
	if maxExchanges <= 0 {
		maxExchanges = p.window
	}
	convs, err := p.conversations.RecentConversations(ctx, userID, maxExchanges)
	if err != nil {
		return nil, fmt.Errorf("shortterm: recent conversations: %w", err)
	}
	// Store returns newest first; callers want chronological order.
	out := make([]Exchange, len(convs))
	for i, conv := range convs {
		out[len(convs)-1-i] = Exchange{
			UserMessage:       conv.Message,
			AssistantResponse: conv.Response,
			Timestamp:         conv.Timestamp,
		}
	}
	return out, nil
}

// FormattedContext renders the window for a prompt. Empty history yields "".
func (p *Provider) FormattedContext(ctx context.Context, userID string, maxExchanges int) (string, error) {
	exchanges, err := p.RecentContext(ctx, userID, maxExchanges)
	if err != nil {
		return "", err
	}
	if len(exchanges) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("Recent conversation context:\n")
	for _, ex := range exchanges {
		b.WriteString("User: " + ex.UserMessage + "\n")
		b.WriteString("Assistant: " + ex.AssistantResponse + "\n")
		b.WriteString("---\n")
	}
	return b.String(), nil
}
