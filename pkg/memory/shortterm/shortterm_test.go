package shortterm

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/storage"
)

func seedConversations(t *testing.T, mem *storage.Memstore, userID string, n int) time.Time {
	t.Helper()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		err := mem.AddConversation(context.Background(), storage.Conversation{
			UserID:    userID,
			Message:   fmt.Sprintf("message %d", i),
			Response:  fmt.Sprintf("response %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AddConversation: %v", err)
		}
	}
	return base
}

func TestRecentContextChronologicalWindow(t *testing.T) {
	mem := storage.NewMemstore()
	seedConversations(t, mem, "1", 15)
	p := NewProvider(mem, 10)

	got, err := p.RecentContext(context.Background(), "1", 0)
	if err != nil {
		t.Fatalf("RecentContext: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("window size = %d, want 10", len(got))
	}
	if got[0].UserMessage != "message 5" || got[9].UserMessage != "message 14" {
		t.Fatalf("window not the most recent 10 oldest-first: first=%q last=%q",
			got[0].UserMessage, got[9].UserMessage)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Fatal("exchanges not in chronological order")
		}
	}
}

func TestFormattedContextEmptyHistory(t *testing.T) {
	p := NewProvider(storage.NewMemstore(), 10)
	got, err := p.FormattedContext(context.Background(), "nobody", 0)
	if err != nil {
		t.Fatalf("FormattedContext: %v", err)
	}
	if got != "" {
		t.Fatalf("empty history rendered %q, want empty string", got)
	}
}

func TestFormattedContextLayout(t *testing.T) {
	mem := storage.NewMemstore()
	seedConversations(t, mem, "1", 2)
	p := NewProvider(mem, 10)

	got, err := p.FormattedContext(context.Background(), "1", 0)
	if err != nil {
		t.Fatalf("FormattedContext: %v", err)
	}
	if !strings.HasPrefix(got, "Recent conversation context:\n") {
		t.Fatalf("missing header: %q", got)
	}
	if !strings.Contains(got, "User: message 0\nAssistant: response 0\n---\n") {
		t.Fatalf("exchange not rendered: %q", got)
	}
}
