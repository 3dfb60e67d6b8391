package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/carebridge-ai/carebridge/pkg/emergency"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func fakeFactory(bot *fakeBot) BotFactory {
	return func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
		return bot, nil
	}
}

func testAlert() Alert {
	return Alert{
		UserID:   "u1",
		UserName: "Margaret",
		Message:  "I have chest pain",
		Result: emergency.Result{
			IsEmergency: true,
			Severity:    emergency.SeverityVeryUrgent,
			Concerns:    []string{"chest pain"},
			ShouldAlert: true,
		},
		At: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatAlert(t *testing.T) {
	got := FormatAlert(testAlert())
	for _, want := range []string{
		"Who: Margaret",
		"Severity: very_urgent",
		"Concerns: chest pain",
		`Message: "I have chest pain"`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("formatted alert missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "worsening") {
		t.Fatalf("non-worsening alert mentions worsening:\n%s", got)
	}

	alert := testAlert()
	alert.UserName = ""
	alert.Result.IsWorsening = true
	got = FormatAlert(alert)
	if !strings.Contains(got, "Who: User u1") || !strings.Contains(got, "worsening") {
		t.Fatalf("fallback name or worsening line missing:\n%s", got)
	}
}

func TestTelegramNotifierSends(t *testing.T) {
	bot := &fakeBot{}
	n, err := NewTelegramNotifierWithFactory("token", 42, fakeFactory(bot))
	if err != nil {
		t.Fatalf("NewTelegramNotifierWithFactory: %v", err)
	}
	if err := n.Notify(context.Background(), testAlert()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("expected one sent message, got %d", len(bot.sent))
	}
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("unexpected chattable type %T", bot.sent[0])
	}
	if msg.ChatID != 42 || !strings.Contains(msg.Text, "chest pain") {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestTelegramNotifierSendError(t *testing.T) {
	bot := &fakeBot{err: errors.New("network down")}
	n, err := NewTelegramNotifierWithFactory("token", 42, fakeFactory(bot))
	if err != nil {
		t.Fatalf("NewTelegramNotifierWithFactory: %v", err)
	}
	if err := n.Notify(context.Background(), testAlert()); err == nil {
		t.Fatalf("expected send error")
	}
}

func TestTelegramNotifierValidation(t *testing.T) {
	if _, err := NewTelegramNotifierWithFactory("", 42, fakeFactory(&fakeBot{})); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if _, err := NewTelegramNotifierWithFactory("token", 0, fakeFactory(&fakeBot{})); err == nil {
		t.Fatalf("expected error for zero chat id")
	}
}
