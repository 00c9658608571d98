package api

import (
	"io"
	"net/http"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// mockTelegramSender records outbound messages instead of calling Telegram.
type mockTelegramSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, m.err
}

func postWebhook(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestTelegram_Answers(t *testing.T) {
	chat := &mockChat{completion: "Las elecciones son el 17 de agosto."}
	sender := &mockTelegramSender{}
	ts := newTestServer(t, chat, func(cfg *ServerConfig) {
		cfg.TelegramSender = sender
	})

	update := `{"update_id":7,"message":{"message_id":1,"chat":{"id":42},"text":"¿cuándo voto?"}}`
	resp := postWebhook(t, ts.URL+"/api/webhooks/telegram", update)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf(`body = %q, want "ok"`, body)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent a %T, want tgbotapi.MessageConfig", sender.sent[0])
	}
	if msg.ChatID != 42 {
		t.Errorf("reply chat ID = %d, want 42", msg.ChatID)
	}
	if msg.Text != chat.completion {
		t.Errorf("reply text = %q, want %q", msg.Text, chat.completion)
	}
}

func TestTelegram_UpdateWithoutText(t *testing.T) {
	// Non-text updates (stickers, joins, edits) are acknowledged and dropped.
	chat := &mockChat{}
	sender := &mockTelegramSender{}
	ts := newTestServer(t, chat, func(cfg *ServerConfig) {
		cfg.TelegramSender = sender
	})

	resp := postWebhook(t, ts.URL+"/api/webhooks/telegram", `{"update_id":8}`)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf(`body = %q, want "ok"`, body)
	}
	if chat.invokeCalls != 0 {
		t.Error("model invoked for an update without text")
	}
	if len(sender.sent) != 0 {
		t.Error("reply sent for an update without text")
	}
}

func TestTelegram_MalformedUpdate(t *testing.T) {
	// A malformed delivery can never become processable, so it is
	// acknowledged rather than retried forever.
	chat := &mockChat{}
	sender := &mockTelegramSender{}
	ts := newTestServer(t, chat, func(cfg *ServerConfig) {
		cfg.TelegramSender = sender
	})

	resp := postWebhook(t, ts.URL+"/api/webhooks/telegram", "{broken")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if chat.invokeCalls != 0 || len(sender.sent) != 0 {
		t.Error("malformed update reached the pipeline")
	}
}

func TestTelegram_DisabledWithoutSender(t *testing.T) {
	ts := newTestServer(t, &mockChat{}, nil)

	resp := postWebhook(t, ts.URL+"/api/webhooks/telegram", `{"update_id":1}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when the webhook is not configured", resp.StatusCode)
	}
}
