package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/chekibot/chekibot/internal/agent"
)

// telegramReplyTimeout bounds one full answer generation for a webhook
// update. Telegram retries deliveries it considers failed, so the handler
// must finish well before Telegram's own timeout.
const telegramReplyTimeout = 2 * time.Minute

// TelegramSender sends prepared messages back to Telegram. Satisfied by
// *tgbotapi.BotAPI.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// telegramHandler answers bot updates delivered by Telegram's webhook.
// Webhook turns are stateless: no history crosses updates.
type telegramHandler struct {
	agent  *agent.Agent
	sender TelegramSender
	logger *slog.Logger
}

// receive handles one webhook delivery. It always answers 200 with "ok":
// any other status makes Telegram re-deliver the same update, and a
// malformed or non-text update will never become processable.
func (h *telegramHandler) receive(w http.ResponseWriter, r *http.Request) {
	defer h.ack(w)

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("telegram update decode failed", "error", err)
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		h.logger.Debug("telegram update without text message", "update_id", update.UpdateID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), telegramReplyTimeout)
	defer cancel()

	answer, err := h.agent.Invoke(ctx, update.Message.Text, nil)
	if err != nil {
		h.logger.Error("telegram answer generation failed",
			"error", err,
			"chat_id", update.Message.Chat.ID,
		)
		return
	}

	reply := tgbotapi.NewMessage(update.Message.Chat.ID, answer)
	if _, err := h.sender.Send(reply); err != nil {
		h.logger.Error("telegram send failed",
			"error", err,
			"chat_id", update.Message.Chat.ID,
		)
	}
}

func (h *telegramHandler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		h.logger.Debug("telegram ack write failed", "error", err)
	}
}
