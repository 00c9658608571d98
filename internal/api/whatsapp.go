package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/chekibot/chekibot/internal/agent"
)

const whatsappReplyTimeout = 2 * time.Minute

// WhatsAppSender delivers text replies through the WhatsApp Cloud API.
// Satisfied by *waba.Client.
type WhatsAppSender interface {
	SendText(ctx context.Context, to, text string) error
}

// whatsappWebhook is the subset of the Cloud API notification payload the
// handler cares about. Unknown fields are ignored.
type whatsappWebhook struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []whatsappMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type whatsappMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// whatsappHandler answers business messages delivered by Meta's webhook.
// Webhook turns are stateless: no history crosses deliveries.
type whatsappHandler struct {
	agent       *agent.Agent
	sender      WhatsAppSender
	verifyToken string
	logger      *slog.Logger
}

// verify answers Meta's subscription handshake: echo hub.challenge when the
// verify token matches, refuse otherwise.
func (h *whatsappHandler) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != h.verifyToken {
		h.logger.Warn("whatsapp webhook verification refused", "mode", q.Get("hub.mode"))
		writeError(w, http.StatusForbidden, "verification_failed", "verify token mismatch", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(q.Get("hub.challenge"))); err != nil {
		h.logger.Debug("whatsapp challenge write failed", "error", err)
	}
}

// receive handles one webhook delivery. It always answers 200: Meta
// re-delivers on any other status, and a malformed notification will never
// become processable.
func (h *whatsappHandler) receive(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	var payload whatsappWebhook
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("whatsapp notification decode failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), whatsappReplyTimeout)
	defer cancel()

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				h.answer(ctx, msg)
			}
		}
	}
}

func (h *whatsappHandler) answer(ctx context.Context, msg whatsappMessage) {
	if msg.Type != "text" || msg.Text.Body == "" {
		h.logger.Debug("whatsapp message skipped", "type", msg.Type, "from", msg.From)
		return
	}

	answer, err := h.agent.Invoke(ctx, msg.Text.Body, nil)
	if err != nil {
		h.logger.Error("whatsapp answer generation failed", "error", err, "from", msg.From)
		return
	}

	if err := h.sender.SendText(ctx, msg.From, answer); err != nil {
		h.logger.Error("whatsapp send failed", "error", err, "to", msg.From)
	}
}
