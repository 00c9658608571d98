package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/gorilla/websocket"

	"github.com/chekibot/chekibot/internal/agent"
)

const (
	// maxChatRequestBytes bounds the single inbound frame.
	maxChatRequestBytes = 1 << 20

	// chatReadTimeout bounds how long a connected client may take to send
	// its request frame.
	chatReadTimeout = 60 * time.Second

	closeWriteTimeout = 5 * time.Second
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// chatRequest is the single frame a client sends after connecting.
type chatRequest struct {
	Content string        `json:"content"`
	History []historyItem `json:"history"`
}

type historyItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatHandler serves the realtime chat endpoint. Each connection carries
// exactly one turn: the client sends one JSON request, receives the answer
// as a sequence of text frames, and the server closes the connection.
type chatHandler struct {
	agent    *agent.Agent
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func newChatHandler(a *agent.Agent, allowedOrigins []string, logger *slog.Logger) *chatHandler {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = struct{}{}
	}

	return &chatHandler{
		agent: a,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Non-browser clients send no Origin header
				origin := r.Header.Get("Origin")
				if origin == "" || len(originSet) == 0 {
					return true
				}
				_, ok := originSet[origin]
				return ok
			},
		},
		logger: logger,
	}
}

// serve upgrades the connection and runs one chat turn over it.
func (h *chatHandler) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		h.logger.Debug("websocket upgrade failed", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer conn.Close() //nolint:errcheck

	conn.SetReadLimit(maxChatRequestBytes)
	if err := conn.SetReadDeadline(time.Now().Add(chatReadTimeout)); err != nil {
		h.logger.Debug("set read deadline", "error", err)
		return
	}

	_, payload, err := conn.ReadMessage()
	if err != nil {
		// Disconnect before sending a request is normal termination
		h.logger.Debug("websocket read", "error", err)
		return
	}

	var req chatRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.closeWith(conn, websocket.CloseUnsupportedData, "request is not valid JSON")
		return
	}

	if msg := validateChatRequest(&req); msg != "" {
		h.closeWith(conn, websocket.ClosePolicyViolation, msg)
		return
	}

	history := make([]*ai.Message, 0, len(req.History))
	for _, item := range req.History {
		switch item.Role {
		case roleUser:
			history = append(history, ai.NewUserMessage(ai.NewTextPart(item.Content)))
		case roleAssistant:
			history = append(history, ai.NewModelMessage(ai.NewTextPart(item.Content)))
		}
	}

	err = h.agent.Stream(r.Context(), req.Content, history, func(_ context.Context, fragment string) error {
		return conn.WriteMessage(websocket.TextMessage, []byte(fragment))
	})
	if err != nil {
		h.logger.Error("chat stream failed", "error", err)
		h.closeWith(conn, websocket.CloseInternalServerErr, "unexpected error")
		return
	}

	h.closeWith(conn, websocket.CloseNormalClosure, "")
}

// validateChatRequest returns a description of the first validation
// failure, or empty when the request is acceptable.
func validateChatRequest(req *chatRequest) string {
	if req.Content == "" {
		return "content must not be empty"
	}
	for i, item := range req.History {
		if item.Role != roleUser && item.Role != roleAssistant {
			return fmt.Sprintf("history[%d]: role must be %q or %q", i, roleUser, roleAssistant)
		}
	}
	return ""
}

func (h *chatHandler) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(closeWriteTimeout)
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		h.logger.Debug("write close frame", "error", err, "code", code)
	}
}
