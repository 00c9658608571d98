// Package api exposes the chatbot over HTTP: a realtime WebSocket chat
// endpoint plus Telegram and WhatsApp webhook receivers, wrapped in the
// shared middleware stack.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chekibot/chekibot/internal/agent"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger *slog.Logger
	Agent  *agent.Agent  // Required
	Pool   *pgxpool.Pool // Optional: nil disables the database check in /ready

	CORSOrigins []string // Allowed origins for CORS and WebSocket upgrades
	IsDev       bool     // Disables HSTS (local HTTP)
	TrustProxy  bool     // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst   int      // Rate limiter burst size per IP (0 = default 60)

	TelegramSender TelegramSender // Optional: nil disables the Telegram webhook
	WhatsAppSender WhatsAppSender // Optional: nil disables the WhatsApp webhook
	WhatsAppVerify string         // Verify token for the WhatsApp handshake
}

// Server is the chatbot HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Agent == nil {
		return nil, errors.New("agent is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/chatbot/{$}", welcome)

	chat := newChatHandler(cfg.Agent, cfg.CORSOrigins, logger)
	mux.HandleFunc("GET /api/chatbot/ws", chat.serve)

	if cfg.TelegramSender != nil {
		th := &telegramHandler{agent: cfg.Agent, sender: cfg.TelegramSender, logger: logger}
		mux.HandleFunc("POST /api/webhooks/telegram", th.receive)
	}

	if cfg.WhatsAppSender != nil {
		wh := &whatsappHandler{
			agent:       cfg.Agent,
			sender:      cfg.WhatsAppSender,
			verifyToken: cfg.WhatsAppVerify,
			logger:      logger,
		}
		mux.HandleFunc("GET /api/webhooks/whatsapp", wh.verify)
		mux.HandleFunc("POST /api/webhooks/whatsapp", wh.receive)
	}

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes outside the middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// welcome answers the chatbot root with a greeting so clients can probe
// the API without opening a socket.
func welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the chat bot"})
}
