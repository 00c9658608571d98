package api

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func dialChat(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/chatbot/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s failed: %v", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntilClose collects text frames until the server closes the
// connection, returning the concatenated text and the close code.
func readUntilClose(t *testing.T, conn *websocket.Conn) (string, int) {
	t.Helper()
	var b strings.Builder
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return b.String(), closeErr.Code
			}
			t.Fatalf("read failed before close frame: %v", err)
		}
		b.Write(payload)
	}
}

func TestChat_StreamsAnswer(t *testing.T) {
	chat := &mockChat{fragments: []string{"<think>plan</think>", "Las elecciones ", "son el 17 de agosto."}}
	ts := newTestServer(t, chat, nil)

	conn := dialChat(t, ts)
	req := `{"content":"¿cuándo son las elecciones?","history":[{"role":"user","content":"hola"},{"role":"assistant","content":"buenos días"}]}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	text, code := readUntilClose(t, conn)
	if code != websocket.CloseNormalClosure {
		t.Errorf("close code = %d, want %d", code, websocket.CloseNormalClosure)
	}
	if want := "Las elecciones son el 17 de agosto."; text != want {
		t.Errorf("streamed text = %q, want %q", text, want)
	}
	if chat.streamCalls != 1 {
		t.Errorf("Stream called %d times, want 1", chat.streamCalls)
	}
}

func TestChat_InvalidJSON(t *testing.T) {
	chat := &mockChat{}
	ts := newTestServer(t, chat, nil)

	conn := dialChat(t, ts)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write request: %v", err)
	}

	_, code := readUntilClose(t, conn)
	if code != websocket.CloseUnsupportedData {
		t.Errorf("close code = %d, want %d", code, websocket.CloseUnsupportedData)
	}
	if chat.streamCalls != 0 {
		t.Error("model invoked for a malformed request")
	}
}

func TestChat_EmptyContent(t *testing.T) {
	chat := &mockChat{}
	ts := newTestServer(t, chat, nil)

	conn := dialChat(t, ts)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"content":""}`)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	_, code := readUntilClose(t, conn)
	if code != websocket.ClosePolicyViolation {
		t.Errorf("close code = %d, want %d", code, websocket.ClosePolicyViolation)
	}
	if chat.streamCalls != 0 {
		t.Error("model invoked for an empty query")
	}
}

func TestChat_InvalidHistoryRole(t *testing.T) {
	chat := &mockChat{}
	ts := newTestServer(t, chat, nil)

	conn := dialChat(t, ts)
	req := `{"content":"hola","history":[{"role":"system","content":"x"}]}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	_, code := readUntilClose(t, conn)
	if code != websocket.ClosePolicyViolation {
		t.Errorf("close code = %d, want %d", code, websocket.ClosePolicyViolation)
	}
}

func TestChat_UpstreamFailure(t *testing.T) {
	chat := &mockChat{err: errors.New("backend down")}
	ts := newTestServer(t, chat, nil)

	conn := dialChat(t, ts)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"content":"hola"}`)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	_, code := readUntilClose(t, conn)
	if code != websocket.CloseInternalServerErr {
		t.Errorf("close code = %d, want %d", code, websocket.CloseInternalServerErr)
	}
}

func TestValidateChatRequest(t *testing.T) {
	tests := []struct {
		name   string
		req    chatRequest
		wantOK bool
	}{
		{"valid", chatRequest{Content: "hola"}, true},
		{"valid with history", chatRequest{Content: "hola", History: []historyItem{{Role: "user", Content: "x"}, {Role: "assistant", Content: "y"}}}, true},
		{"empty content", chatRequest{}, false},
		{"bad role", chatRequest{Content: "hola", History: []historyItem{{Role: "system", Content: "x"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validateChatRequest(&tt.req)
			if ok := msg == ""; ok != tt.wantOK {
				t.Errorf("validateChatRequest() = %q, want ok=%v", msg, tt.wantOK)
			}
		})
	}
}
