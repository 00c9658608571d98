package token

import (
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

// newTestCounter returns a cl100k_base counter, skipping the test when the
// encoding data is unavailable (first use downloads and caches it).
func newTestCounter(t *testing.T) *Counter {
	t.Helper()
	c, err := NewCounter("cl100k_base")
	if err != nil {
		t.Skipf("cl100k_base encoding unavailable: %v", err)
	}
	return c
}

func TestNewCounter_UnknownEncoding(t *testing.T) {
	if _, err := NewCounter("no-such-encoding"); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestCounter_Count(t *testing.T) {
	c := newTestCounter(t)

	if got := c.Count(""); got != 0 {
		t.Errorf("Count(empty) = %d, want 0", got)
	}

	n := c.Count("hello world")
	if n <= 0 {
		t.Errorf("Count(hello world) = %d, want > 0", n)
	}

	// Counting is additive enough that longer text costs more.
	long := strings.Repeat("hello world ", 50)
	if c.Count(long) <= n {
		t.Error("longer text should count more tokens")
	}
}

func TestCounter_EncodeDecode_RoundTrip(t *testing.T) {
	c := newTestCounter(t)

	text := "El calendario electoral tiene actividades en agosto."
	tokens := c.Encode(text)
	if len(tokens) == 0 {
		t.Fatal("Encode returned no tokens")
	}
	if got := c.Decode(tokens); got != text {
		t.Errorf("Decode(Encode(text)) = %q, want %q", got, text)
	}
	if got := c.Count(text); got != len(tokens) {
		t.Errorf("Count = %d, want %d (len of Encode)", got, len(tokens))
	}
}

func TestCounter_CountMessage(t *testing.T) {
	c := newTestCounter(t)

	msg := ai.NewUserMessage(ai.NewTextPart("hola"))
	if got := c.CountMessage(msg); got != c.Count("hola") {
		t.Errorf("CountMessage = %d, want %d", got, c.Count("hola"))
	}

	// Non-text parts count zero.
	media := ai.NewUserMessage(ai.NewMediaPart("image/png", "data:..."))
	if got := c.CountMessage(media); got != 0 {
		t.Errorf("CountMessage(media) = %d, want 0", got)
	}
}

func TestCounter_CountMessages(t *testing.T) {
	c := newTestCounter(t)

	msgs := []*ai.Message{
		ai.NewSystemMessage(ai.NewTextPart("instrucciones")),
		ai.NewUserMessage(ai.NewTextPart("pregunta")),
	}
	want := c.Count("instrucciones") + c.Count("pregunta")
	if got := c.CountMessages(msgs); got != want {
		t.Errorf("CountMessages = %d, want %d", got, want)
	}
}
