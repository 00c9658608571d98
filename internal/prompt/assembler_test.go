package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/chekibot/chekibot/internal/knowledge"
)

// fixedClock pins the assembler to 2026-08-31 14:00 UTC, which is still
// August 31 at UTC-4.
func fixedClock() time.Time {
	return time.Date(2026, time.August, 31, 14, 0, 0, 0, time.UTC)
}

func messageText(t *testing.T, m *ai.Message) string {
	t.Helper()
	if len(m.Content) != 1 {
		t.Fatalf("expected a single part, got %d", len(m.Content))
	}
	return m.Content[0].Text
}

func chunk(text string, meta map[string]string) knowledge.Chunk {
	return knowledge.Chunk{ID: "c1", Text: text, Metadata: meta}
}

// ============================================================
// DateString
// ============================================================

func TestAssembler_DateString(t *testing.T) {
	a := NewWithClock(fixedClock)
	if got, want := a.DateString(), "31 de agosto del 2026"; got != want {
		t.Errorf("DateString() = %q, want %q", got, want)
	}
}

func TestAssembler_DateString_LaPazRollback(t *testing.T) {
	// 02:00 UTC on September 1 is still 22:00 on August 31 in La Paz.
	a := NewWithClock(func() time.Time {
		return time.Date(2026, time.September, 1, 2, 0, 0, 0, time.UTC)
	})
	if got, want := a.DateString(), "31 de agosto del 2026"; got != want {
		t.Errorf("DateString() = %q, want %q", got, want)
	}
}

// ============================================================
// Build
// ============================================================

func TestAssembler_Build_NoContext(t *testing.T) {
	a := NewWithClock(fixedClock)

	msgs := a.Build(nil, nil)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.Role != ai.RoleSystem {
			t.Errorf("message %d role = %q, want system", i, m.Role)
		}
	}
	first := messageText(t, msgs[0])
	if !strings.Contains(first, "Cheki-bot") {
		t.Error("system prompt missing assistant identity")
	}
	if !strings.Contains(first, "31 de agosto del 2026") {
		t.Error("system prompt missing the current date")
	}
	if got := messageText(t, msgs[1]); got != notFoundPrompt {
		t.Errorf("fallback message = %q, want notFoundPrompt", got)
	}
}

func TestAssembler_Build_EmptyChunks(t *testing.T) {
	a := NewWithClock(fixedClock)
	docType := knowledge.TypeQA

	msgs := a.Build(&docType, nil)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if got := messageText(t, msgs[1]); got != notFoundPrompt {
		t.Errorf("fallback message = %q, want notFoundPrompt", got)
	}
}

func TestAssembler_Build_SystemMessageAlwaysFirst(t *testing.T) {
	a := NewWithClock(fixedClock)
	docType := knowledge.TypeQA

	msgs := a.Build(&docType, []knowledge.Chunk{chunk("¿Dónde voto?", nil)})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if !strings.Contains(messageText(t, msgs[0]), "BASE DE CONOCIMIENTO") {
		t.Error("first message is not the dated system prompt")
	}
	if got, want := messageText(t, msgs[1]), "Pregunta frecuente:\n¿Dónde voto?"; got != want {
		t.Errorf("QA message = %q, want %q", got, want)
	}
}

func TestAssembler_Build_OneMessagePerChunk(t *testing.T) {
	a := NewWithClock(fixedClock)
	docType := knowledge.TypeQA

	msgs := a.Build(&docType, []knowledge.Chunk{
		chunk("primera", nil),
		chunk("segunda", nil),
		chunk("tercera", nil),
	})
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
}

func TestAssembler_Build_VerificationTemplate(t *testing.T) {
	a := NewWithClock(fixedClock)
	docType := knowledge.TypeVerifications

	msgs := a.Build(&docType, []knowledge.Chunk{chunk("El dato es falso.", map[string]string{
		"title":                       "Afirmación sobre el padrón",
		"field_fecha_publicacion_web": "2025-07-01",
		"field_mt_post_categories":    "FALSO",
		"field_mt_subheader_body":     "Resumen breve",
		"field_tags":                  "padrón, elecciones",
		"field_tendencia_politica":    "Ninguna",
	})})
	got := messageText(t, msgs[1])
	for _, want := range []string{
		"Verificación: Afirmación sobre el padrón",
		"Fecha de publicación: 2025-07-01",
		"Categoría: FALSO",
		"Resumen: Resumen breve",
		"Etiquetas: padrón, elecciones",
		"Tendencia política: Ninguna",
		"Contenido: El dato es falso.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("verification message missing %q:\n%s", want, got)
		}
	}
}

func TestAssembler_Build_CalendarTemplate(t *testing.T) {
	a := NewWithClock(fixedClock)
	docType := knowledge.TypeCalendar

	msgs := a.Build(&docType, []knowledge.Chunk{chunk("Detalle de la actividad.", map[string]string{
		"activity":   "Cierre de campaña",
		"start_date": "2025-08-13",
		"end_date":   "2025-08-14",
	})})
	got := messageText(t, msgs[1])
	want := "Actividad del calendario electoral: Cierre de campaña (inicio: 2025-08-13, fin: 2025-08-14)\nDetalle de la actividad."
	if got != want {
		t.Errorf("calendar message = %q, want %q", got, want)
	}
}

func TestAssembler_Build_GovProgramTemplate(t *testing.T) {
	a := NewWithClock(fixedClock)
	docType := knowledge.TypeGovPrograms

	msgs := a.Build(&docType, []knowledge.Chunk{chunk("propuesta económica", map[string]string{
		"party":     "partido a",
		"president": "juana pérez",
	})})
	got := messageText(t, msgs[1])
	want := "Programa de gobierno del partido partido a (candidato a presidente: juana pérez):\npropuesta económica"
	if got != want {
		t.Errorf("gov program message = %q, want %q", got, want)
	}
}

func TestAssembler_Build_MissingFieldsUseDefault(t *testing.T) {
	a := NewWithClock(fixedClock)
	docType := knowledge.TypeCandidates

	msgs := a.Build(&docType, []knowledge.Chunk{chunk("perfil", nil)})
	got := messageText(t, msgs[1])
	want := "Candidatura: " + DefaultFieldValue + ", partido " + DefaultFieldValue + ".\nperfil"
	if got != want {
		t.Errorf("candidate message = %q, want %q", got, want)
	}
}

// ============================================================
// Template set
// ============================================================

// TestTemplateSet fails when a document type is added without a template.
func TestTemplateSet(t *testing.T) {
	for _, dt := range knowledge.AllDocTypes {
		if _, ok := templates[dt]; !ok {
			t.Errorf("document type %q has no template", dt)
		}
	}
	if len(templates) != len(knowledge.AllDocTypes) {
		t.Errorf("templates has %d entries, want %d", len(templates), len(knowledge.AllDocTypes))
	}
}
