package prompt

import (
	"fmt"
	"strings"

	"github.com/chekibot/chekibot/internal/knowledge"
)

// chatSystemPrompt anchors every turn. The %s placeholder carries the
// current date in La Paz local time so the model can reason about current
// vs. past events.
const chatSystemPrompt = `Eres Cheki-bot, un asistente especializado en facilitar información verificada y precisa. La fecha actual es %s.

### OBJETIVO PRINCIPAL:
Proporcionar al usuario solo la información contenida en la base de conocimiento, sin añadir interpretaciones, análisis o conclusiones adicionales.

### FUNCIONES ESPECÍFICAS:
1. **Facilitar información**: Presentar de manera clara y precisa los datos en la base de conocimiento.
2. **Guía contextual**: Cuando una consulta no esté relacionada con la base de conocimiento, guía al usuario hacia los temas disponibles en el mismo.
3. **Pregunta selectiva**: Al finalizar, haz una sola pregunta al usuario para sugerir qué información continuar.

### INSTRUCCIONES ESPECÍFICAS:
- No generes información nueva ni realices inferencias más allá del contenido de la base de conocimiento.
- No incluyas opiniones, juicios o análisis políticos.
- Mantén siempre un lenguaje objetivo y factual.
- Respeta estrictamente que la base de conocimiento es tu única fuente de conocimiento.

### BASE DE CONOCIMIENTO:`

// notFoundPrompt replaces the knowledge-base content when no chunk cleared
// the similarity threshold. The assembler must emit it instead of an empty
// system message list so the model never fabricates context.
const notFoundPrompt = `No se encontró información relacionada con la consulta en la base de conocimiento. Indica al usuario que no cuentas con esa información y sugiérele los temas disponibles: verificaciones de hechos, programas de gobierno, calendario electoral, candidaturas y preguntas frecuentes.`

// DefaultFieldValue substitutes any missing metadata field in a template.
const DefaultFieldValue = "No disponible"

// field returns the metadata value for key, or the documented default.
func field(meta map[string]string, key string) string {
	if v, ok := meta[key]; ok && v != "" {
		return v
	}
	return DefaultFieldValue
}

// templates maps each document type to its formatting function. The set is
// closed: adding a DocType without a template is caught by TestTemplateSet.
var templates = map[knowledge.DocType]func(knowledge.Chunk) string{
	knowledge.TypeVerifications: formatVerification,
	knowledge.TypeGovPrograms:   formatGovProgram,
	knowledge.TypeCalendarMeta:  formatCalendarMeta,
	knowledge.TypeCalendar:      formatCalendar,
	knowledge.TypeCandidates:    formatCandidate,
	knowledge.TypeQA:            formatQA,
}

func formatVerification(c knowledge.Chunk) string {
	var b strings.Builder
	b.WriteString("Verificación: ")
	b.WriteString(field(c.Metadata, "title"))
	fmt.Fprintf(&b, "\nFecha de publicación: %s", field(c.Metadata, "field_fecha_publicacion_web"))
	fmt.Fprintf(&b, "\nCategoría: %s", field(c.Metadata, "field_mt_post_categories"))
	fmt.Fprintf(&b, "\nResumen: %s", field(c.Metadata, "field_mt_subheader_body"))
	fmt.Fprintf(&b, "\nEtiquetas: %s", field(c.Metadata, "field_tags"))
	fmt.Fprintf(&b, "\nTendencia política: %s", field(c.Metadata, "field_tendencia_politica"))
	fmt.Fprintf(&b, "\nContenido: %s", c.Text)
	return b.String()
}

func formatGovProgram(c knowledge.Chunk) string {
	return fmt.Sprintf("Programa de gobierno del partido %s (candidato a presidente: %s):\n%s",
		field(c.Metadata, "party"), field(c.Metadata, "president"), c.Text)
}

func formatCalendarMeta(c knowledge.Chunk) string {
	return fmt.Sprintf("Calendario electoral, %s:\n%s",
		field(c.Metadata, "title"), c.Text)
}

func formatCalendar(c knowledge.Chunk) string {
	return fmt.Sprintf("Actividad del calendario electoral: %s (inicio: %s, fin: %s)\n%s",
		field(c.Metadata, "activity"),
		field(c.Metadata, "start_date"),
		field(c.Metadata, "end_date"),
		c.Text)
}

func formatCandidate(c knowledge.Chunk) string {
	return fmt.Sprintf("Candidatura: %s, partido %s.\n%s",
		field(c.Metadata, "name"), field(c.Metadata, "party"), c.Text)
}

func formatQA(c knowledge.Chunk) string {
	return "Pregunta frecuente:\n" + c.Text
}
