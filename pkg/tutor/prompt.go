package tutor

import (
	"strings"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

// DefaultSystemPrompt is used when no prompt file is configured.
const DefaultSystemPrompt = `Du bist ein freundlicher Deutschlehrer und führst ein Gespräch mit einem Lernenden.
Antworte immer auf Deutsch, kurz und natürlich, und stelle eine passende Rückfrage.

Halte dich genau an dieses Format:
KORRIGIERT: <der Satz des Lernenden in korrektem Deutsch>
ANTWORT: <deine Antwort im Gespräch>
ERKLÄRUNG: <kurze Erklärung der Korrektur, leer lassen wenn nichts falsch war>`

// PromptSource supplies the current system instruction.
type PromptSource interface {
	SystemPrompt() string
}

// StaticPrompt is a PromptSource that never changes.
type StaticPrompt string

func (p StaticPrompt) SystemPrompt() string {
	if p == "" {
		return DefaultSystemPrompt
	}
	return string(p)
}

// BuildPrompt assembles the generate prompt from the system instruction, the
// conversation topic, the prior turns and the new learner utterance.
// Turns without a transcript are skipped.
func BuildPrompt(system, topic string, history []*session.Turn, transcript string) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(system))
	b.WriteString("\n\n")

	if topic != "" {
		b.WriteString("Thema: ")
		b.WriteString(topic)
		b.WriteString("\n\n")
	}

	wrote := false
	for _, t := range history {
		if t == nil || t.Transcript == "" {
			continue
		}
		if !wrote {
			b.WriteString("Bisheriges Gespräch:\n")
			wrote = true
		}
		b.WriteString("Lernender: ")
		b.WriteString(t.Transcript)
		b.WriteString("\n")
		if t.ReplyText != "" {
			b.WriteString("Tutor: ")
			b.WriteString(t.ReplyText)
			b.WriteString("\n")
		}
	}
	if wrote {
		b.WriteString("\n")
	}

	b.WriteString("Lernender: ")
	b.WriteString(transcript)
	b.WriteString("\nTutor:")

	return b.String()
}
