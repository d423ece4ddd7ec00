package tutor

import (
	"fmt"
	"strings"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

// TopicGeneral is used for topics without their own templates.
const TopicGeneral = "general"

var fallbackTemplates = map[string][]string{
	"restaurant": {
		"Was möchtest du heute bestellen?",
		"Hast du schon einmal in einem deutschen Restaurant gegessen?",
		"Möchtest du lieber Vorspeise oder Nachtisch?",
	},
	"doctor": {
		"Seit wann hast du diese Beschwerden?",
		"Wie fühlst du dich heute?",
		"Nimmst du im Moment Medikamente?",
	},
	"shopping": {
		"Was suchst du heute?",
		"Welche Größe brauchst du?",
		"Möchtest du mit Karte oder bar bezahlen?",
	},
	"travel": {
		"Wohin möchtest du reisen?",
		"Fährst du lieber mit dem Zug oder mit dem Auto?",
		"Wie lange bleibst du dort?",
	},
	"work": {
		"Was machst du beruflich?",
		"Wie sieht ein normaler Arbeitstag bei dir aus?",
		"Arbeitest du lieber im Büro oder von zu Hause?",
	},
	TopicGeneral: {
		"Erzähl mir mehr darüber!",
		"Das ist interessant! Wie war dein Tag?",
		"Was machst du gern in deiner Freizeit?",
	},
}

var topicAliases = map[string]string{
	"essen":     "restaurant",
	"arzt":      "doctor",
	"beim arzt": "doctor",
	"einkaufen": "shopping",
	"reise":     "travel",
	"reisen":    "travel",
	"arbeit":    "work",
	"beruf":     "work",
	"allgemein": TopicGeneral,
}

// NormalizeTopic maps a free-form topic onto a template key. Unknown topics
// map to TopicGeneral.
func NormalizeTopic(topic string) string {
	t := strings.ToLower(strings.TrimSpace(topic))
	if _, ok := fallbackTemplates[t]; ok {
		return t
	}
	if alias, ok := topicAliases[t]; ok {
		return alias
	}
	return TopicGeneral
}

// FallbackReply builds the templated reply used when the language model could
// not answer. The template is picked by turn index so the same turn always
// gets the same reply.
func FallbackReply(topic, transcript string, turnIndex int) Reply {
	templates := fallbackTemplates[NormalizeTopic(topic)]
	if turnIndex < 0 {
		turnIndex = -turnIndex
	}
	phrase := templates[turnIndex%len(templates)]

	return Reply{
		CorrectedForm: transcript,
		ReplyText:     fmt.Sprintf("Ich habe verstanden: „%s“. %s", transcript, phrase),
		Format:        session.FormatTemplate,
	}
}
