package tutor

import (
	"fmt"
	"strings"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/engine"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

// Reply is the tutor's answer to one learner utterance.
type Reply struct {
	CorrectedForm string
	ReplyText     string
	Explanation   string
	Format        session.ReplyFormat
}

type section int

const (
	sectionNone section = iota
	sectionCorrected
	sectionAnswer
	sectionExplanation
	sectionIgnored
)

var markers = map[string]section{
	"KORRIGIERT": sectionCorrected,
	"ANTWORT":    sectionAnswer,
	"ERKLÄRUNG":  sectionExplanation,
	"ERKLAERUNG": sectionExplanation,
}

// ParseReply splits raw model output into its KORRIGIERT, ANTWORT and
// ERKLÄRUNG sections.
//
// A marker is recognized case-insensitively at the start of a trimmed line and
// must be followed by a colon. Lines without a marker continue the current
// section. Only the first occurrence of each marker counts. Output without a
// non-empty ANTWORT section is returned whole as an unstructured reply, and
// empty output is an ErrMalformedOutput error.
func ParseReply(raw, transcript string) (Reply, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Reply{}, fmt.Errorf("empty model reply: %w", engine.ErrMalformedOutput)
	}

	parts := map[section]*strings.Builder{}
	current := sectionNone

	for _, line := range strings.Split(text, "\n") {
		if s, rest, ok := matchMarker(line); ok {
			if _, seen := parts[s]; seen {
				current = sectionIgnored
				continue
			}
			parts[s] = &strings.Builder{}
			parts[s].WriteString(rest)
			current = s
			continue
		}

		b, ok := parts[current]
		if !ok {
			continue
		}
		b.WriteString("\n")
		b.WriteString(line)
	}

	get := func(s section) string {
		if b, ok := parts[s]; ok {
			return strings.TrimSpace(b.String())
		}
		return ""
	}

	answer := get(sectionAnswer)
	if answer == "" {
		return Reply{
			CorrectedForm: transcript,
			ReplyText:     text,
			Format:        session.FormatUnstructured,
		}, nil
	}

	corrected := get(sectionCorrected)
	if corrected == "" {
		corrected = transcript
	}

	return Reply{
		CorrectedForm: corrected,
		ReplyText:     answer,
		Explanation:   get(sectionExplanation),
		Format:        session.FormatStructured,
	}, nil
}

func matchMarker(line string) (section, string, bool) {
	trimmed := strings.TrimSpace(line)
	idx := strings.IndexByte(trimmed, ':')
	if idx <= 0 {
		return sectionNone, "", false
	}

	key := strings.ToUpper(strings.TrimSpace(trimmed[:idx]))
	s, ok := markers[key]
	if !ok {
		return sectionNone, "", false
	}
	return s, strings.TrimSpace(trimmed[idx+1:]), true
}
