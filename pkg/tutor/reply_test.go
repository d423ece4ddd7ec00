package tutor_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/engine"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tutor"
)

var _ = Describe("ParseReply", func() {
	const transcript = "Ich habe zwei Mal die Woche trainiert"

	It("parses a fully structured reply", func() {
		raw := "KORRIGIERT: Ich habe zwei Mal die Woche trainiert.\n" +
			"ANTWORT: Klingt super! Was trainierst du genau?\n" +
			"ERKLÄRUNG: 'zwei Mal' sollte 'zweimal' sein."

		reply, err := tutor.ParseReply(raw, transcript)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal(tutor.Reply{
			CorrectedForm: "Ich habe zwei Mal die Woche trainiert.",
			ReplyText:     "Klingt super! Was trainierst du genau?",
			Explanation:   "'zwei Mal' sollte 'zweimal' sein.",
			Format:        session.FormatStructured,
		}))
	})

	It("accepts markers in any order and case", func() {
		raw := "antwort: Gut gemacht!\nErklaerung: Alles richtig.\nkorrigiert: Ich bin müde."

		reply, err := tutor.ParseReply(raw, "Ich bin müde")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.ReplyText).To(Equal("Gut gemacht!"))
		Expect(reply.Explanation).To(Equal("Alles richtig."))
		Expect(reply.CorrectedForm).To(Equal("Ich bin müde."))
	})

	It("joins continuation lines into the open section", func() {
		raw := "ANTWORT: Das klingt toll.\nWohin fährst du?\nERKLÄRUNG: Zeile eins.\nHinweis: Zeile zwei."

		reply, err := tutor.ParseReply(raw, transcript)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.ReplyText).To(Equal("Das klingt toll.\nWohin fährst du?"))
		Expect(reply.Explanation).To(Equal("Zeile eins.\nHinweis: Zeile zwei."))
	})

	It("keeps the first occurrence of a marker", func() {
		raw := "ANTWORT: Erste Antwort.\nANTWORT: Zweite Antwort.\nnoch mehr"

		reply, err := tutor.ParseReply(raw, transcript)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.ReplyText).To(Equal("Erste Antwort."))
	})

	It("ignores text before the first marker", func() {
		raw := "Hier ist meine Antwort:\nANTWORT: Sehr gut!"

		reply, err := tutor.ParseReply(raw, transcript)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.ReplyText).To(Equal("Sehr gut!"))
	})

	It("uses the transcript when KORRIGIERT is missing", func() {
		reply, err := tutor.ParseReply("ANTWORT: Sehr gut!", transcript)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.CorrectedForm).To(Equal(transcript))
		Expect(reply.Explanation).To(BeEmpty())
	})

	It("does not accept bulleted or bold markers", func() {
		raw := "- ANTWORT: Hallo\n**KORRIGIERT:** Hallo."

		reply, err := tutor.ParseReply(raw, transcript)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Format).To(Equal(session.FormatUnstructured))
	})

	DescribeTable("degrades to an unstructured reply",
		func(raw string) {
			reply, err := tutor.ParseReply(raw, transcript)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Format).To(Equal(session.FormatUnstructured))
			Expect(reply.ReplyText).NotTo(BeEmpty())
			Expect(reply.CorrectedForm).To(Equal(transcript))
			Expect(reply.Explanation).To(BeEmpty())
		},
		Entry("plain text", "Das ist super, erzähl mir mehr!"),
		Entry("empty ANTWORT", "KORRIGIERT: Ich habe trainiert.\nANTWORT:   \nERKLÄRUNG: nichts"),
		Entry("only KORRIGIERT", "KORRIGIERT: Ich habe trainiert."),
	)

	It("returns the whole raw text when unstructured", func() {
		reply, err := tutor.ParseReply("  Hallo!\nWie geht's?  ", transcript)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.ReplyText).To(Equal("Hallo!\nWie geht's?"))
	})

	It("rejects empty output as malformed", func() {
		_, err := tutor.ParseReply(" \n\t", transcript)
		Expect(err).To(MatchError(engine.ErrMalformedOutput))
	})
})
