package tutor_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/engine"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tutor"
	testutils "github.com/Dev-Vis1/German-voice-llm-tutor/pkg/utils/test"
)

func history(id string, n int) []*session.Turn {
	turns := make([]*session.Turn, 0, n)
	for i := range n {
		turns = append(turns, testutils.NewTurn(id, i))
	}
	return turns
}

var _ = Describe("Client", func() {
	var (
		ctx context.Context
		gen *testutils.MockGenerator
	)

	BeforeEach(func() {
		ctx = context.Background()
		gen = &testutils.MockGenerator{
			Response: "KORRIGIERT: Ich habe Hunger.\nANTWORT: Was möchtest du essen?\nERKLÄRUNG: Punkt am Satzende.",
		}
	})

	It("returns the parsed reply", func() {
		c := tutor.NewClient(tutor.Config{Generator: gen})

		res := c.Ask(ctx, "Ich habe Hunger", "restaurant", nil)

		Expect(res.OK()).To(BeTrue())
		Expect(res.Engine).To(Equal("ollama"))
		Expect(res.Value.CorrectedForm).To(Equal("Ich habe Hunger."))
		Expect(res.Value.ReplyText).To(Equal("Was möchtest du essen?"))
		Expect(res.Value.Format).To(Equal(session.FormatStructured))
		Expect(gen.Calls()).To(Equal(1))
	})

	It("rejects an empty transcript without calling the model", func() {
		c := tutor.NewClient(tutor.Config{Generator: gen})

		res := c.Ask(ctx, "  ", "restaurant", nil)

		Expect(res.OK()).To(BeFalse())
		Expect(res.Failure.Kind).To(Equal(engine.KindMalformedOutput))
		Expect(gen.Calls()).To(Equal(0))
	})

	It("fails when the model is unreachable", func() {
		gen.Err = errors.New("dial tcp 127.0.0.1:11434: connection refused")
		c := tutor.NewClient(tutor.Config{Generator: gen})

		res := c.Ask(ctx, "Ich habe Hunger", "restaurant", nil)

		Expect(res.OK()).To(BeFalse())
		Expect(res.Failure.Kind).To(Equal(engine.KindUnavailable))
		Expect(gen.Calls()).To(Equal(1))
	})

	It("fails with a timeout when the model is slow", func() {
		gen.Delay = time.Second
		c := tutor.NewClient(tutor.Config{Generator: gen, Timeout: 20 * time.Millisecond})

		res := c.Ask(ctx, "Ich habe Hunger", "restaurant", nil)

		Expect(res.OK()).To(BeFalse())
		Expect(res.Failure.Kind).To(Equal(engine.KindTimeout))
	})

	It("fails on an empty completion", func() {
		gen.Response = "\n"
		c := tutor.NewClient(tutor.Config{Generator: gen})

		res := c.Ask(ctx, "Ich habe Hunger", "restaurant", nil)

		Expect(res.OK()).To(BeFalse())
		Expect(res.Failure.Kind).To(Equal(engine.KindMalformedOutput))
	})

	It("sends only the most recent turns", func() {
		c := tutor.NewClient(tutor.Config{Generator: gen, HistoryLimit: 5})

		res := c.Ask(ctx, "Ich habe Hunger", "restaurant", history("s1", 20))
		Expect(res.OK()).To(BeTrue())

		prompt := gen.LastPrompt()
		for i := range 15 {
			Expect(prompt).NotTo(ContainSubstring(fmt.Sprintf("Ich habe Hunger %d\n", i)))
		}
		for i := 15; i < 20; i++ {
			Expect(prompt).To(ContainSubstring(fmt.Sprintf("Ich habe Hunger %d\n", i)))
		}
		Expect(c.HistoryLimit()).To(Equal(5))
	})

	It("uses the prompt source", func() {
		c := tutor.NewClient(tutor.Config{Generator: gen, Prompt: tutor.StaticPrompt("Sei streng.")})

		c.Ask(ctx, "Ich habe Hunger", "restaurant", nil)

		Expect(strings.HasPrefix(gen.LastPrompt(), "Sei streng.")).To(BeTrue())
	})

	It("fails without a generator", func() {
		c := tutor.NewClient(tutor.Config{})

		res := c.Ask(ctx, "Ich habe Hunger", "restaurant", nil)

		Expect(res.OK()).To(BeFalse())
		Expect(res.Failure.Err).To(MatchError(engine.ErrNoEngines))
	})
})

var _ = Describe("BuildPrompt", func() {
	It("lays out instruction, topic, history and utterance", func() {
		turns := []*session.Turn{
			{Transcript: "Hallo", ReplyText: "Hallo! Wie geht's?"},
			{Status: session.StatusFailed},
		}

		prompt := tutor.BuildPrompt("System.", "travel", turns, "Mir geht's gut")

		Expect(prompt).To(Equal("System.\n\n" +
			"Thema: travel\n\n" +
			"Bisheriges Gespräch:\n" +
			"Lernender: Hallo\n" +
			"Tutor: Hallo! Wie geht's?\n\n" +
			"Lernender: Mir geht's gut\n" +
			"Tutor:"))
	})

	It("omits empty sections", func() {
		Expect(tutor.BuildPrompt("System.", "", nil, "Hallo")).To(Equal("System.\n\nLernender: Hallo\nTutor:"))
	})

	It("falls back to the built-in instruction", func() {
		Expect(tutor.StaticPrompt("").SystemPrompt()).To(Equal(tutor.DefaultSystemPrompt))
	})
})
