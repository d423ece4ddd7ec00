package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive,staticcheck // shared specs
	. "github.com/onsi/gomega"    //nolint:revive,staticcheck // shared specs

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

// NewTurn builds a committed turn for session id at index.
func NewTurn(id string, index int) *session.Turn {
	return &session.Turn{
		SessionID:     id,
		Index:         index,
		Transcript:    fmt.Sprintf("Ich habe Hunger %d", index),
		CorrectedForm: fmt.Sprintf("Ich habe Hunger %d.", index),
		ReplyText:     fmt.Sprintf("Was möchtest du essen? %d", index),
		Explanation:   "Satzzeichen am Ende.",
		AudioURL:      fmt.Sprintf("/audio/%s/%d.wav", id, index),
		Provenance: session.Provenance{
			STTEngine:   "whisper-cli",
			TutorEngine: "ollama",
			TTSEngine:   "espeak",
			ReplyFormat: session.FormatStructured,
		},
		Status:    session.StatusOK,
		State:     session.StateCommitted,
		Topic:     "restaurant",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Add(time.Duration(index) * time.Second),
	}
}

// SessionDriverSpecs registers the behavior every session.Driver shares.
// newDriver is called before each spec and must return an empty store.
func SessionDriverSpecs(newDriver func() session.Driver) {
	var (
		ctx    context.Context
		driver session.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
		DeferCleanup(func() { Expect(driver.Close()).To(Succeed()) })
	})

	appendN := func(id string, n int) {
		for i := range n {
			Expect(driver.Append(ctx, id, NewTurn(id, i))).To(Succeed())
		}
	}

	Describe("CreateIfAbsent", func() {
		It("creates a session with zero turns", func() {
			s, err := driver.CreateIfAbsent(ctx, "s1", "restaurant")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.ID).To(Equal("s1"))
			Expect(s.Topic).To(Equal("restaurant"))
			Expect(s.TurnCount).To(Equal(0))
			Expect(s.CreatedAt).NotTo(BeZero())
		})

		It("returns the existing session and keeps its topic", func() {
			_, err := driver.CreateIfAbsent(ctx, "s1", "restaurant")
			Expect(err).NotTo(HaveOccurred())
			appendN("s1", 2)

			s, err := driver.CreateIfAbsent(ctx, "s1", "doctor")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Topic).To(Equal("restaurant"))
			Expect(s.TurnCount).To(Equal(2))
		})
	})

	Describe("Get", func() {
		It("returns NotFoundError for unknown sessions", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(session.IsNotFound(err)).To(BeTrue())
		})

		It("reflects the committed turn count", func() {
			_, err := driver.CreateIfAbsent(ctx, "s1", "travel")
			Expect(err).NotTo(HaveOccurred())
			appendN("s1", 3)

			s, err := driver.Get(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.TurnCount).To(Equal(3))
		})
	})

	Describe("Append", func() {
		BeforeEach(func() {
			_, err := driver.CreateIfAbsent(ctx, "s1", "restaurant")
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps indices gap free", func() {
			appendN("s1", 7)

			turns, err := driver.History(ctx, "s1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(7))
			for i, t := range turns {
				Expect(t.Index).To(Equal(i))
			}
		})

		It("rejects a duplicate index", func() {
			appendN("s1", 2)
			err := driver.Append(ctx, "s1", NewTurn("s1", 1))
			Expect(err).To(MatchError(session.ErrStateConflict))
		})

		It("rejects an index that skips ahead", func() {
			appendN("s1", 1)
			err := driver.Append(ctx, "s1", NewTurn("s1", 3))
			Expect(err).To(MatchError(session.ErrStateConflict))

			s, err := driver.Get(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.TurnCount).To(Equal(1))
		})

		It("rejects unknown sessions", func() {
			err := driver.Append(ctx, "other", NewTurn("other", 0))
			Expect(session.IsNotFound(err)).To(BeTrue())
		})

		It("rejects turns for another session", func() {
			err := driver.Append(ctx, "s1", NewTurn("other", 0))
			Expect(err).To(MatchError(session.ErrInvalidTurn))
		})

		It("preserves every turn field", func() {
			want := NewTurn("s1", 0)
			want.Status = session.StatusPartial
			want.AudioURL = ""
			want.Provenance.ReplyFormat = session.FormatTemplate
			want.Provenance.Failures = []session.StageFailure{
				{Stage: "tutor", Engine: "ollama", Kind: "unavailable", Error: "connection refused"},
			}
			Expect(driver.Append(ctx, "s1", want)).To(Succeed())

			turns, err := driver.History(ctx, "s1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(1))

			got := turns[0]
			Expect(got.CreatedAt.Equal(want.CreatedAt)).To(BeTrue())
			got.CreatedAt = want.CreatedAt
			Expect(got).To(Equal(want))
		})

		It("keeps committed failures apart from caller slices", func() {
			turn := NewTurn("s1", 0)
			turn.Provenance.Failures = make([]session.StageFailure, 1, 4)
			turn.Provenance.Failures[0] = session.StageFailure{Stage: "tts", Engine: "openai", Kind: "timeout", Error: "deadline exceeded"}
			Expect(driver.Append(ctx, "s1", turn)).To(Succeed())

			turn.Provenance.Failures[0].Engine = "changed"
			turn.Provenance.Failures = append(turn.Provenance.Failures, session.StageFailure{Stage: "stt"})

			read, err := driver.History(ctx, "s1", 0)
			Expect(err).NotTo(HaveOccurred())
			read[0].Provenance.Failures[0].Kind = "changed"

			turns, err := driver.History(ctx, "s1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns[0].Provenance.Failures).To(Equal([]session.StageFailure{
				{Stage: "tts", Engine: "openai", Kind: "timeout", Error: "deadline exceeded"},
			}))
		})

		It("serializes concurrent appends into distinct indices", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			accepted := map[int]int{}

			// Every goroutine races for indices 0..4; exactly one wins each.
			for range 4 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					for i := range 5 {
						if err := driver.Append(ctx, "s1", NewTurn("s1", i)); err == nil {
							mu.Lock()
							accepted[i]++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			turns, err := driver.History(ctx, "s1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(5))
			for i, t := range turns {
				Expect(t.Index).To(Equal(i))
				Expect(accepted[i]).To(Equal(1))
			}
		})
	})

	Describe("History", func() {
		BeforeEach(func() {
			_, err := driver.CreateIfAbsent(ctx, "s1", "restaurant")
			Expect(err).NotTo(HaveOccurred())
			appendN("s1", 20)
		})

		It("returns the most recent turns in index order", func() {
			turns, err := driver.History(ctx, "s1", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(5))
			for i, t := range turns {
				Expect(t.Index).To(Equal(15 + i))
			}
		})

		It("returns everything for a limit larger than the log", func() {
			turns, err := driver.History(ctx, "s1", 50)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(20))
		})

		It("returns NotFoundError for unknown sessions", func() {
			_, err := driver.History(ctx, "missing", 5)
			Expect(session.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("List and Purge", func() {
		It("lists sessions and removes purged ones", func() {
			_, err := driver.CreateIfAbsent(ctx, "a", "work")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.CreateIfAbsent(ctx, "b", "doctor")
			Expect(err).NotTo(HaveOccurred())
			appendN("b", 2)

			list, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))

			Expect(driver.Purge(ctx, "b")).To(Succeed())
			list, err = driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal("a"))

			_, err = driver.History(ctx, "b", 0)
			Expect(session.IsNotFound(err)).To(BeTrue())
		})

		It("returns NotFoundError when purging an unknown session", func() {
			Expect(session.IsNotFound(driver.Purge(ctx, "missing"))).To(BeTrue())
		})

		It("starts a purged id over at index zero", func() {
			_, err := driver.CreateIfAbsent(ctx, "a", "work")
			Expect(err).NotTo(HaveOccurred())
			appendN("a", 3)
			Expect(driver.Purge(ctx, "a")).To(Succeed())

			s, err := driver.CreateIfAbsent(ctx, "a", "travel")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.TurnCount).To(Equal(0))
			Expect(s.Topic).To(Equal("travel"))
		})
	})
}
