package session_test

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

var _ = Describe("ValidID", func() {
	DescribeTable("session ids",
		func(id string, ok bool) {
			Expect(session.ValidID(id)).To(Equal(ok))
		},
		Entry("uuid", "3f1c2a9e-8d7b-4f5e-9a1b-2c3d4e5f6a7b", true),
		Entry("word", "abc_DEF-09", true),
		Entry("empty", "", false),
		Entry("path traversal", "../etc", false),
		Entry("space", "a b", false),
		Entry("too long", strings.Repeat("a", 65), false),
	)
})

var _ = Describe("Tail", func() {
	turns := func(n int) []*session.Turn {
		out := make([]*session.Turn, n)
		for i := range out {
			out[i] = &session.Turn{Index: i}
		}
		return out
	}

	It("keeps the most recent turns", func() {
		got := session.Tail(turns(20), 5)
		Expect(got).To(HaveLen(5))
		Expect(got[0].Index).To(Equal(15))
		Expect(got[4].Index).To(Equal(19))
	})

	It("returns everything for a non-positive limit", func() {
		Expect(session.Tail(turns(3), 0)).To(HaveLen(3))
		Expect(session.Tail(turns(3), -1)).To(HaveLen(3))
	})
})

var _ = Describe("CheckAppend", func() {
	s := &session.Session{ID: "s1", TurnCount: 2}

	It("accepts the next index", func() {
		Expect(session.CheckAppend(s, &session.Turn{SessionID: "s1", Index: 2})).To(Succeed())
	})

	It("rejects other indices as state conflicts", func() {
		Expect(session.CheckAppend(s, &session.Turn{SessionID: "s1", Index: 1})).To(MatchError(session.ErrStateConflict))
		Expect(session.CheckAppend(s, &session.Turn{SessionID: "s1", Index: 3})).To(MatchError(session.ErrStateConflict))
	})

	It("rejects nil and foreign turns", func() {
		Expect(session.CheckAppend(s, nil)).To(MatchError(session.ErrInvalidTurn))
		Expect(session.CheckAppend(s, &session.Turn{SessionID: "s2", Index: 2})).To(MatchError(session.ErrInvalidTurn))
	})
})

var _ = Describe("NotFoundError", func() {
	It("formats with and without an id", func() {
		Expect(session.NotFoundError{}.Error()).To(Equal("session not found"))
		Expect(session.NotFoundError{ID: "x"}.Error()).To(Equal("session not found: x"))
	})
})

var _ = Describe("Provenance", func() {
	It("is degraded after a failure or a templated reply", func() {
		Expect(session.Provenance{}.Degraded()).To(BeFalse())
		Expect(session.Provenance{ReplyFormat: session.FormatTemplate}.Degraded()).To(BeTrue())
		Expect(session.Provenance{Failures: []session.StageFailure{{Stage: "tts"}}}.Degraded()).To(BeTrue())
	})
})

var _ = Describe("Turn", func() {
	It("clones without sharing failures", func() {
		t := &session.Turn{SessionID: "s1", Index: 2}
		t.Provenance.Failures = []session.StageFailure{{Stage: "stt", Kind: "timeout"}}

		c := t.Clone()
		c.Provenance.Failures[0].Kind = "unavailable"

		Expect(c.SessionID).To(Equal("s1"))
		Expect(c.Index).To(Equal(2))
		Expect(t.Provenance.Failures[0].Kind).To(Equal("timeout"))
	})

	It("keeps an empty failure list empty", func() {
		Expect((&session.Turn{}).Clone().Provenance.Failures).To(BeNil())
	})
})

var _ = Describe("Locker", func() {
	It("serializes holders of the same id", func() {
		l := session.NewLocker()
		var active, maxActive int32
		var wg sync.WaitGroup

		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := l.Lock("s1")
				defer unlock()

				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
			}()
		}
		wg.Wait()

		Expect(maxActive).To(Equal(int32(1)))
		Expect(l.Len()).To(Equal(0))
	})

	It("does not block different ids", func() {
		l := session.NewLocker()
		unlockA := l.Lock("a")
		defer unlockA()

		done := make(chan struct{})
		go func() {
			unlock := l.Lock("b")
			unlock()
			close(done)
		}()
		Eventually(done).Should(BeClosed())
	})

	It("tolerates a double unlock", func() {
		l := session.NewLocker()
		unlock := l.Lock("a")
		unlock()
		unlock()
		Expect(l.Len()).To(Equal(0))
	})
})
