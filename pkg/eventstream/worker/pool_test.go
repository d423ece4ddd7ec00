package worker

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream"
	testutils "github.com/Dev-Vis1/German-voice-llm-tutor/pkg/utils/test"
)

// recordingPublisher keeps every published event. When block is set each
// publish signals started and waits for block to be closed.
type recordingPublisher struct {
	mu      sync.Mutex
	events  []*eventstream.TurnCommittedEvent
	err     error
	closed  bool
	started chan struct{}
	block   chan struct{}
}

func (r *recordingPublisher) PublishTurn(_ context.Context, event *eventstream.TurnCommittedEvent) error {
	if r.block != nil {
		r.started <- struct{}{}
		<-r.block
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingPublisher) published() []*eventstream.TurnCommittedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*eventstream.TurnCommittedEvent(nil), r.events...)
}

func newEvent(id string, index int) *eventstream.TurnCommittedEvent {
	return eventstream.NewTurnCommittedEvent(eventstream.EventSource{Service: "tutor"}, eventstream.TurnTiming{}, testutils.NewTurn(id, index))
}

var _ = Describe("Worker Pool", func() {
	var pub *recordingPublisher

	BeforeEach(func() {
		pub = &recordingPublisher{}
	})

	It("requires a publisher", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(HaveOccurred())
	})

	It("publishes every enqueued event before Close returns", func() {
		wp, err := NewPool(&Config{Publisher: pub})
		Expect(err).NotTo(HaveOccurred())

		for i := range 10 {
			Expect(wp.Enqueue(newEvent("s1", i))).To(BeTrue())
		}
		Expect(wp.Close()).To(Succeed())

		Expect(pub.published()).To(HaveLen(10))
		Expect(pub.closed).To(BeTrue())
	})

	It("drops events when the queue is full", func() {
		pub.started = make(chan struct{}, 1)
		pub.block = make(chan struct{})

		wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.Enqueue(newEvent("s1", 0))).To(BeTrue())
		Eventually(pub.started).Should(Receive())

		Expect(wp.Enqueue(newEvent("s1", 1))).To(BeTrue())
		Expect(wp.Enqueue(newEvent("s1", 2))).To(BeFalse())

		go func() {
			defer GinkgoRecover()
			for range pub.started {
			}
		}()
		close(pub.block)
		Expect(wp.Close()).To(Succeed())
		close(pub.started)

		Expect(pub.published()).To(HaveLen(2))
	})

	It("keeps going after a publish error", func() {
		pub.err = errors.New("broker down")

		wp, err := NewPool(&Config{Publisher: pub})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.Enqueue(newEvent("s1", 0))).To(BeTrue())
		Expect(wp.Close()).To(Succeed())
		Expect(pub.published()).To(BeEmpty())
	})

	It("ignores nil events and tolerates a second Close", func() {
		wp, err := NewPool(&Config{Publisher: pub})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.Enqueue(nil)).To(BeFalse())
		Expect(wp.Close()).To(Succeed())
		Expect(wp.Close()).To(Succeed())
	})
})
