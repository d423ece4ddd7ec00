package kafka_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream/kafka"
	testutils "github.com/Dev-Vis1/German-voice-llm-tutor/pkg/utils/test"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w *fakeWriter
		p *kafka.Publisher
	)

	BeforeEach(func() {
		w = &fakeWriter{}

		var err error
		p, err = kafka.NewPublisher(kafka.Config{Writer: w})
		Expect(err).NotTo(HaveOccurred())
	})

	It("writes one message keyed by session id", func() {
		event := eventstream.NewTurnCommittedEvent(eventstream.EventSource{Service: "tutor"}, eventstream.TurnTiming{}, testutils.NewTurn("lerner-7", 2))

		Expect(p.PublishTurn(context.Background(), event)).To(Succeed())
		Expect(w.msgs).To(HaveLen(1))
		Expect(string(w.msgs[0].Key)).To(Equal("lerner-7"))

		var got map[string]any
		Expect(json.Unmarshal(w.msgs[0].Value, &got)).To(Succeed())
		Expect(got).To(HaveKeyWithValue("event_type", eventstream.EventTypeTurnCommitted))
		Expect(got).To(HaveKeyWithValue("event_id", event.EventID))
	})

	It("rejects nil events", func() {
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
		Expect(w.msgs).To(BeEmpty())
	})

	It("returns writer errors", func() {
		w.err = errors.New("leader not available")
		event := eventstream.NewTurnCommittedEvent(eventstream.EventSource{}, eventstream.TurnTiming{}, testutils.NewTurn("s1", 0))

		Expect(p.PublishTurn(context.Background(), event)).To(MatchError(ContainSubstring("leader not available")))
	})

	It("defaults the topic and closes the writer", func() {
		Expect(p.Topic()).To(Equal(kafka.DefaultTopic))
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})

	It("requires brokers without an injected writer", func() {
		_, err := kafka.NewPublisher(kafka.Config{})
		Expect(err).To(HaveOccurred())
	})
})
