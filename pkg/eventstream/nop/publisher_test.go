package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	var p eventstream.Publisher

	BeforeEach(func() {
		p = nop.NewPublisher()
	})

	It("returns ErrNilTurnEvent for nil events", func() {
		err := p.PublishTurn(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("accepts events", func() {
		err := p.PublishTurn(context.Background(), &eventstream.TurnCommittedEvent{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("closes successfully", func() {
		Expect(p.Close()).To(Succeed())
	})
})
