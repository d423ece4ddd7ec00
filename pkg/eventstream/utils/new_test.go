package eventstreamutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream/kafka"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream/nop"
	eventstreamutils "github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream/utils"
)

var _ = Describe("NewPublisher", func() {
	It("disables publishing by default", func() {
		p, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("builds a kafka publisher", func() {
		p, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			Provider: "kafka",
			Brokers:  []string{"localhost:9092"},
			Topic:    "turns",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		Expect(p.(*kafka.Publisher).Topic()).To(Equal("turns"))
		Expect(p.Close()).To(Succeed())
	})

	It("rejects unknown providers", func() {
		_, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{Provider: "nats"})
		Expect(err).To(HaveOccurred())
	})
})
