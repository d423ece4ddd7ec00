// Package eventstreamutils builds the configured eventstream.Publisher.
package eventstreamutils

import (
	"fmt"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream/kafka"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream/nop"
)

const (
	ProviderNop   = "nop"
	ProviderKafka = "kafka"
)

type NewPublisherOpts struct {
	Provider string
	Brokers  []string
	Topic    string
}

// NewPublisher returns the publisher for o.Provider. An empty provider
// disables publishing.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.Provider {
	case "", ProviderNop:
		return nop.NewPublisher(), nil
	case ProviderKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
		})
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", o.Provider)
	}
}
