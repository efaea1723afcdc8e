package events

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// SequenceNumberMetadataKey is the watermill message metadata key carrying
// the fan-out sequence number.
const SequenceNumberMetadataKey = "sequence_number"

// PublisherManager fans one event stream out to several watermill
// publishers, each registered under a topic. Every outgoing message is
// stamped with a monotonically increasing sequence number so consumers can
// reorder or detect gaps.
type PublisherManager struct {
	mu         sync.Mutex
	publishers map[string][]message.Publisher
	sequence   uint64
}

func NewPublisherManager() *PublisherManager {
	return &PublisherManager{
		publishers: make(map[string][]message.Publisher),
	}
}

// SubscribePublisher registers a publisher to receive all future messages
// under the given topic.
func (m *PublisherManager) SubscribePublisher(topic string, pub message.Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishers[topic] = append(m.publishers[topic], pub)
}

// Publish serializes the payload to JSON and distributes it to every
// registered publisher on its topic. Delivery failures of individual
// publishers are logged, not returned; the sequence number advances once
// per payload regardless.
func (m *PublisherManager) Publish(payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// The lock covers sequence assignment and delivery so subscribers see
	// sequence numbers in publish order.
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set(SequenceNumberMetadataKey, strconv.FormatUint(m.sequence, 10))
	m.sequence++

	for topic, pubs := range m.publishers {
		for _, pub := range pubs {
			if err := pub.Publish(topic, msg); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("failed to publish")
			}
		}
	}

	return nil
}

// PublishBlind is Publish with the error logged instead of returned.
func (m *PublisherManager) PublishBlind(payload interface{}) {
	if err := m.Publish(payload); err != nil {
		log.Warn().Err(err).Msg("failed to publish")
	}
}

// PublishEvent implements EventSink, so a PublisherManager can be attached
// to a context via WithEventSinks.
func (m *PublisherManager) PublishEvent(event Event) error {
	return m.Publish(event)
}

var _ EventSink = (*PublisherManager)(nil)
