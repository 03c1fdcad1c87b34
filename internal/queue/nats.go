package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tracewell-io/tracewell/internal/logging"
	"github.com/tracewell-io/tracewell/internal/metrics"
)

const subject = "tracewell.events"

// NATSJetStream is the durable, at-least-once production Adapter: Watermill
// over NATS JetStream, manual ack/nack, survives broker restart via
// JetStream's own persistence.
type NATSJetStream struct {
	pub message.Publisher
	sub message.Subscriber

	messages <-chan *message.Message
	logger   watermill.LoggerAdapter
}

// NATSJetStreamConfig configures the adapter.
type NATSJetStreamConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	MaxAckPending    int
	AckWaitTimeout   time.Duration
}

// NewNATSJetStream dials brokerURL and subscribes durably to the shared
// events subject.
func NewNATSJetStream(ctx context.Context, cfg NATSJetStreamConfig) (*NATSJetStream, error) {
	wmLogger := watermillLoggerAdapter{}

	if cfg.SubscribersCount <= 0 {
		cfg.SubscribersCount = 4
	}
	if cfg.MaxAckPending <= 0 {
		cfg.MaxAckPending = 256
	}
	if cfg.AckWaitTimeout <= 0 {
		cfg.AckWaitTimeout = 30 * time.Second
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:       cfg.URL,
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
		},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			AckAsync:      false,
			DurablePrefix: cfg.DurableName,
		},
	}, wmLogger)
	if err != nil {
		pub.Close()
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	messages, err := sub.Subscribe(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	return &NATSJetStream{pub: pub, sub: sub, messages: messages, logger: wmLogger}, nil
}

func (n *NATSJetStream) push(typ string, id string, data []byte) error {
	msg := message.NewMessage(id, data)
	msg.Metadata.Set("type", typ)
	msg.Metadata.Set("Nats-Msg-Id", id)

	err := n.pub.Publish(subject, msg)
	if err != nil {
		metrics.QueuePushTotal.WithLabelValues("broker", "error").Inc()
		return fmt.Errorf("publish %s: %w", typ, err)
	}
	metrics.QueuePushTotal.WithLabelValues("broker", "ok").Inc()
	return nil
}

func (n *NATSJetStream) PushDecisionEvent(ctx context.Context, id string, data []byte) error {
	return n.push("decision", id, data)
}

func (n *NATSJetStream) PushDecisionEvents(ctx context.Context, ids []string, data [][]byte) error {
	for i, d := range data {
		if err := n.push("decisions", ids[i], d); err != nil {
			return err
		}
	}
	return nil
}

func (n *NATSJetStream) PushRun(ctx context.Context, id string, data []byte) error {
	return n.push("run", id, data)
}

func (n *NATSJetStream) PushStep(ctx context.Context, id string, data []byte) error {
	return n.push("step", id, data)
}

// Poll drains up to batchSize already-delivered messages from Watermill's
// subscription channel without blocking once it's empty, adapting the
// channel-push delivery model to the processor's pull-based batch loop.
func (n *NATSJetStream) Poll(ctx context.Context, batchSize int) ([]*Message, error) {
	out := make([]*Message, 0, batchSize)
	for len(out) < batchSize {
		select {
		case wmMsg, ok := <-n.messages:
			if !ok {
				metrics.QueuePollBatchSize.Observe(float64(len(out)))
				return out, nil
			}
			out = append(out, &Message{
				ID:       wmMsg.UUID,
				Type:     wmMsg.Metadata.Get("type"),
				Data:     wmMsg.Payload,
				ackFunc:  func() { wmMsg.Ack() },
				nackFunc: func() { wmMsg.Nack() },
			})
		case <-ctx.Done():
			metrics.QueuePollBatchSize.Observe(float64(len(out)))
			return out, ctx.Err()
		default:
			metrics.QueuePollBatchSize.Observe(float64(len(out)))
			return out, nil
		}
	}
	metrics.QueuePollBatchSize.Observe(float64(len(out)))
	return out, nil
}

func (n *NATSJetStream) Close() error {
	if err := n.pub.Close(); err != nil {
		return err
	}
	return n.sub.Close()
}

// watermillLoggerAdapter bridges zerolog to watermill's LoggerAdapter, the
// same shape the teacher accepts in eventprocessor.NewPublisher.
type watermillLoggerAdapter struct{}

func (a watermillLoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	log := logging.Logger()
	log.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (a watermillLoggerAdapter) Info(msg string, fields watermill.LogFields) {
	log := logging.Logger()
	log.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (a watermillLoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	log := logging.Logger()
	log.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (a watermillLoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	log := logging.Logger()
	log.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (a watermillLoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return a
}
