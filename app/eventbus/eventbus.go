package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nats-io/nkeys"
)

// EventBus publishes and consumes watermill messages over NATS JetStream.
type EventBus interface {
	message.Publisher
	message.Subscriber
	// CreateStream makes sure a stream exists and captures subject.
	CreateStream(ctx context.Context, streamName string, subject string) error
}

// Config holds the NATS connection settings.
type Config struct {
	URL string
	// NkeySeed authenticates with an nkey when set.
	NkeySeed string
	// QueueGroup load-balances deliveries across engine instances.
	QueueGroup string
}

// eventBus implements the EventBus interface.
type eventBus struct {
	publisher      message.Publisher
	subscriber     message.Subscriber
	js             jetstream.JetStream
	natsConn       *nc.Conn
	logger         *slog.Logger
	createdStreams map[string]bool
	streamMutex    sync.Mutex
}

// NewEventBus creates and returns an EventBus with a connection to NATS JetStream.
func NewEventBus(ctx context.Context, cfg Config, logger *slog.Logger) (EventBus, error) {
	natsOptions, err := connectOptions(cfg)
	if err != nil {
		return nil, err
	}

	natsConn, err := nc.Connect(cfg.URL, natsOptions...)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		logger.ErrorContext(ctx, "Failed to initialize JetStream", slog.Any("error", err))
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	watermillLogger := watermill.NewSlogLogger(logger)
	marshaller := &nats.NATSMarshaler{}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         cfg.URL,
			NatsOptions: natsOptions,
			Marshaler:   marshaller,
			JetStream: nats.JetStreamConfig{
				TrackMsgId: true,
			},
			SubjectCalculator: nats.DefaultSubjectCalculator,
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		logger.ErrorContext(ctx, "Failed to create Watermill publisher", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	queueGroup := cfg.QueueGroup
	if queueGroup == "" {
		queueGroup = "tournament-engine"
	}
	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              cfg.URL,
			QueueGroupPrefix: queueGroup,
			CloseTimeout:     30 * time.Second,
			AckWaitTimeout:   30 * time.Second,
			NatsOptions:      natsOptions,
			Unmarshaler:      marshaller,
			JetStream: nats.JetStreamConfig{
				DurablePrefix: queueGroup,
				SubscribeOptions: []nc.SubOpt{
					nc.DeliverAll(),
					nc.AckExplicit(),
				},
			},
			SubjectCalculator: nats.DefaultSubjectCalculator,
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		publisher.Close()
		logger.ErrorContext(ctx, "Failed to create Watermill subscriber", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	return &eventBus{
		publisher:      publisher,
		subscriber:     subscriber,
		js:             js,
		natsConn:       natsConn,
		logger:         logger,
		createdStreams: make(map[string]bool),
	}, nil
}

// connectOptions builds the NATS options shared by every connection.
func connectOptions(cfg Config) ([]nc.Option, error) {
	opts := []nc.Option{
		nc.Name("tournament-engine"),
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(-1),
	}
	if cfg.NkeySeed == "" {
		return opts, nil
	}

	kp, err := nkeys.FromSeed([]byte(cfg.NkeySeed))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS nkey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive nkey public key: %w", err)
	}
	return append(opts, nc.Nkey(pub, kp.Sign)), nil
}

// Publish sends messages to the subject named by topic.
func (eb *eventBus) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		if msg.UUID == "" {
			msg.UUID = watermill.NewUUID()
		}
		eb.logger.Debug("Publishing message",
			slog.String("topic", topic),
			slog.String("message_id", msg.UUID),
			slog.String("correlation_id", msg.Metadata.Get("correlation_id")),
		)
	}

	if err := eb.publisher.Publish(topic, msgs...); err != nil {
		eb.logger.Error("Failed to publish message",
			slog.String("topic", topic),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish message to JetStream: %w", err)
	}
	return nil
}

// Subscribe returns the message channel for topic.
func (eb *eventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	eb.logger.InfoContext(ctx, "Subscribing to subject", slog.String("subject", topic))

	messages, err := eb.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to subject %s: %w", topic, err)
	}
	return messages, nil
}

func (eb *eventBus) CreateStream(ctx context.Context, streamName string, subject string) error {
	eb.logger.InfoContext(ctx, "Creating stream", "stream_name", streamName, "subject", subject)

	eb.streamMutex.Lock()
	defer eb.streamMutex.Unlock()

	if eb.createdStreams[streamName] {
		return nil
	}

	stream, err := eb.js.Stream(ctx, streamName)
	if err != nil && !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to check if stream exists: %w", err)
	}

	if errors.Is(err, jetstream.ErrStreamNotFound) {
		_, err = eb.js.CreateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject},
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		eb.logger.InfoContext(ctx, "Stream created", "stream_name", streamName, "subject", subject)
	} else {
		streamInfo, err := stream.Info(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stream info: %w", err)
		}

		if !slices.Contains(streamInfo.Config.Subjects, subject) {
			streamInfo.Config.Subjects = append(streamInfo.Config.Subjects, subject)
			if _, err := eb.js.UpdateStream(ctx, streamInfo.Config); err != nil {
				return fmt.Errorf("failed to update stream with new subject: %w", err)
			}
			eb.logger.InfoContext(ctx, "Stream updated with new subject", "stream_name", streamName, "subject", subject)
		}
	}

	eb.createdStreams[streamName] = true
	return nil
}

// Close closes all NATS and Watermill resources.
func (eb *eventBus) Close() error {
	if eb.publisher != nil {
		if err := eb.publisher.Close(); err != nil {
			eb.logger.Error("Error closing NATS publisher", "error", err)
		}
	}
	if eb.subscriber != nil {
		if err := eb.subscriber.Close(); err != nil {
			eb.logger.Error("Error closing NATS subscriber", "error", err)
		}
	}
	if eb.natsConn != nil {
		eb.natsConn.Close()
	}
	return nil
}
