package testutils

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ResetJetStreamState purges all messages from JetStream streams
func (env *TestEnvironment) ResetJetStreamState(ctx context.Context, streamNames ...string) error {
	if env.JetStream == nil {
		return fmt.Errorf("JetStream context is nil")
	}

	for _, streamName := range streamNames {
		stream, err := env.JetStream.Stream(ctx, streamName)
		if err != nil {
			// Stream doesn't exist yet, skip
			if isStreamNotFoundError(err) {
				continue
			}
			log.Printf("Warning: failed to access stream %s: %v", streamName, err)
			continue
		}

		// Purge all messages from the stream (this preserves consumers)
		if err := stream.Purge(ctx); err != nil {
			log.Printf("Warning: failed to purge stream %s: %v", streamName, err)
		}
	}

	return nil
}

// WaitForConsumer waits for a consumer to become ready within the specified timeout
func (env *TestEnvironment) WaitForConsumer(ctx context.Context, streamName, consumerName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		stream, err := env.JetStream.Stream(ctx, streamName)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		_, err = stream.Consumer(ctx, consumerName)
		if err == nil {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("consumer %s/%s not ready after %v", streamName, consumerName, timeout)
}

// isStreamNotFoundError checks if the error indicates a stream was not found
func isStreamNotFoundError(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound)
}
