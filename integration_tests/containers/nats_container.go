package containers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupNatsContainer starts a NATS testcontainer with JetStream enabled
// and returns the container instance and the NATS connection URL.
func SetupNatsContainer(ctx context.Context) (*nats.NATSContainer, string, error) {
	log.Println("Starting NATS container...")

	// JetStream is enabled by default in nats.Run.
	natsContainer, err := nats.Run(ctx,
		"nats:2.10-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("Server is ready"),
				wait.ForListeningPort("4222/tcp"),
			).WithDeadline(45*time.Second),
		),
	)
	if err != nil {
		// nats.Run handles termination if startup fails
		return nil, "", fmt.Errorf("failed to start NATS container: %w", err)
	}

	// The NATS module provides a helper to get the connection URL
	natsURL, err := natsContainer.ConnectionString(ctx)
	if err != nil {
		// Terminate the container if getting conn string fails
		terminateErr := natsContainer.Terminate(ctx)
		if terminateErr != nil {
			log.Printf("Failed to terminate NATS container after getting connection string failed: %v", terminateErr)
		}
		return nil, "", fmt.Errorf("failed to get NATS connection string: %w", err)
	}

	log.Printf("NATS container started and ready. URL: %s", natsURL)

	// The caller is responsible for terminating the container.
	return natsContainer, natsURL, nil
}
