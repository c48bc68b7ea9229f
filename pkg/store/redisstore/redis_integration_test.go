//go:build integration

package redisstore

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/fx-rates-proxy/pkg/store"
	"github.com/Sternrassler/fx-rates-proxy/pkg/store/storetest"
)

// setupRedisContainer starts a Redis container and returns its address.
func setupRedisContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		redisContainer.Terminate(context.Background())
	})

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}
	return endpoint
}

func TestIntegration_Conformance(t *testing.T) {
	addr := setupRedisContainer(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.FlushDB(context.Background()).Err(); err != nil {
			t.Fatalf("Failed to flush: %v", err)
		}
		t.Cleanup(func() { client.Close() })
		return New(client)
	})
}

func TestIntegration_Open(t *testing.T) {
	addr := setupRedisContainer(t)

	s, err := Open(context.Background(), "redis://"+addr+"/2")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
