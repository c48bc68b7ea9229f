//go:build integration

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/fx-rates-proxy/internal/config"
	"github.com/Sternrassler/fx-rates-proxy/internal/testutil"
)

func setupTestRedis(t *testing.T) string {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() { redisC.Terminate(context.Background()) })

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return host + ":" + port.Port()
}

func TestIntegration_RedisBackend(t *testing.T) {
	provider := testutil.NewMockProvider()
	defer provider.Close()
	provider.SetRate("USD", "EUR", 0.92)

	cfg := testConfig(t, provider.URL())
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisURL = setupTestRedis(t)

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer st.Close()

	a, err := newApp(cfg, st, zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	server := httptest.NewServer(a.handler)
	defer server.Close()

	t.Run("ready", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/ready")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}
	})

	t.Run("rates persisted", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/rates?base=USD&targets=EUR")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
		}

		entry, err := st.GetRate(context.Background(), "USD", "EUR")
		if err != nil {
			t.Fatalf("GetRate failed: %v", err)
		}
		if entry.Rate != 0.92 {
			t.Errorf("Rate = %v, want 0.92", entry.Rate)
		}
	})

	t.Run("not ready when redis closed", func(t *testing.T) {
		st.Close()

		resp, err := http.Get(server.URL + "/ready")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", resp.StatusCode)
		}
	})
}
