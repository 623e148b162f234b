package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestNewRedisClient tests client initialization
func TestNewRedisClient(t *testing.T) {
	tests := []struct {
		name      string
		config    RedisConfig
		wantError bool
		wantAddr  string
	}{
		{
			name: "default config",
			config: RedisConfig{
				Host: "localhost",
				Port: 6379,
			},
			wantAddr: "localhost:6379",
		},
		{
			name: "custom config with all fields",
			config: RedisConfig{
				Host:         "redis.example.com",
				Port:         6380,
				Password:     "secret",
				DB:           1,
				PoolSize:     20,
				MinIdleConns: 10,
				MaxRetries:   5,
				DialTimeout:  10 * time.Second,
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 5 * time.Second,
			},
			wantAddr: "redis.example.com:6380",
		},
		{
			name:     "empty config uses defaults",
			config:   RedisConfig{},
			wantAddr: "localhost:6379",
		},
		{
			name:      "port out of range",
			config:    RedisConfig{Port: 70000},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewRedisClient(tt.config)

			if (err != nil) != tt.wantError {
				t.Fatalf("NewRedisClient() error = %v, wantError %v", err, tt.wantError)
			}
			if tt.wantError {
				return
			}
			defer client.Close()

			if got := client.Config().Addr(); got != tt.wantAddr {
				t.Errorf("Expected addr %s, got %s", tt.wantAddr, got)
			}
			if client.Config().PoolSize == 0 {
				t.Error("Expected PoolSize to be set")
			}
			if client.Config().ReadTimeout == 0 {
				t.Error("Expected ReadTimeout to be set")
			}
		})
	}
}

// TestDefaultRedisConfig tests default configuration
func TestDefaultRedisConfig(t *testing.T) {
	config := DefaultRedisConfig()

	if config.Host != "localhost" {
		t.Errorf("Expected host localhost, got %s", config.Host)
	}
	if config.Port != 6379 {
		t.Errorf("Expected port 6379, got %d", config.Port)
	}
	if config.WriteTimeout < 10*time.Second {
		t.Errorf("Expected a write timeout long enough for snapshots, got %v", config.WriteTimeout)
	}
}

// liveClient connects to the local Redis or skips the test
func liveClient(t *testing.T) *RedisClient {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	client, err := NewRedisClient(DefaultRedisConfig())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		client.Close()
		t.Skipf("Redis not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisClient_SetGetBytes(t *testing.T) {
	client := liveClient(t)
	ctx := context.Background()

	key := "tbuie:test:bytes"
	value := []byte{0, 1, 2, 255}
	if err := client.Set(ctx, key, value, 10*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	defer client.Del(ctx, key)

	got, err := client.GetBytes(ctx, key)
	if err != nil {
		t.Fatalf("GetBytes failed: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("Expected %v, got %v", value, got)
	}
	t.Log("✅ binary round trip successful")
}

func TestRedisClient_GetBytesMissing(t *testing.T) {
	client := liveClient(t)

	_, err := client.GetBytes(context.Background(), "tbuie:test:missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestRedisClient_SetMany(t *testing.T) {
	client := liveClient(t)
	ctx := context.Background()

	values := map[string][]byte{
		"tbuie:test:many:a": []byte("a"),
		"tbuie:test:many:b": []byte("b"),
	}
	if err := client.SetMany(ctx, values, 30*time.Second); err != nil {
		t.Fatalf("SetMany failed: %v", err)
	}
	defer client.Del(ctx, "tbuie:test:many:a", "tbuie:test:many:b")

	for key, want := range values {
		got, err := client.GetBytes(ctx, key)
		if err != nil {
			t.Fatalf("GetBytes(%s) failed: %v", key, err)
		}
		if string(got) != string(want) {
			t.Errorf("Expected %q for %s, got %q", want, key, got)
		}
	}

	ttl, err := client.TTL(ctx, "tbuie:test:many:a")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > 30*time.Second {
		t.Errorf("Expected TTL within (0, 30s], got %v", ttl)
	}
}

func TestRedisClient_PoolStats(t *testing.T) {
	client, err := NewRedisClient(DefaultRedisConfig())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	if client.PoolStats() == nil {
		t.Error("Expected pool stats")
	}
}
