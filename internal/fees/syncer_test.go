package fees

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/config"
)

type mockWriter struct {
	mu       sync.Mutex
	calls    []string
	failures int
}

func (m *mockWriter) Call(ctx context.Context, method string, params []any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return nil, errors.New("rpc down")
	}
	tx := params[0].(map[string]any)
	m.calls = append(m.calls, fmt.Sprintf("%s %s", method, tx["data"]))
	return "0xhash", nil
}

type mockLock struct {
	mu       sync.Mutex
	held     bool
	released bool
}

func (m *mockLock) AcquireCooldown(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held {
		return false, nil
	}
	m.held = true
	return true, nil
}

func (m *mockLock) ReleaseCooldown(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = false
	m.released = true
	return nil
}

func syncerConfig() config.FeeContractConfig {
	return config.FeeContractConfig{
		Address:       "0xfee0000000000000000000000000000000000000",
		Network:       "polygon",
		SyncCooldown:  time.Minute,
		RetryAttempts: 2,
	}
}

func TestPush_EncodesBasisPoints(t *testing.T) {
	writer := &mockWriter{}
	syncer := NewSyncer(syncerConfig(), writer, &mockLock{})

	if err := syncer.Push(context.Background(), decimal.NewFromFloat(2.5)); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if len(writer.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(writer.calls))
	}
	// 2.5% -> 250 bps -> 0xfa, zero padded to 32 bytes after the selector.
	if !strings.HasSuffix(writer.calls[0], fmt.Sprintf("%064x", 250)) {
		t.Errorf("expected calldata ending in 250 bps, got %s", writer.calls[0])
	}
	if !strings.Contains(writer.calls[0], setFeeRateSelector) {
		t.Errorf("expected selector %s in calldata", setFeeRateSelector)
	}
}

func TestPush_CooldownSkips(t *testing.T) {
	writer := &mockWriter{}
	lock := &mockLock{held: true}
	syncer := NewSyncer(syncerConfig(), writer, lock)

	if err := syncer.Push(context.Background(), decimal.NewFromFloat(1.0)); err != nil {
		t.Fatalf("Push should treat active cooldown as success, got %v", err)
	}
	if len(writer.calls) != 0 {
		t.Errorf("expected no rpc call under cooldown, got %d", len(writer.calls))
	}
}

func TestPush_RetriesTransientFailure(t *testing.T) {
	writer := &mockWriter{failures: 1}
	syncer := NewSyncer(syncerConfig(), writer, &mockLock{})

	if err := syncer.Push(context.Background(), decimal.NewFromFloat(1.5)); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if len(writer.calls) != 1 {
		t.Errorf("expected eventual success call, got %d", len(writer.calls))
	}
}

func TestPush_ReleasesCooldownOnFailure(t *testing.T) {
	writer := &mockWriter{failures: 10}
	lock := &mockLock{}
	syncer := NewSyncer(syncerConfig(), writer, lock)

	if err := syncer.Push(context.Background(), decimal.NewFromFloat(1.5)); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !lock.released {
		t.Error("expected cooldown released after failed push")
	}
}
