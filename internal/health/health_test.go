package health

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"
)

type mockProber struct {
	price *big.Int
	err   error
	calls int
}

func (m *mockProber) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	m.calls++
	return m.price, m.err
}

type fixedCounter int

func (f fixedCounter) Subscribers() int { return int(f) }

func TestMonitor_HealthyNode(t *testing.T) {
	prober := &mockProber{price: big.NewInt(1)}
	m := NewMonitor(prober, fixedCounter(2), fixedCounter(3))

	report := m.Check(context.Background())

	if report.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.Status)
	}
	if !report.Node.Connected {
		t.Error("expected node connected")
	}
	if report.Streams.ChatSubscribers != 2 || report.Streams.MessageSubscribers != 3 {
		t.Errorf("unexpected stream counts: %+v", report.Streams)
	}
}

func TestMonitor_UnreachableNodeIsCritical(t *testing.T) {
	prober := &mockProber{err: errors.New("dial tcp: connection refused")}
	m := NewMonitor(prober, nil, nil)

	report := m.Check(context.Background())

	if report.Status != StatusCritical {
		t.Errorf("expected critical, got %s", report.Status)
	}
	if report.Node.Connected {
		t.Error("expected node disconnected")
	}
	if report.Node.Error == "" {
		t.Error("expected probe error recorded")
	}
}

type blockingProber struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (b *blockingProber) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.entered <- struct{}{}
	<-b.release
	return big.NewInt(1), nil
}

func TestMonitor_SlowProbeDoesNotSerializeChecks(t *testing.T) {
	prober := &blockingProber{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	m := NewMonitor(prober, nil, nil)

	done := make(chan Report, 2)
	go func() { done <- m.Check(context.Background()) }()
	go func() { done <- m.Check(context.Background()) }()

	// Both checks must reach the prober while the first is still stalled;
	// a check serialized behind the probe would never get here.
	for i := 0; i < 2; i++ {
		select {
		case <-prober.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("second check blocked behind the in-flight probe")
		}
	}

	close(prober.release)
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for checks to finish")
		}
	}
}

func TestMonitor_ProbeRateLimited(t *testing.T) {
	prober := &mockProber{price: big.NewInt(1)}
	m := NewMonitor(prober, nil, nil)

	m.Check(context.Background())
	m.Check(context.Background())
	m.Check(context.Background())

	if prober.calls != 1 {
		t.Errorf("expected one probe within the rate window, got %d", prober.calls)
	}
}
