package health

import (
	"context"
	"math/big"
	"sync"
	"time"
)

// NodeProber exercises one cheap read against the node to establish
// connectivity.
type NodeProber interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// SubscriberCounter reports the number of active consumers on one
// repository.
type SubscriberCounter interface {
	Subscribers() int
}

const probeInterval = 10 * time.Second

// Monitor aggregates health status from the node and the fan-out layer.
type Monitor struct {
	prober   NodeProber
	chats    SubscriberCounter
	messages SubscriberCounter

	mu        sync.Mutex
	lastCheck time.Time
	lastNode  NodeHealth
}

// NewMonitor creates a new health monitor. chats and messages may be nil
// when the corresponding repository is not wired (one-shot CLI runs).
func NewMonitor(prober NodeProber, chats, messages SubscriberCounter) *Monitor {
	return &Monitor{
		prober:   prober,
		chats:    chats,
		messages: messages,
	}
}

// Check builds the current report. Node probes are rate limited to avoid
// hammering the RPC endpoint; in between, the cached probe result is
// reused.
func (m *Monitor) Check(ctx context.Context) Report {
	report := Report{
		Status: StatusHealthy,
		Node:   m.probeNode(ctx),
	}

	if m.chats != nil {
		report.Streams.ChatSubscribers = m.chats.Subscribers()
	}
	if m.messages != nil {
		report.Streams.MessageSubscribers = m.messages.Subscribers()
	}

	report.Status = report.Node.Status
	return report
}

func (m *Monitor) probeNode(ctx context.Context) NodeHealth {
	m.mu.Lock()
	if time.Since(m.lastCheck) < probeInterval && !m.lastCheck.IsZero() {
		cached := m.lastNode
		m.mu.Unlock()
		return cached
	}
	m.mu.Unlock()

	// The probe runs outside the lock so a slow node never serializes
	// concurrent health requests behind one RPC.
	start := time.Now()
	_, err := m.prober.SuggestGasPrice(ctx)
	latency := time.Since(start)

	node := NodeHealth{
		Status:    StatusHealthy,
		Connected: err == nil,
		LatencyMS: latency.Milliseconds(),
	}
	switch {
	case err != nil:
		node.Status = StatusCritical
		node.Error = err.Error()
	case latency > 2*time.Second:
		node.Status = StatusDegraded
	}

	m.mu.Lock()
	m.lastCheck = time.Now()
	m.lastNode = node
	m.mu.Unlock()
	return node
}
