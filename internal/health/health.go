// Package health provides system health monitoring and status reporting.
package health

// Status represents the overall health state of the system or a component.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// NodeHealth describes connectivity to the chain node.
type NodeHealth struct {
	Status    Status `json:"status"`
	Connected bool   `json:"connected"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// StreamHealth describes the fan-out layer's subscription state.
type StreamHealth struct {
	ChatSubscribers    int `json:"chat_subscribers"`
	MessageSubscribers int `json:"message_subscribers"`
}

// Report contains the full health report.
type Report struct {
	Status  Status       `json:"status"`
	Node    NodeHealth   `json:"node"`
	Streams StreamHealth `json:"streams"`
}
