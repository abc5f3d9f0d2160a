package enums

import "fmt"

// ConnectionStatus maps to the connection_status enum in Postgres.
type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusAccepted ConnectionStatus = "accepted"
	ConnectionStatusRejected ConnectionStatus = "rejected"
)

var validConnectionStatuses = []ConnectionStatus{
	ConnectionStatusPending,
	ConnectionStatusAccepted,
	ConnectionStatusRejected,
}

// connectionEdges is the closed transition table. Accepted and rejected
// are terminal; a rejected pair may only re-enter through a brand new
// request row.
var connectionEdges = map[ConnectionStatus][]ConnectionStatus{
	ConnectionStatusPending: {ConnectionStatusAccepted, ConnectionStatusRejected},
}

// IsValid checks whether the given status matches the canonical enum.
func (s ConnectionStatus) IsValid() bool {
	for _, candidate := range validConnectionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the edge s -> target is allowed.
func (s ConnectionStatus) CanTransitionTo(target ConnectionStatus) bool {
	for _, next := range connectionEdges[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsActive reports whether the status blocks a new request for the pair.
func (s ConnectionStatus) IsActive() bool {
	return s == ConnectionStatusPending || s == ConnectionStatusAccepted
}

// ParseConnectionStatus converts raw strings into ConnectionStatus.
func ParseConnectionStatus(value string) (ConnectionStatus, error) {
	for _, candidate := range validConnectionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid connection status %q", value)
}
