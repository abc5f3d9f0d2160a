package enums

import "fmt"

// ProposalStatus maps to the proposal_status enum in Postgres.
type ProposalStatus string

const (
	ProposalStatusPending   ProposalStatus = "pending"
	ProposalStatusAccepted  ProposalStatus = "accepted"
	ProposalStatusRejected  ProposalStatus = "rejected"
	ProposalStatusCompleted ProposalStatus = "completed"
	ProposalStatusPaid      ProposalStatus = "paid"
)

var validProposalStatuses = []ProposalStatus{
	ProposalStatusPending,
	ProposalStatusAccepted,
	ProposalStatusRejected,
	ProposalStatusCompleted,
	ProposalStatusPaid,
}

// proposalEdges is the closed transition table. The completed -> paid
// edge fires only when the derived order settles; it is never
// caller-settable.
var proposalEdges = map[ProposalStatus][]ProposalStatus{
	ProposalStatusPending:   {ProposalStatusAccepted, ProposalStatusRejected},
	ProposalStatusAccepted:  {ProposalStatusCompleted},
	ProposalStatusCompleted: {ProposalStatusPaid},
}

// IsValid checks whether the given status matches the canonical enum.
func (s ProposalStatus) IsValid() bool {
	for _, candidate := range validProposalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the edge s -> target is allowed.
func (s ProposalStatus) CanTransitionTo(target ProposalStatus) bool {
	for _, next := range proposalEdges[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s ProposalStatus) IsTerminal() bool {
	return len(proposalEdges[s]) == 0
}

// ParseProposalStatus converts raw strings into ProposalStatus.
func ParseProposalStatus(value string) (ProposalStatus, error) {
	for _, candidate := range validProposalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid proposal status %q", value)
}
