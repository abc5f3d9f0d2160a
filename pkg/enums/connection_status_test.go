package enums

import "testing"

func TestConnectionStatusTransitions(t *testing.T) {
	if !ConnectionStatusPending.CanTransitionTo(ConnectionStatusAccepted) {
		t.Fatal("pending -> accepted must be allowed")
	}
	if !ConnectionStatusPending.CanTransitionTo(ConnectionStatusRejected) {
		t.Fatal("pending -> rejected must be allowed")
	}
	if ConnectionStatusAccepted.CanTransitionTo(ConnectionStatusPending) {
		t.Fatal("accepted is terminal")
	}
	if ConnectionStatusRejected.CanTransitionTo(ConnectionStatusAccepted) {
		t.Fatal("rejected is terminal")
	}
}

func TestConnectionStatusActive(t *testing.T) {
	if !ConnectionStatusPending.IsActive() || !ConnectionStatusAccepted.IsActive() {
		t.Fatal("pending and accepted must block a new request")
	}
	if ConnectionStatusRejected.IsActive() {
		t.Fatal("rejected must allow a re-request")
	}
}

func TestProposalStatusTransitions(t *testing.T) {
	if !ProposalStatusPending.CanTransitionTo(ProposalStatusAccepted) {
		t.Fatal("pending -> accepted must be allowed")
	}
	if !ProposalStatusAccepted.CanTransitionTo(ProposalStatusCompleted) {
		t.Fatal("accepted -> completed must be allowed")
	}
	if !ProposalStatusCompleted.CanTransitionTo(ProposalStatusPaid) {
		t.Fatal("completed -> paid must be allowed")
	}
	if ProposalStatusPending.CanTransitionTo(ProposalStatusCompleted) {
		t.Fatal("pending must not skip to completed")
	}
	if ProposalStatusRejected.CanTransitionTo(ProposalStatusAccepted) {
		t.Fatal("rejected is terminal")
	}
	if !ProposalStatusPaid.IsTerminal() || !ProposalStatusRejected.IsTerminal() {
		t.Fatal("paid and rejected are terminal")
	}
}
