package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventKind identifies the type of a ledger event.
type EventKind string

const (
	EventKindTransfer             EventKind = "transfer"
	EventKindApproval             EventKind = "approval"
	EventKindDelegateChanged      EventKind = "delegate_changed"
	EventKindDelegateVotesChanged EventKind = "delegate_votes_changed"
	EventKindSwap                 EventKind = "swap"
)

// Event is implemented by every ledger event.
type Event interface {
	Kind() EventKind
}

// TransferEvent records a balance movement.
type TransferEvent struct {
	Token  string         `json:"token"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
	Block  uint32         `json:"block"`
}

// ApprovalEvent records an allowance overwrite.
type ApprovalEvent struct {
	Token   string         `json:"token"`
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Amount  *uint256.Int   `json:"amount"`
	Block   uint32         `json:"block"`
}

// DelegateChangedEvent records a delegation overwrite.
type DelegateChangedEvent struct {
	Token     string         `json:"token"`
	Delegator common.Address `json:"delegator"`
	From      common.Address `json:"from"`
	To        common.Address `json:"to"`
	Block     uint32         `json:"block"`
}

// DelegateVotesChangedEvent records a checkpoint write for a delegatee.
type DelegateVotesChangedEvent struct {
	Token     string         `json:"token"`
	Delegatee common.Address `json:"delegatee"`
	OldVotes  *uint256.Int   `json:"oldVotes"`
	NewVotes  *uint256.Int   `json:"newVotes"`
	Block     uint32         `json:"block"`
}

// SwapExecutedEvent records a settled swap leg pair.
type SwapExecutedEvent struct {
	Direction SwapDirection  `json:"direction"`
	Caller    common.Address `json:"caller"`
	Account   common.Address `json:"account"`
	Amount    *uint256.Int   `json:"amount"`
	Block     uint32         `json:"block"`
}

func (TransferEvent) Kind() EventKind             { return EventKindTransfer }
func (ApprovalEvent) Kind() EventKind             { return EventKindApproval }
func (DelegateChangedEvent) Kind() EventKind      { return EventKindDelegateChanged }
func (DelegateVotesChangedEvent) Kind() EventKind { return EventKindDelegateVotesChanged }
func (SwapExecutedEvent) Kind() EventKind         { return EventKindSwap }
