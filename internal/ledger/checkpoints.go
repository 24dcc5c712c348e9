package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
	"github.com/ArcticSubmarine/smart-contracts/internal/events"
	"github.com/ArcticSubmarine/smart-contracts/internal/fixedpoint"
)

// Checkpoint is one (block, votes) entry in a delegatee's voting history.
type Checkpoint struct {
	FromBlock uint32
	Votes     *uint256.Int
}

// CheckpointStore keeps the per-delegatee voting history. Histories are
// append-only and strictly ascending in FromBlock; a second write within the
// same block overwrites the latest entry's votes in place instead of
// appending a duplicate.
type CheckpointStore struct {
	token string
	clock BlockClock
	sink  events.Sink

	checkpoints map[common.Address][]Checkpoint
	counts      map[common.Address]uint32
}

func newCheckpointStore(token string, clock BlockClock, sink events.Sink) *CheckpointStore {
	return &CheckpointStore{
		token:       token,
		clock:       clock,
		sink:        sink,
		checkpoints: make(map[common.Address][]Checkpoint),
		counts:      make(map[common.Address]uint32),
	}
}

// NumCheckpoints returns how many checkpoints account has accumulated.
func (s *CheckpointStore) NumCheckpoints(account common.Address) uint32 {
	return s.counts[account]
}

// GetCurrentVotes returns the most recent checkpoint's votes, or zero if the
// account has no checkpoints.
func (s *CheckpointStore) GetCurrentVotes(account common.Address) *uint256.Int {
	return s.latestVotes(account)
}

// GetPriorVotes returns account's votes as of blockNumber. blockNumber must
// be strictly below the current block; queries about unsettled history fail
// with ErrNotYetDetermined.
func (s *CheckpointStore) GetPriorVotes(account common.Address, blockNumber uint32) (*uint256.Int, error) {
	current, err := fixedpoint.ToUnit32(s.clock.CurrentBlock())
	if err != nil {
		return nil, fmt.Errorf("%w: block number exceeds 32 bits: %v", ErrInvariantViolation, err)
	}
	if blockNumber >= current {
		return nil, ErrNotYetDetermined
	}

	n := s.counts[account]
	if n == 0 {
		return uint256.NewInt(0), nil
	}
	cps := s.checkpoints[account]

	// Fast path: the latest checkpoint already covers blockNumber.
	if cps[n-1].FromBlock <= blockNumber {
		return cps[n-1].Votes.Clone(), nil
	}
	// Fast path: no checkpoint as early as blockNumber.
	if cps[0].FromBlock > blockNumber {
		return uint256.NewInt(0), nil
	}

	// Binary search for the greatest FromBlock <= blockNumber. The sequence
	// is strictly ascending, so an exact hit is unique.
	low, high := uint32(0), n-1
	for low < high {
		mid := high - (high-low)/2
		cp := cps[mid]
		switch {
		case cp.FromBlock == blockNumber:
			return cp.Votes.Clone(), nil
		case cp.FromBlock < blockNumber:
			low = mid
		default:
			high = mid - 1
		}
	}
	return cps[low].Votes.Clone(), nil
}

// MoveWeight shifts amount voting weight from one delegatee to another.
// Moving to or from the zero address only touches the non-zero side; the
// zero address never accrues checkpoint weight. A no-op when the delegatees
// are equal or amount is zero.
func (s *CheckpointStore) MoveWeight(from, to common.Address, amount *uint256.Int) error {
	if from == to || amount == nil || amount.IsZero() {
		return nil
	}

	var zero common.Address
	if from != zero {
		old := s.latestVotes(from)
		next, err := fixedpoint.Sub96(old, amount)
		if err != nil {
			return fmt.Errorf("%w: vote weight underflow for %s: %v", ErrInvariantViolation, from.Hex(), err)
		}
		if err := s.writeCheckpoint(from, old, next); err != nil {
			return err
		}
	}
	if to != zero {
		old := s.latestVotes(to)
		next, err := fixedpoint.Add96(old, amount)
		if err != nil {
			return fmt.Errorf("%w: vote weight overflow for %s: %v", ErrInvariantViolation, to.Hex(), err)
		}
		if err := s.writeCheckpoint(to, old, next); err != nil {
			return err
		}
	}
	return nil
}

// writeCheckpoint records newVotes for delegatee at the current block,
// coalescing a same-block write into the latest entry.
func (s *CheckpointStore) writeCheckpoint(delegatee common.Address, oldVotes, newVotes *uint256.Int) error {
	block, err := fixedpoint.ToUnit32(s.clock.CurrentBlock())
	if err != nil {
		return fmt.Errorf("%w: block number exceeds 32 bits: %v", ErrInvariantViolation, err)
	}

	cps := s.checkpoints[delegatee]
	n := s.counts[delegatee]
	if n > 0 && cps[n-1].FromBlock == block {
		cps[n-1].Votes = newVotes.Clone()
	} else {
		s.checkpoints[delegatee] = append(cps, Checkpoint{FromBlock: block, Votes: newVotes.Clone()})
		s.counts[delegatee] = n + 1
	}

	s.sink.Emit(domain.DelegateVotesChangedEvent{
		Token:     s.token,
		Delegatee: delegatee,
		OldVotes:  oldVotes.Clone(),
		NewVotes:  newVotes.Clone(),
		Block:     block,
	})
	return nil
}

func (s *CheckpointStore) latestVotes(account common.Address) *uint256.Int {
	n := s.counts[account]
	if n == 0 {
		return uint256.NewInt(0)
	}
	return s.checkpoints[account][n-1].Votes.Clone()
}
