package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
	"github.com/ArcticSubmarine/smart-contracts/internal/observability"
	chstore "github.com/ArcticSubmarine/smart-contracts/internal/storage/clickhouse"
)

// archiveRow is the flattened ClickHouse representation of an event.
type archiveRow struct {
	kind      string
	token     string
	block     uint32
	primary   string // from / owner / delegator / caller
	secondary string // to / spender / delegatee / account
	amount    string // decimal string of the 96-bit quantity, "" when n/a
	direction string // swap direction, "" for non-swap events
	emittedAt time.Time
}

// Archive batches events into the ledger_events ClickHouse table. Emit never
// blocks the ledger; rows accumulate in memory and are flushed by Run on an
// interval, or explicitly via Flush.
type Archive struct {
	conn          *chstore.Conn
	log           *logrus.Entry
	flushInterval time.Duration

	mu  sync.Mutex
	buf []archiveRow
}

// NewArchive creates an archive writing through conn. flushInterval <= 0
// falls back to 5s.
func NewArchive(conn *chstore.Conn, flushInterval time.Duration, log *logrus.Entry) *Archive {
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Archive{
		conn:          conn,
		log:           log,
		flushInterval: flushInterval,
	}
}

// Emit buffers ev for the next flush.
func (a *Archive) Emit(ev domain.Event) {
	row := flatten(ev)
	a.mu.Lock()
	a.buf = append(a.buf, row)
	a.mu.Unlock()
}

// Run flushes on the configured interval until ctx is cancelled, then makes
// a final best-effort flush.
func (a *Archive) Run(ctx context.Context) {
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				a.log.WithError(err).Error("event archive flush failed")
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), a.flushInterval)
			if err := a.Flush(flushCtx); err != nil {
				a.log.WithError(err).Error("final event archive flush failed")
			}
			cancel()
			return
		}
	}
}

// Flush writes all buffered rows in one batch.
func (a *Archive) Flush(ctx context.Context) error {
	a.mu.Lock()
	rows := a.buf
	a.buf = nil
	a.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO ledger_events (
			kind, token, block, primary_addr, secondary_addr, amount, direction, emitted_at
		)
	`)
	if err != nil {
		a.requeue(rows)
		observability.RecordArchiveFlush("error")
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.kind, r.token, r.block,
			r.primary, r.secondary, r.amount, r.direction,
			r.emittedAt,
		)
		if err != nil {
			a.requeue(rows)
			observability.RecordArchiveFlush("error")
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		a.requeue(rows)
		observability.RecordArchiveFlush("error")
		return fmt.Errorf("send batch: %w", err)
	}

	observability.RecordArchiveFlush("success")
	return nil
}

// requeue puts rows back at the front of the buffer after a failed flush.
func (a *Archive) requeue(rows []archiveRow) {
	a.mu.Lock()
	a.buf = append(rows, a.buf...)
	a.mu.Unlock()
}

func flatten(ev domain.Event) archiveRow {
	row := archiveRow{
		kind:      string(ev.Kind()),
		emittedAt: time.Now().UTC(),
	}

	switch e := ev.(type) {
	case domain.TransferEvent:
		row.token = e.Token
		row.block = e.Block
		row.primary = e.From.Hex()
		row.secondary = e.To.Hex()
		row.amount = decString(e.Amount)
	case domain.ApprovalEvent:
		row.token = e.Token
		row.block = e.Block
		row.primary = e.Owner.Hex()
		row.secondary = e.Spender.Hex()
		row.amount = decString(e.Amount)
	case domain.DelegateChangedEvent:
		row.token = e.Token
		row.block = e.Block
		row.primary = e.Delegator.Hex()
		row.secondary = e.To.Hex()
	case domain.DelegateVotesChangedEvent:
		row.token = e.Token
		row.block = e.Block
		row.primary = e.Delegatee.Hex()
		row.amount = decString(e.NewVotes)
	case domain.SwapExecutedEvent:
		row.block = e.Block
		row.primary = e.Caller.Hex()
		row.secondary = e.Account.Hex()
		row.amount = decString(e.Amount)
		row.direction = string(e.Direction)
	}

	return row
}

func decString(v *uint256.Int) string {
	if v == nil {
		return ""
	}
	return v.Dec()
}

var _ Sink = (*Archive)(nil)
