package guardrail

import (
	"errors"
	"sync"
	"time"

	"github.com/adspilot/core/pkg/domain"
)

// ErrProposalNotQueued is returned by Approve/Reject when the proposal id
// is not (or is no longer) in the approval queue.
var ErrProposalNotQueued = errors.New("guardrail: proposal not in approval queue")

// ErrAlreadyResolved signals the "conflict" behaviour of spec §8 scenario
// 6: an approve/reject call racing a TTL sweep that already expired the
// entry.
var ErrAlreadyResolved = errors.New("guardrail: proposal already resolved")

// QueueEntryState is the lifecycle of one approval-queue entry.
type QueueEntryState string

const (
	QueuePending  QueueEntryState = "PENDING"
	QueueApproved QueueEntryState = "APPROVED"
	QueueRejected QueueEntryState = "REJECTED"
	QueueExpired  QueueEntryState = "EXPIRED"
)

// QueueEntry is one proposal awaiting human disposition.
type QueueEntry struct {
	Proposal  domain.Proposal
	State     QueueEntryState
	QueuedAt  time.Time
	ExpiresAt time.Time
	Reason    string
}

// ApprovalQueue holds APPROVAL_REQUIRED proposals pending human
// disposition, with a TTL sweep (default 4h, spec §4.4). It is one of only
// two pieces of shared mutable core state (the other is DailyCounters,
// spec §5) and is owned by the Decision Engine process.
type ApprovalQueue struct {
	mu      sync.Mutex
	entries map[string]*QueueEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewApprovalQueue creates a queue with the given TTL.
func NewApprovalQueue(ttl time.Duration) *ApprovalQueue {
	return &ApprovalQueue{
		entries: make(map[string]*QueueEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Enqueue adds p to the queue, queued "now".
func (q *ApprovalQueue) Enqueue(p domain.Proposal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	q.entries[p.ID] = &QueueEntry{
		Proposal:  p,
		State:     QueuePending,
		QueuedAt:  now,
		ExpiresAt: now.Add(q.ttl),
	}
}

// TTL returns the queue's configured approval window, so a caller
// persisting an entry alongside Enqueue can compute the same expiry
// without duplicating the TTL value.
func (q *ApprovalQueue) TTL() time.Duration {
	return q.ttl
}

// RestoreEntry rehydrates a PENDING entry from durable storage on startup,
// preserving its original queuedAt/expiresAt rather than resetting the TTL
// window from "now". A proposal id already present is left untouched.
func (q *ApprovalQueue) RestoreEntry(p domain.Proposal, queuedAt, expiresAt time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.entries[p.ID]; exists {
		return
	}
	q.entries[p.ID] = &QueueEntry{
		Proposal:  p,
		State:     QueuePending,
		QueuedAt:  queuedAt,
		ExpiresAt: expiresAt,
	}
}

// Approve transitions a pending entry to APPROVED. Per spec §9's
// resolution of "approval mid-tick", this only flips state — the engine's
// next tick is responsible for draining APPROVED entries through the
// re-check and execution path; approving does not interrupt an in-flight
// tick. Returns ErrAlreadyResolved (the "conflict signal" of §8 scenario 6)
// if the entry already expired or was resolved.
func (q *ApprovalQueue) Approve(proposalID string) (domain.Proposal, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[proposalID]
	if !ok {
		return domain.Proposal{}, ErrProposalNotQueued
	}
	if e.State != QueuePending {
		return domain.Proposal{}, ErrAlreadyResolved
	}
	if !q.now().Before(e.ExpiresAt) {
		e.State = QueueExpired
		return domain.Proposal{}, ErrAlreadyResolved
	}
	e.State = QueueApproved
	return e.Proposal, nil
}

// Reject transitions a pending entry to REJECTED with the given reason.
func (q *ApprovalQueue) Reject(proposalID, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[proposalID]
	if !ok {
		return ErrProposalNotQueued
	}
	if e.State != QueuePending {
		return ErrAlreadyResolved
	}
	e.State = QueueRejected
	e.Reason = reason
	return nil
}

// SweepExpired transitions every pending entry whose TTL has elapsed to
// EXPIRED and returns them, so the caller can ledger an EXPIRED
// ActionRecord for each. A proposal arriving exactly at the TTL boundary is
// expired, not executed (spec §8 boundary behaviour): the comparison is
// !Before(ExpiresAt), i.e. now >= expiresAt.
func (q *ApprovalQueue) SweepExpired() []QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var expired []QueueEntry
	for _, e := range q.entries {
		if e.State == QueuePending && !now.Before(e.ExpiresAt) {
			e.State = QueueExpired
			expired = append(expired, *e)
		}
	}
	return expired
}

// DrainApproved removes and returns every APPROVED entry, for the engine's
// next-tick execution pass.
func (q *ApprovalQueue) DrainApproved() []QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []QueueEntry
	for id, e := range q.entries {
		if e.State == QueueApproved {
			out = append(out, *e)
			delete(q.entries, id)
		}
	}
	return out
}

// Snapshot returns every entry currently pending, for
// list_pending_approvals (spec §6).
func (q *ApprovalQueue) Snapshot() []QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]QueueEntry, 0, len(q.entries))
	for _, e := range q.entries {
		if e.State == QueuePending {
			out = append(out, *e)
		}
	}
	return out
}
