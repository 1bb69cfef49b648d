package guardrail

import (
	"testing"
	"time"

	"github.com/adspilot/core/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalQueueEnqueueAndApprove(t *testing.T) {
	q := NewApprovalQueue(4 * time.Hour)
	q.Enqueue(domain.Proposal{ID: "p1"})

	p, err := q.Approve("p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	drained := q.DrainApproved()
	require.Len(t, drained, 1)
	assert.Equal(t, QueueApproved, drained[0].State)
}

func TestApprovalQueueExpiryAtExactBoundary(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	q := NewApprovalQueue(4 * time.Hour)
	q.now = func() time.Time { return base }
	q.Enqueue(domain.Proposal{ID: "p-expiry"})

	// Exactly at the 4h boundary: expired, not executed (spec §8 boundary).
	q.now = func() time.Time { return base.Add(4 * time.Hour) }
	expired := q.SweepExpired()
	require.Len(t, expired, 1)
	assert.Equal(t, QueueExpired, expired[0].State)
}

func TestApproveAfterExpiryYieldsConflict(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	q := NewApprovalQueue(4 * time.Hour)
	q.now = func() time.Time { return base }
	q.Enqueue(domain.Proposal{ID: "p-race"})

	q.now = func() time.Time { return base.Add(4*time.Hour + time.Minute) }
	q.SweepExpired()

	_, err := q.Approve("p-race")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestApproveUnknownProposal(t *testing.T) {
	q := NewApprovalQueue(time.Hour)
	_, err := q.Approve("missing")
	assert.ErrorIs(t, err, ErrProposalNotQueued)
}

func TestRejectTransitionsEntry(t *testing.T) {
	q := NewApprovalQueue(time.Hour)
	q.Enqueue(domain.Proposal{ID: "p2"})

	require.NoError(t, q.Reject("p2", "not aligned with strategy"))
	assert.Empty(t, q.Snapshot())
}

func TestSnapshotOnlyReturnsPending(t *testing.T) {
	q := NewApprovalQueue(time.Hour)
	q.Enqueue(domain.Proposal{ID: "p3"})
	q.Enqueue(domain.Proposal{ID: "p4"})
	_, _ = q.Approve("p3")

	snap := q.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "p4", snap[0].Proposal.ID)
}
