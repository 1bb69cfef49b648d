package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/adspilot/core/pkg/domain"
	"github.com/adspilot/core/pkg/engine"
	"github.com/adspilot/core/pkg/ledger/ledgertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseAcquireAndRelease(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()
	lease := engine.NewLease(client.Pool(), client, time.Minute)

	ok, err := lease.Acquire(ctx, "node-a")
	require.NoError(t, err)
	assert.True(t, ok)

	// A second holder cannot acquire while node-a's lease is live.
	ok, err = lease.Acquire(ctx, "node-b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lease.Release(ctx, "node-a"))

	ok, err = lease.Acquire(ctx, "node-b")
	require.NoError(t, err)
	assert.True(t, ok, "node-b should acquire once node-a releases")
}

func TestLeaseSameHolderReacquiresOwnLease(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()
	lease := engine.NewLease(client.Pool(), client, time.Minute)

	ok, err := lease.Acquire(ctx, "node-a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lease.Acquire(ctx, "node-a")
	require.NoError(t, err)
	assert.True(t, ok, "the current holder renewing its own lease is not contention")
}

func TestLeaseAcquireForceClosesExpiredOrphanWithAuditRow(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()

	// node-a's lease expires almost instantly and is never released, as if
	// the process crashed mid-tick.
	orphaned := engine.NewLease(client.Pool(), client, time.Millisecond)
	ok, err := orphaned.Acquire(ctx, "node-a")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)

	rescuer := engine.NewLease(client.Pool(), client, time.Minute)
	ok, err = rescuer.Acquire(ctx, "node-b")
	require.NoError(t, err)
	assert.True(t, ok, "node-b should reclaim node-a's expired lease")

	recent, err := client.GetRecentActions(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1, "the orphaned holder's incomplete tick must leave an audit trace")
	assert.Equal(t, domain.RecordTickFailed, recent[0].Kind)
	assert.Equal(t, domain.ActionFailed, recent[0].Outcome)
	assert.Contains(t, recent[0].Error, "node-a")
}
