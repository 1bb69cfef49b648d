package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adspilot/core/pkg/domain"
	"github.com/adspilot/core/pkg/ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Lease is the exclusive tick-ownership lease of spec §5: ticks are
// strictly serial across the whole deployment, single-node or multi-node,
// enforced by one contended row rather than in-process state so a second
// process can pick up ticking after the holder dies and its TTL expires.
// Grounded on tarsy's pkg/queue/worker.go claimNextSession: a transaction
// takes FOR UPDATE SKIP LOCKED on the contended row, so a concurrent
// claimer that can't immediately get the row bails out rather than
// blocking, and only then checks/writes expiry.
type Lease struct {
	pool  *pgxpool.Pool
	store *ledger.Client
	ttl   time.Duration
}

// NewLease returns a Lease backed by pool, held for ttl once acquired.
// store ledgers a TICK_FAILED row for an orphaned holder whenever Acquire
// force-closes its expired lease (SPEC_FULL.md §D).
func NewLease(pool *pgxpool.Pool, store *ledger.Client, ttl time.Duration) *Lease {
	return &Lease{pool: pool, store: store, ttl: ttl}
}

// Acquire attempts to claim the tick lease for holder. ok is false when
// another holder currently owns an unexpired lease, or a concurrent
// claimer already has the row locked. If the row belongs to a different
// holder whose lease has expired, Acquire force-closes that holder's
// incomplete tick — ledgering a TICK_FAILED audit row for it — before
// claiming the row for itself, so a crashed node's stuck tick leaves an
// audit trace instead of silently disappearing under the new claim.
func (l *Lease) Acquire(ctx context.Context, holder string) (ok bool, err error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("engine: begin lease tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var existingHolder *string
	var expiresAt *time.Time
	row := tx.QueryRow(ctx, `SELECT holder, expires_at FROM tick_lease FOR UPDATE SKIP LOCKED`)
	if scanErr := row.Scan(&existingHolder, &expiresAt); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			// Someone else holds the row lock mid-claim; treat as contended.
			return false, nil
		}
		return false, fmt.Errorf("engine: read lease: %w", scanErr)
	}

	now := time.Now().UTC()
	held := existingHolder != nil && expiresAt != nil && expiresAt.After(now)
	if held && *existingHolder != holder {
		return false, nil
	}
	orphaned := existingHolder != nil && *existingHolder != holder && !held

	newExpiry := now.Add(l.ttl)
	if _, err := tx.Exec(ctx, `UPDATE tick_lease SET holder = $1, acquired_at = $2, expires_at = $3`,
		holder, now, newExpiry); err != nil {
		return false, fmt.Errorf("engine: claim lease: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("engine: commit lease: %w", err)
	}

	if orphaned {
		l.recordOrphanedTick(ctx, *existingHolder, *expiresAt)
	}
	return true, nil
}

// recordOrphanedTick ledgers a TICK_FAILED row for a dead holder's
// incomplete tick, force-closed by this Acquire. Best-effort: a failure to
// write the audit row must not block the new holder from ticking.
func (l *Lease) recordOrphanedTick(ctx context.Context, deadHolder string, expiredAt time.Time) {
	rec := domain.ActionRecord{
		ID:         uuid.NewString(),
		Kind:       domain.RecordTickFailed,
		Outcome:    domain.ActionFailed,
		Error:      fmt.Sprintf("tick lease for holder %q expired at %s without release; force-closed", deadHolder, expiredAt.UTC().Format(time.RFC3339)),
		RecordedAt: time.Now().UTC(),
	}
	if err := l.store.RecordAction(ctx, rec, domain.CampaignRef{}); err != nil {
		slog.Error("engine: record orphaned tick", "dead_holder", deadHolder, "error", err)
	}
}

// Release clears the lease early (graceful shutdown), so a peer doesn't
// have to wait out the full TTL.
func (l *Lease) Release(ctx context.Context, holder string) error {
	_, err := l.pool.Exec(ctx, `UPDATE tick_lease SET holder = NULL, expires_at = NULL WHERE holder = $1`, holder)
	if err != nil {
		return fmt.Errorf("engine: release lease: %w", err)
	}
	return nil
}
