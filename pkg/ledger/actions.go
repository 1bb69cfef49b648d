package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// RecordAction appends one ActionRecord. The ledger enforces "one
// ActionRecord per Proposal" (I1) at insert time via a unique constraint on
// proposal_ref; a second insert for the same proposal id returns
// ErrDuplicateProposal instead of silently overwriting — replaying a tick
// with identical inputs must be a no-op (spec §8 round-trip property), not
// a second ledger row.
func (c *Client) RecordAction(ctx context.Context, rec domain.ActionRecord, ref domain.CampaignRef) error {
	var proposalRef *string
	if rec.ProposalRef != "" {
		proposalRef = &rec.ProposalRef
	}

	_, err := c.pool.Exec(ctx, `
		INSERT INTO action_ledger (
			id, kind, proposal_ref, platform_id, external_id,
			decision_outcome, decision_reason, decision_rule,
			executed_at, before_state, after_state, outcome, error
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		rec.ID, string(rec.Kind), proposalRef, string(ref.PlatformId), ref.ExternalId,
		string(rec.Decision.Outcome), string(rec.Decision.Reason), rec.Decision.RuleID,
		rec.ExecutedAt, rec.BeforeState, rec.AfterState, string(rec.Outcome), rec.Error,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrDuplicateProposal
		}
		return fmt.Errorf("ledger: record action: %w", err)
	}
	return nil
}

// RangeByCampaign returns every ActionRecord for ref within [from, to],
// ordered by recorded_at — spec §4.5's "(campaign_ref, time)" range scan.
func (c *Client) RangeByCampaign(ctx context.Context, ref domain.CampaignRef, from, to time.Time) ([]domain.ActionRecord, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, kind, proposal_ref, decision_outcome, decision_reason, decision_rule,
		       executed_at, before_state, after_state, outcome, error, recorded_at
		FROM action_ledger
		WHERE platform_id = $1 AND external_id = $2 AND recorded_at BETWEEN $3 AND $4
		ORDER BY recorded_at ASC
	`, string(ref.PlatformId), ref.ExternalId, from, to)
	if err != nil {
		return nil, fmt.Errorf("ledger: range by campaign: %w", err)
	}
	defer rows.Close()
	return scanActionRecords(rows)
}

// RangeByOutcome returns every ActionRecord with the given decision outcome
// within [from, to] — spec §4.5's "(decision.outcome, time)" range scan.
func (c *Client) RangeByOutcome(ctx context.Context, outcome domain.DecisionOutcome, from, to time.Time) ([]domain.ActionRecord, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, kind, proposal_ref, decision_outcome, decision_reason, decision_rule,
		       executed_at, before_state, after_state, outcome, error, recorded_at
		FROM action_ledger
		WHERE decision_outcome = $1 AND recorded_at BETWEEN $2 AND $3
		ORDER BY recorded_at ASC
	`, string(outcome), from, to)
	if err != nil {
		return nil, fmt.Errorf("ledger: range by outcome: %w", err)
	}
	defer rows.Close()
	return scanActionRecords(rows)
}

// GetRecentActions is the inbound get_recent_actions(since) verb of §6.
func (c *Client) GetRecentActions(ctx context.Context, since time.Time) ([]domain.ActionRecord, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, kind, proposal_ref, decision_outcome, decision_reason, decision_rule,
		       executed_at, before_state, after_state, outcome, error, recorded_at
		FROM action_ledger
		WHERE recorded_at >= $1
		ORDER BY recorded_at ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("ledger: get recent actions: %w", err)
	}
	defer rows.Close()
	return scanActionRecords(rows)
}

func scanActionRecords(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]domain.ActionRecord, error) {
	var out []domain.ActionRecord
	for rows.Next() {
		var rec domain.ActionRecord
		var kind, decOutcome, decReason, decRule, outcome string
		var proposalRef *string
		if err := rows.Scan(&rec.ID, &kind, &proposalRef, &decOutcome, &decReason, &decRule,
			&rec.ExecutedAt, &rec.BeforeState, &rec.AfterState, &outcome, &rec.Error, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan action record: %w", err)
		}
		if proposalRef != nil {
			rec.ProposalRef = *proposalRef
		}
		rec.Kind = domain.ActionRecordKind(kind)
		rec.Decision = domain.Decision{
			ProposalID: rec.ProposalRef,
			Outcome:    domain.DecisionOutcome(decOutcome),
			Reason:     domain.RejectionReason(decReason),
			RuleID:     decRule,
		}
		rec.Outcome = domain.ActionOutcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecordConfigChange records a guardrail override or other configuration
// write twice: as a config_history row, and as an ActionRecord of kind
// CONFIG_CHANGE whose after_state is "<scope> <field>=<value>".
func (c *Client) RecordConfigChange(ctx context.Context, scope, field, value string) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO config_history (scope, field, value) VALUES ($1, $2, $3)
	`, scope, field, value)
	if err != nil {
		return fmt.Errorf("ledger: record config change: %w", err)
	}
	_, err = c.pool.Exec(ctx, `
		INSERT INTO action_ledger (id, kind, after_state, outcome) VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), string(domain.RecordConfigChange), scope+" "+field+"="+value, string(domain.ActionSuccess))
	if err != nil {
		return fmt.Errorf("ledger: record config change action: %w", err)
	}
	return nil
}

// ReconstructDailyCounters rebuilds DailyCounters for the calendar day
// containing localMidnight by scanning the ledger's entries since that
// timestamp (spec §4.5 "Recovery contract"): there is no separate counter
// store to go out of sync, so a crashed or restarted engine recomputes
// counters purely from what it already wrote.
func (c *Client) ReconstructDailyCounters(ctx context.Context, localMidnight time.Time) (domain.DailyCounters, error) {
	counters := domain.DailyCounters{
		Day:                    localMidnight,
		PerPlatformSpendDelta:  make(map[domain.PlatformId]currency.Amount),
		PerCampaignBudgetDelta: make(map[domain.CampaignRef]currency.Amount),
	}

	rows, err := c.pool.Query(ctx, `
		SELECT platform_id, external_id, before_state, after_state, outcome, decision_outcome
		FROM action_ledger
		WHERE kind = 'PROPOSAL_OUTCOME' AND recorded_at >= $1 AND decision_outcome = 'AUTO_EXECUTE'
	`, localMidnight)
	if err != nil {
		return counters, fmt.Errorf("ledger: reconstruct counters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var platformID, externalID, before, after, outcome, decOutcome string
		if err := rows.Scan(&platformID, &externalID, &before, &after, &outcome, &decOutcome); err != nil {
			return counters, fmt.Errorf("ledger: scan counter row: %w", err)
		}
		if outcome != string(domain.ActionSuccess) {
			continue
		}
		counters.AdjustmentsMade++

		beforeAmt, beforeOK := currency.FromDecimalString(before)
		afterAmt, afterOK := currency.FromDecimalString(after)
		if !beforeOK || !afterOK {
			continue
		}
		delta := afterAmt.Sub(beforeAmt).Abs()
		counters.AbsoluteBudgetMoved = counters.AbsoluteBudgetMoved.Add(delta)

		ref := domain.CampaignRef{PlatformId: domain.PlatformId(platformID), ExternalId: externalID}
		counters.PerCampaignBudgetDelta[ref] = counters.PerCampaignBudgetDelta[ref].Add(delta)
		counters.PerPlatformSpendDelta[ref.PlatformId] = counters.PerPlatformSpendDelta[ref.PlatformId].Add(delta)
	}
	return counters, rows.Err()
}
