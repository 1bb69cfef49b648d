package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/jackc/pgx/v5"
)

// UpsertCampaign inserts a newly-seen campaign or updates the confirmed
// state of an existing one (spec §3: "Campaign ... created on first sight
// from an adapter; never deleted, only transitioned to REMOVED").
func (c *Client) UpsertCampaign(ctx context.Context, campaign domain.Campaign) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO campaigns (platform_id, external_id, name, status, daily_budget, objective, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (platform_id, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			daily_budget = EXCLUDED.daily_budget,
			objective = EXCLUDED.objective,
			updated_at = EXCLUDED.updated_at
	`, string(campaign.Ref.PlatformId), campaign.Ref.ExternalId, campaign.Name, string(campaign.Status),
		campaign.DailyBudget, campaign.Objective, campaign.CreatedAt, campaign.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ledger: upsert campaign: %w", err)
	}
	return nil
}

// GetCampaign returns the current confirmed state for ref.
func (c *Client) GetCampaign(ctx context.Context, ref domain.CampaignRef) (domain.Campaign, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT platform_id, external_id, name, status, daily_budget, objective, created_at, updated_at
		FROM campaigns WHERE platform_id = $1 AND external_id = $2
	`, string(ref.PlatformId), ref.ExternalId)

	var out domain.Campaign
	var platformID, status string
	err := row.Scan(&platformID, &out.Ref.ExternalId, &out.Name, &status, &out.DailyBudget, &out.Objective, &out.CreatedAt, &out.UpdatedAt)
	if err == pgx.ErrNoRows {
		return domain.Campaign{}, fmt.Errorf("ledger: campaign %v: %w", ref, ErrNotFound)
	}
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("ledger: get campaign: %w", err)
	}
	out.Ref.PlatformId = domain.PlatformId(platformID)
	out.Status = domain.CampaignStatus(status)
	return out, nil
}

// SumEnabledBudgets returns the sum of confirmed daily budgets of ENABLED
// campaigns on platform, excluding excludeRef if set — the right-hand side
// of invariant I3.
func (c *Client) SumEnabledBudgets(ctx context.Context, platform domain.PlatformId, excludeRef *domain.CampaignRef) (currency.Amount, error) {
	var excludeID string
	if excludeRef != nil {
		excludeID = excludeRef.ExternalId
	}

	row := c.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(daily_budget), 0)
		FROM campaigns
		WHERE platform_id = $1 AND status = 'ENABLED' AND external_id <> $2
	`, string(platform), excludeID)

	var sum currency.Amount
	if err := row.Scan(&sum); err != nil {
		return currency.Amount{}, fmt.Errorf("ledger: sum enabled budgets: %w", err)
	}
	return sum, nil
}

// ListCampaignsUpdatedSince supports last_tick_time → now watermarking for
// the engine's collection step.
func (c *Client) ListCampaignsUpdatedSince(ctx context.Context, platform domain.PlatformId, since time.Time) ([]domain.Campaign, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT platform_id, external_id, name, status, daily_budget, objective, created_at, updated_at
		FROM campaigns WHERE platform_id = $1 AND updated_at >= $2
	`, string(platform), since)
	if err != nil {
		return nil, fmt.Errorf("ledger: list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var camp domain.Campaign
		var platformID, status string
		if err := rows.Scan(&platformID, &camp.Ref.ExternalId, &camp.Name, &status, &camp.DailyBudget, &camp.Objective, &camp.CreatedAt, &camp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan campaign: %w", err)
		}
		camp.Ref.PlatformId = domain.PlatformId(platformID)
		camp.Status = domain.CampaignStatus(status)
		out = append(out, camp)
	}
	return out, rows.Err()
}
