package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/adspilot/core/pkg/domain"
)

// RecordMetricSample appends one MetricSample row. Writes are append-only
// and monotonic in insertion time (spec §4.5).
func (c *Client) RecordMetricSample(ctx context.Context, s domain.MetricSample) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO metric_samples (platform_id, external_id, sample_time, impressions, clicks, spend, conversions, revenue)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, string(s.CampaignRef.PlatformId), s.CampaignRef.ExternalId, s.SampleTime,
		s.Impressions, s.Clicks, s.Spend, s.Conversions, s.Revenue)
	if err != nil {
		return fmt.Errorf("ledger: record metric sample: %w", err)
	}
	return nil
}

// TrailingWindow returns every MetricSample for ref in [asOf-window, asOf],
// ordered oldest-first — the input to the analyst's bounded trailing-window
// context (spec §4.3 step 3, "e.g. last 7 days").
func (c *Client) TrailingWindow(ctx context.Context, ref domain.CampaignRef, window time.Duration, asOf time.Time) ([]domain.MetricSample, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT sample_time, impressions, clicks, spend, conversions, revenue
		FROM metric_samples
		WHERE platform_id = $1 AND external_id = $2 AND sample_time BETWEEN $3 AND $4
		ORDER BY sample_time ASC
	`, string(ref.PlatformId), ref.ExternalId, asOf.Add(-window), asOf)
	if err != nil {
		return nil, fmt.Errorf("ledger: trailing window query: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricSample
	for rows.Next() {
		s := domain.MetricSample{CampaignRef: ref}
		if err := rows.Scan(&s.SampleTime, &s.Impressions, &s.Clicks, &s.Spend, &s.Conversions, &s.Revenue); err != nil {
			return nil, fmt.Errorf("ledger: scan metric sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
