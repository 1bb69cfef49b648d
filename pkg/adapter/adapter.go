// Package adapter implements the Adapter Abstraction Layer of §4.1: a
// uniform capability surface over N remote ad platforms, each with its own
// units, rate limits, and auth lifetime. The shape follows tarsy's
// pkg/mcp — a registry of named remote clients, each owning its own
// rate limiter and single-flight auth refresh — generalised from MCP tool
// servers to ad-platform APIs.
package adapter

import (
	"context"
	"time"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
)

// DateRange bounds a get_performance query.
type DateRange struct {
	From time.Time
	To   time.Time
}

// HealthResult is the outcome of an adapter's health() call. It never
// throws (spec §4.1): a failure is reported in the struct, not an error
// return, so the health monitor can poll uniformly across every adapter.
type HealthResult struct {
	OK        bool
	Detail    string
	CheckedAt time.Time
}

// Adapter is the capability set every ad-platform integration must
// implement (spec §4.1 table). All amounts crossing this boundary are in
// the canonical currency and unit; sub-unit conversion happens inside the
// adapter, never in a caller.
type Adapter interface {
	Platform() domain.PlatformId

	// ListCampaigns returns every campaign known to the platform, as of
	// the optional watermark. Idempotent, read-only.
	ListCampaigns(ctx context.Context, since *time.Time) ([]domain.Campaign, error)

	// GetPerformance returns one MetricSample per campaign aggregated over
	// rng, optionally filtered to ids. Monotone in rng.
	GetPerformance(ctx context.Context, rng DateRange, ids []string) ([]domain.MetricSample, error)

	// UpdateBudget requests newDailyBudget (canonical currency) for the
	// campaign identified by id, honouring idempotencyKey if the platform
	// supports deduplicating writes. On success the platform has confirmed
	// the change.
	UpdateBudget(ctx context.Context, id string, newDailyBudget currency.Amount, idempotencyKey string) error

	// SetStatus requests a confirmed status transition to one of
	// CampaignEnabled/CampaignPaused.
	SetStatus(ctx context.Context, id string, status domain.CampaignStatus, idempotencyKey string) error

	// Health reports adapter health without ever returning an error.
	Health(ctx context.Context) HealthResult

	// MockData reports whether this adapter instance is serving
	// deterministic fixtures because credentials were absent (§4.1 "Mock
	// mode").
	MockData() bool
}
