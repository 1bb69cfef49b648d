package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/adspilot/core/pkg/adapter"
	"github.com/adspilot/core/pkg/domain"
	"github.com/adspilot/core/pkg/engine"
	"github.com/adspilot/core/pkg/guardrail"
	"github.com/adspilot/core/pkg/ledger/ledgertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*engine.Engine, *guardrail.ApprovalQueue) {
	store := ledgertest.NewClient(t)
	registry := adapter.NewRegistry()
	evaluator := guardrail.NewEvaluator(guardrail.DefaultRules)
	approvals := guardrail.NewApprovalQueue(4 * time.Hour)
	overrides := guardrail.NewOverrideStore()

	eng := engine.New(engine.DefaultConfig("test-node"), registry, store, &stubAnalyst{},
		evaluator, approvals, overrides, defaultTestGuardrails(), nil, domain.DailyCounters{})
	return eng, approvals
}

func TestRejectLedgersCancelledOutcome(t *testing.T) {
	eng, approvals := newTestEngine(t)
	ctx := context.Background()

	ref := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "camp-1"}
	approvals.Enqueue(domain.Proposal{ID: "p1", CampaignRef: ref, FromState: "100.00", ToState: "150.00"})

	require.NoError(t, eng.Reject(ctx, "p1", "too aggressive"))
	assert.Empty(t, eng.ListPendingApprovals())

	actions, err := eng.GetRecentActions(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionCancelled, actions[0].Outcome)
	assert.Equal(t, "too aggressive", actions[0].Error)
}

func TestApproveFlipsQueueEntryWithoutLedgering(t *testing.T) {
	eng, approvals := newTestEngine(t)
	ctx := context.Background()

	ref := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "camp-2"}
	approvals.Enqueue(domain.Proposal{ID: "p2", CampaignRef: ref})

	p, err := eng.Approve("p2")
	require.NoError(t, err)
	assert.Equal(t, "p2", p.ID)

	actions, err := eng.GetRecentActions(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, actions, "approving must not write a ledger row before the next tick's execute pass")
}

func TestOverrideGuardrailAppliesAndLedgersConfigChange(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	override := domain.GuardrailOverride{
		Scope:     "global",
		Field:     "confidence_threshold",
		Value:     "0.1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, eng.OverrideGuardrail(ctx, override))

	g := eng.EffectiveGuardrails("global")
	assert.Equal(t, 0.1, g.ConfidenceThreshold)
}
