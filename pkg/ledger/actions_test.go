package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/adspilot/core/pkg/ledger"
	"github.com/adspilot/core/pkg/ledger/ledgertest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func recordOf(proposalRef string, ref domain.CampaignRef, before, after string, outcome domain.ActionOutcome, decisionOutcome domain.DecisionOutcome) domain.ActionRecord {
	now := time.Now().UTC()
	return domain.ActionRecord{
		ID:          uuid.NewString(),
		Kind:        domain.RecordProposalOutcome,
		ProposalRef: proposalRef,
		Decision: domain.Decision{
			ProposalID: proposalRef,
			Outcome:    decisionOutcome,
			Reason:     domain.ReasonWithinLimits,
			RuleID:     "R6",
			DecidedAt:  now,
		},
		ExecutedAt:  &now,
		BeforeState: before,
		AfterState:  after,
		Outcome:     outcome,
		RecordedAt:  now,
	}
}

func TestRecordActionRejectsDuplicateProposalRef(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()
	ref := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "camp-1"}

	rec := recordOf("prop-1", ref, "100.00", "120.00", domain.ActionSuccess, domain.DecisionAutoExecute)
	require.NoError(t, client.RecordAction(ctx, rec, ref))

	dup := recordOf("prop-1", ref, "100.00", "130.00", domain.ActionSuccess, domain.DecisionAutoExecute)
	dup.ID = uuid.NewString()
	err := client.RecordAction(ctx, dup, ref)
	require.ErrorIs(t, err, ledger.ErrDuplicateProposal)
}

func TestRecordActionAllowsMultipleEmptyProposalRefs(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()
	ref := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "camp-1"}

	tickFailed := domain.ActionRecord{
		ID: uuid.NewString(), Kind: domain.RecordTickFailed,
		Outcome: domain.ActionFailed, Error: "analyst timeout", RecordedAt: time.Now().UTC(),
	}
	require.NoError(t, client.RecordAction(ctx, tickFailed, ref))

	tickFailed2 := tickFailed
	tickFailed2.ID = uuid.NewString()
	require.NoError(t, client.RecordAction(ctx, tickFailed2, ref), "two non-proposal records must not collide on an empty proposal_ref")
}

func TestRangeByCampaignAndOutcome(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()
	refA := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "camp-a"}
	refB := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "camp-b"}
	from := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, client.RecordAction(ctx, recordOf("p-a1", refA, "1", "2", domain.ActionSuccess, domain.DecisionAutoExecute), refA))
	require.NoError(t, client.RecordAction(ctx, recordOf("p-a2", refA, "2", "3", domain.ActionFailed, domain.DecisionApprovalRequired), refA))
	require.NoError(t, client.RecordAction(ctx, recordOf("p-b1", refB, "5", "6", domain.ActionSuccess, domain.DecisionAutoExecute), refB))

	to := time.Now().UTC().Add(time.Hour)

	byCampaign, err := client.RangeByCampaign(ctx, refA, from, to)
	require.NoError(t, err)
	require.Len(t, byCampaign, 2)

	byOutcome, err := client.RangeByOutcome(ctx, domain.DecisionAutoExecute, from, to)
	require.NoError(t, err)
	require.Len(t, byOutcome, 2)
}

func TestGetRecentActions(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()
	ref := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "camp-1"}
	since := time.Now().UTC().Add(-time.Minute)

	require.NoError(t, client.RecordAction(ctx, recordOf("p1", ref, "1", "2", domain.ActionSuccess, domain.DecisionAutoExecute), ref))

	got, err := client.GetRecentActions(ctx, since)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "p1", got[0].ProposalRef)
}

func TestRecordConfigChange(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()
	require.NoError(t, client.RecordConfigChange(ctx, "global", "confidence_threshold", "0.8"))
}

func TestReconstructDailyCountersScansSinceMidnight(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()
	ref := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "camp-1"}

	midnight := time.Now().UTC().Truncate(24 * time.Hour)

	rec := recordOf("p1", ref, "100.00", "120.00", domain.ActionSuccess, domain.DecisionAutoExecute)
	require.NoError(t, client.RecordAction(ctx, rec, ref))

	// A rejected proposal must not count toward the daily adjustment tally.
	rejected := recordOf("p2", ref, "100.00", "100.00", domain.ActionFailed, domain.DecisionRejected)
	require.NoError(t, client.RecordAction(ctx, rejected, ref))

	counters, err := client.ReconstructDailyCounters(ctx, midnight)
	require.NoError(t, err)
	require.Equal(t, 1, counters.AdjustmentsMade)
	require.True(t, counters.AbsoluteBudgetMoved.Equal(currency.FromCents(2000)), "got %s", counters.AbsoluteBudgetMoved)
	require.True(t, counters.PerCampaignBudgetDelta[ref].Equal(currency.FromCents(2000)))
	require.True(t, counters.PerPlatformSpendDelta[domain.PlatformGoogleAds].Equal(currency.FromCents(2000)))
}
