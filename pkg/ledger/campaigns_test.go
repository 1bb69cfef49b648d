package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/adspilot/core/pkg/ledger"
	"github.com/adspilot/core/pkg/ledger/ledgertest"
	"github.com/stretchr/testify/require"
)

func TestUpsertAndGetCampaignRoundTrips(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()

	ref := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "camp-1"}
	now := time.Now().UTC().Truncate(time.Second)
	camp := domain.Campaign{
		Ref:         ref,
		Name:        "Summer Sale",
		Status:      domain.CampaignEnabled,
		DailyBudget: currency.FromCents(10000),
		Objective:   "CONVERSIONS",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	require.NoError(t, client.UpsertCampaign(ctx, camp))

	got, err := client.GetCampaign(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, camp.Name, got.Name)
	require.Equal(t, camp.Status, got.Status)
	require.True(t, camp.DailyBudget.Equal(got.DailyBudget))

	// Re-upsert with a changed budget confirms the ON CONFLICT update path.
	camp.DailyBudget = currency.FromCents(15000)
	camp.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, client.UpsertCampaign(ctx, camp))

	got, err = client.GetCampaign(ctx, ref)
	require.NoError(t, err)
	require.True(t, camp.DailyBudget.Equal(got.DailyBudget))
}

func TestGetCampaignNotFound(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()

	_, err := client.GetCampaign(ctx, domain.CampaignRef{PlatformId: domain.PlatformMetaAds, ExternalId: "missing"})
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSumEnabledBudgetsExcludesPausedAndSelf(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(id string, status domain.CampaignStatus, budget int64) domain.Campaign {
		return domain.Campaign{
			Ref:         domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: id},
			Name:        id,
			Status:      status,
			DailyBudget: currency.FromCents(budget),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	require.NoError(t, client.UpsertCampaign(ctx, mk("a", domain.CampaignEnabled, 10000)))
	require.NoError(t, client.UpsertCampaign(ctx, mk("b", domain.CampaignEnabled, 20000)))
	require.NoError(t, client.UpsertCampaign(ctx, mk("c", domain.CampaignPaused, 50000)))

	sum, err := client.SumEnabledBudgets(ctx, domain.PlatformGoogleAds, nil)
	require.NoError(t, err)
	require.True(t, sum.Equal(currency.FromCents(30000)), "got %s", sum)

	excl := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "a"}
	sum, err = client.SumEnabledBudgets(ctx, domain.PlatformGoogleAds, &excl)
	require.NoError(t, err)
	require.True(t, sum.Equal(currency.FromCents(20000)), "got %s", sum)
}

func TestListCampaignsUpdatedSince(t *testing.T) {
	client := ledgertest.NewClient(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	old := domain.Campaign{
		Ref: domain.CampaignRef{PlatformId: domain.PlatformTikTokAds, ExternalId: "old"},
		Name: "old", Status: domain.CampaignEnabled, DailyBudget: currency.FromCents(100),
		CreatedAt: base.Add(-48 * time.Hour), UpdatedAt: base.Add(-48 * time.Hour),
	}
	fresh := domain.Campaign{
		Ref: domain.CampaignRef{PlatformId: domain.PlatformTikTokAds, ExternalId: "fresh"},
		Name: "fresh", Status: domain.CampaignEnabled, DailyBudget: currency.FromCents(100),
		CreatedAt: base, UpdatedAt: base,
	}
	require.NoError(t, client.UpsertCampaign(ctx, old))
	require.NoError(t, client.UpsertCampaign(ctx, fresh))

	got, err := client.ListCampaignsUpdatedSince(ctx, domain.PlatformTikTokAds, base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "fresh", got[0].Ref.ExternalId)
}
