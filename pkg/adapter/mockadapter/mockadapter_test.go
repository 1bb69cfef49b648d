package mockadapter

import (
	"context"
	"testing"
	"time"

	"github.com/adspilot/core/pkg/adapter"
	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateBudgetThenReadBack(t *testing.T) {
	seed := []domain.Campaign{{
		Ref:         domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "G1"},
		Name:        "G1",
		Status:      domain.CampaignEnabled,
		DailyBudget: currency.FromCents(10000),
		CreatedAt:   time.Now().Add(-100 * time.Hour),
	}}
	a := New(domain.PlatformGoogleAds, seed)

	err := a.UpdateBudget(context.Background(), "G1", currency.FromCents(13000), "idem-1")
	require.NoError(t, err)

	c, ok := a.Campaign("G1")
	require.True(t, ok)
	assert.True(t, c.DailyBudget.Equal(currency.FromCents(13000)))
}

func TestUpdateBudgetNotFound(t *testing.T) {
	a := New(domain.PlatformGoogleAds, nil)
	err := a.UpdateBudget(context.Background(), "missing", currency.FromCents(100), "")
	require.Error(t, err)

	var adapterErr *adapter.Error
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, adapter.ErrNotFound, adapterErr.Kind)
}

func TestPauseThenResumeRoundTrip(t *testing.T) {
	seed := []domain.Campaign{{
		Ref:    domain.CampaignRef{PlatformId: domain.PlatformMetaAds, ExternalId: "M1"},
		Status: domain.CampaignEnabled,
	}}
	a := New(domain.PlatformMetaAds, seed)

	require.NoError(t, a.SetStatus(context.Background(), "M1", domain.CampaignPaused, ""))
	require.NoError(t, a.SetStatus(context.Background(), "M1", domain.CampaignEnabled, ""))

	c, ok := a.Campaign("M1")
	require.True(t, ok)
	assert.Equal(t, domain.CampaignEnabled, c.Status)
}

func TestHealthNeverErrors(t *testing.T) {
	a := New(domain.PlatformTikTokAds, nil)
	result := a.Health(context.Background())
	assert.True(t, result.OK)
	assert.True(t, a.MockData())
}
