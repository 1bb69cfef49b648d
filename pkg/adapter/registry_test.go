package adapter_test

import (
	"testing"

	"github.com/adspilot/core/pkg/adapter"
	"github.com/adspilot/core/pkg/adapter/mockadapter"
	"github.com/adspilot/core/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetMissing(t *testing.T) {
	r := adapter.NewRegistry()
	_, err := r.Get(domain.PlatformGoogleAds)
	require.Error(t, err)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := adapter.NewRegistry()
	a := mockadapter.New(domain.PlatformGoogleAds, nil)
	r.Register(a)

	got, err := r.Get(domain.PlatformGoogleAds)
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformGoogleAds, got.Platform())
	assert.Len(t, r.All(), 1)
	assert.Equal(t, []domain.PlatformId{domain.PlatformGoogleAds}, r.Platforms())
}
