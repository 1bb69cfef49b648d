package adapter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingleFlightRefresherCollapsesConcurrentCalls(t *testing.T) {
	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})

	r := NewSingleFlightRefresher(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		close(entered)
		<-release
		return nil
	})

	var wg sync.WaitGroup
	var leaderErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		leaderErr = r.Refresh(context.Background())
	}()

	// Wait until the leader call is actually executing fn before starting
	// followers, so followers are guaranteed to observe inFlight != nil.
	<-entered

	followerResults := make([]error, 2)
	var followerWG sync.WaitGroup
	for i := 0; i < 2; i++ {
		followerWG.Add(1)
		go func(i int) {
			defer followerWG.Done()
			followerResults[i] = r.Refresh(context.Background())
		}(i)
	}

	close(release)
	wg.Wait()
	followerWG.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.NoError(t, leaderErr)
	for _, err := range followerResults {
		assert.NoError(t, err)
	}
}

func TestSingleFlightRefresherSequentialCallsBothRun(t *testing.T) {
	var calls int32
	r := NewSingleFlightRefresher(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	assert.NoError(t, r.Refresh(context.Background()))
	assert.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
