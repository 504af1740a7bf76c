package repositories

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func increment(state *models.AttemptState) (bool, error) {
	state.FailureCount++
	return true, nil
}

func TestAttemptStateRepository_LazyCreateAndDelete(t *testing.T) {
	repo := NewAttemptStateRepository()

	_, ok := repo.Get("admin")
	assert.False(t, ok)

	require.NoError(t, repo.Update("admin", increment))
	state, ok := repo.Get("admin")
	require.True(t, ok)
	assert.Equal(t, 1, state.FailureCount)
	assert.Equal(t, 1, repo.Len())

	require.NoError(t, repo.Update("admin", func(state *models.AttemptState) (bool, error) {
		return false, nil
	}))
	_, ok = repo.Get("admin")
	assert.False(t, ok)
	assert.Equal(t, 0, repo.Len())
}

func TestAttemptStateRepository_UnkeptNewEntryNotStored(t *testing.T) {
	repo := NewAttemptStateRepository()

	require.NoError(t, repo.Update("fresh", func(state *models.AttemptState) (bool, error) {
		return false, nil
	}))
	assert.Equal(t, 0, repo.Len())
}

func TestAttemptStateRepository_ErrorLeavesStateUnchanged(t *testing.T) {
	repo := NewAttemptStateRepository()
	require.NoError(t, repo.Update("admin", increment))

	boom := errors.New("verifier exploded")
	err := repo.Update("admin", func(state *models.AttemptState) (bool, error) {
		state.FailureCount = 99
		now := time.Now()
		state.LockedUntil = &now
		return true, boom
	})
	assert.ErrorIs(t, err, boom)

	state, ok := repo.Get("admin")
	require.True(t, ok)
	assert.Equal(t, 1, state.FailureCount)
	assert.Nil(t, state.LockedUntil)
}

func TestAttemptStateRepository_GetReturnsCopy(t *testing.T) {
	repo := NewAttemptStateRepository()
	until := time.Now().Add(time.Minute)
	require.NoError(t, repo.Update("admin", func(state *models.AttemptState) (bool, error) {
		state.LockedUntil = &until
		return true, nil
	}))

	state, _ := repo.Get("admin")
	*state.LockedUntil = time.Time{}

	again, _ := repo.Get("admin")
	assert.Equal(t, until, *again.LockedUntil)
}

func TestAttemptStateRepository_ConcurrentUpdatesSerialized(t *testing.T) {
	repo := NewAttemptStateRepository()

	const workers = 50
	const perWorker = 40

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_ = repo.Update("admin", func(state *models.AttemptState) (bool, error) {
					current := state.FailureCount
					time.Sleep(time.Microsecond)
					state.FailureCount = current + 1
					return true, nil
				})
			}
		}()
	}
	wg.Wait()

	state, ok := repo.Get("admin")
	require.True(t, ok)
	assert.Equal(t, workers*perWorker, state.FailureCount)
}

func TestAttemptStateRepository_DeleteIdle(t *testing.T) {
	repo := NewAttemptStateRepository()
	now := time.Now()

	old := now.Add(-2 * time.Hour)
	recent := now.Add(-time.Minute)
	lockedUntil := now.Add(time.Hour)

	set := func(username string, fn func(state *models.AttemptState)) {
		require.NoError(t, repo.Update(username, func(state *models.AttemptState) (bool, error) {
			fn(state)
			return true, nil
		}))
	}

	set("stale", func(s *models.AttemptState) { s.FailureCount = 2; s.LastFailureAt = &old })
	set("recent", func(s *models.AttemptState) { s.FailureCount = 1; s.LastFailureAt = &recent })
	set("locked", func(s *models.AttemptState) { s.LastFailureAt = &old; s.LockedUntil = &lockedUntil })

	removed := repo.DeleteIdle(now, time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := repo.Get("stale")
	assert.False(t, ok)
	_, ok = repo.Get("recent")
	assert.True(t, ok)
	_, ok = repo.Get("locked")
	assert.True(t, ok)
}
