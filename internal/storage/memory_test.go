package storage

import (
	"context"
	"fmt"
	"leads/internal/models"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	runStorageContract(t, func(t *testing.T) Storage {
		s := NewMemoryStorage()
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	b := testBuyer("owner-1", "Original", baseTime)
	b.Tags = []string{"hot"}
	require.NoError(t, s.CreateBuyer(ctx, b, nil))

	b.FullName = "Mutated"
	b.Tags[0] = "cold"

	got, err := s.GetBuyer(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.FullName)
	assert.Equal(t, []string{"hot"}, got.Tags)

	got.Tags[0] = "changed"
	again, err := s.GetBuyer(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hot"}, again.Tags)
}

func TestMemoryStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := s.FindOrCreateUserByEmail(ctx, "shared@example.com", "Shared")
			assert.NoError(t, err)
			b := testBuyer(u.ID, fmt.Sprintf("Lead %d", i), baseTime)
			assert.NoError(t, s.CreateBuyer(ctx, b, testHistory(b, u.ID, baseTime)))
			_, _, err = s.ListBuyers(ctx, models.ListBuyersRequest{Page: 1, PageSize: 5})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	_, total, err := s.ListBuyers(ctx, models.ListBuyersRequest{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 20, total)
}

func TestMemoryStorage_ListWithoutPageSize(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	for i := range 3 {
		require.NoError(t, s.CreateBuyer(ctx, testBuyer("owner", fmt.Sprintf("Lead %d", i), baseTime), nil))
	}

	all, total, err := s.ListBuyers(ctx, models.ListBuyersRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)
}
