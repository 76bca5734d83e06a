package services_test

import (
	"context"
	"sync"
	"testing"

	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWishlistService(users, guests repositories.WishlistStore, products ...models.Product) *services.WishlistService {
	repo := new(MockProductRepository)
	catalog(repo, products...)
	return services.NewWishlistService(repo, users, guests)
}

func TestWishlistService_AddAndRemove(t *testing.T) {
	ctx := context.Background()
	svc := newWishlistService(repositories.NewMemoryWishlistStore(), repositories.NewMemoryWishlistStore(), ring, necklace)

	view, err := svc.Add(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Ring", view.Items[0].Name)
	assert.Equal(t, []string{"ring.jpg"}, view.Items[0].Images)

	_, err = svc.Add(ctx, "u1", "p1")
	assert.ErrorIs(t, err, services.ErrAlreadyExists)

	_, err = svc.Add(ctx, "u1", "nope")
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)

	view, err = svc.Add(ctx, "u1", "p2")
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)

	view, err = svc.Remove(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "p2", view.Items[0].ID)

	again, err := svc.Remove(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, view.Version, again.Version)

	cleared, err := svc.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cleared.Items)
}

func TestWishlistService_Merge(t *testing.T) {
	ctx := context.Background()
	guests := repositories.NewMemoryWishlistStore()
	svc := newWishlistService(repositories.NewMemoryWishlistStore(), guests, ring, necklace)
	guest := models.GuestOwnerID("g1")

	_, err := svc.Add(ctx, "u1", "p1")
	require.NoError(t, err)
	_, err = svc.Add(ctx, guest, "p1")
	require.NoError(t, err)
	_, err = svc.Add(ctx, guest, "p2")
	require.NoError(t, err)

	view, err := svc.Merge(ctx, "u1", "g1")
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "p1", view.Items[0].ID)
	assert.Equal(t, "p2", view.Items[1].ID)

	left, err := guests.Get(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, left.Items)
}

// Two concurrent adds of the same product: one succeeds, the other reports a duplicate.
func TestWishlistService_ConcurrentAddOfSameProduct(t *testing.T) {
	db, err := database.OpenInMemory(uuid.NewString())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	store := repositories.NewGORMWishlistStore(db)
	svc := newWishlistService(store, repositories.NewMemoryWishlistStore(), ring)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Add(ctx, "u1", "p1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, services.ErrAlreadyExists)
	}
	assert.Equal(t, 1, succeeded)

	w, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, w.Items, 1)
}
