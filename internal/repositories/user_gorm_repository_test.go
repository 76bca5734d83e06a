package repositories_test

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGORMUserRepository_CreateAndLookup(t *testing.T) {
	repo := repositories.NewGORMUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &models.User{Name: "Ana", Email: " Ana@X.com ", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ana@x.com", user.Email)

	byEmail, err := repo.GetByEmail(ctx, "ANA@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)

	dup := &models.User{Name: "Other", Email: "ana@x.com", Password: "hash"}
	assert.ErrorIs(t, repo.Create(ctx, dup), repositories.ErrEmailTaken)
}

func TestGORMUserRepository_UpdateKeepsAddresses(t *testing.T) {
	repo := repositories.NewGORMUserRepository(newTestDB(t))
	ctx := context.Background()
	user := &models.User{Name: "Ana", Email: "ana@x.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))

	user.Addresses = []models.Address{{Street: "1 Main", City: "Rome", State: "RM", PostalCode: "00100", Country: "IT"}}
	require.NoError(t, repo.ReplaceAddresses(ctx, user))

	user.Name = "Ana Maria"
	user.IsVerified = true
	user.Addresses = nil
	require.NoError(t, repo.Update(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", got.Name)
	assert.True(t, got.IsVerified)
	require.Len(t, got.Addresses, 1)
	assert.True(t, got.Addresses[0].Default)

	other := &models.User{Name: "Bo", Email: "bo@x.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, other))
	other.Email = "ana@x.com"
	assert.ErrorIs(t, repo.Update(ctx, other), repositories.ErrEmailTaken)
}

func TestGORMUserRepository_ReplaceAddressesKeepsOneDefault(t *testing.T) {
	repo := repositories.NewGORMUserRepository(newTestDB(t))
	ctx := context.Background()
	user := &models.User{Name: "Ana", Email: "ana@x.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))

	user.Addresses = []models.Address{
		{Street: "a", City: "c", State: "s", PostalCode: "1", Country: "IT"},
		{Street: "b", City: "c", State: "s", PostalCode: "2", Country: "IT", Default: true},
		{Street: "c", City: "c", State: "s", PostalCode: "3", Country: "IT", Default: true},
	}
	require.NoError(t, repo.ReplaceAddresses(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, got.Addresses, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got.Addresses[0].Street, got.Addresses[1].Street, got.Addresses[2].Street})
	assert.Equal(t, []bool{false, true, false}, defaults(got))

	assert.ErrorIs(t, repo.ReplaceAddresses(ctx, &models.User{ID: "missing"}), repositories.ErrUserNotFound)
}

func TestGORMUserRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMUserRepository(db)
	carts := repositories.NewGORMCartStore(db)
	ctx := context.Background()
	user := &models.User{Name: "Ana", Email: "ana@x.com", Password: "hash",
		Addresses: []models.Address{{Street: "a", City: "c", State: "s", PostalCode: "1", Country: "IT"}}}
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, carts.Save(ctx, &models.Cart{OwnerID: user.ID, Items: []models.CartItem{{ProductID: "p1", Quantity: 1}}}))

	require.NoError(t, repo.Delete(ctx, user.ID))
	assert.ErrorIs(t, repo.Delete(ctx, user.ID), repositories.ErrUserNotFound)

	var addresses int64
	require.NoError(t, db.Model(&models.Address{}).Count(&addresses).Error)
	assert.Zero(t, addresses)

	cart, err := carts.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func defaults(u *models.User) []bool {
	out := make([]bool, len(u.Addresses))
	for i, a := range u.Addresses {
		out[i] = a.Default
	}
	return out
}
