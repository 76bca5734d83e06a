package seed_test

import (
	"context"
	"strings"
	"testing"

	"storefront/internal/database"
	"storefront/internal/repositories"
	"storefront/internal/seed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `
products:
  - name: Gold Ring
    description: 18k band
    price: "250.00"
    category: ring
    material: gold
    images: [ring.jpg]
    countInStock: 3
  - name: Pearl Pendant
    description: Freshwater pearl
    price: "79.90"
    discount: 15
    category: pendant
    images: [pearl.jpg]
    countInStock: 0
    isNew: false
`

func TestParse(t *testing.T) {
	products, err := seed.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "250", products[0].Price.String())
	require.NotNil(t, products[0].Material)
	assert.Equal(t, "gold", string(*products[0].Material))
	assert.True(t, products[0].IsNew)
	assert.NotNil(t, products[0].Tags)

	assert.Nil(t, products[1].Material)
	assert.False(t, products[1].IsNew)
	assert.Equal(t, 15, products[1].Discount)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "bad price", doc: "products:\n  - name: x\n    price: abc\n    category: ring\n"},
		{name: "unknown category", doc: "products:\n  - name: x\n    price: \"1\"\n    category: anklet\n"},
		{name: "unknown material", doc: "products:\n  - name: x\n    price: \"1\"\n    category: ring\n    material: wood\n"},
		{name: "unknown field", doc: "products:\n  - name: x\n    colour: red\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := seed.Parse(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestCatalog_SeedsOnlyAnEmptyCatalog(t *testing.T) {
	db, err := database.OpenInMemory(uuid.NewString())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	repo := repositories.NewGORMProductRepository(db)
	ctx := context.Background()

	products, err := seed.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	added, err := seed.Catalog(ctx, repo, products)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	again, err := seed.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	added, err = seed.Catalog(ctx, repo, again)
	require.NoError(t, err)
	assert.Zero(t, added)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestLoadFile_ShippedCatalog(t *testing.T) {
	db, err := database.OpenInMemory(uuid.NewString())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	added, err := seed.LoadFile(context.Background(), repositories.NewGORMProductRepository(db), "../../seed/products.yaml")
	require.NoError(t, err)
	assert.Equal(t, 6, added)
}
