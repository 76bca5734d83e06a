package repositories_test

import (
	"context"
	"testing"

	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory(uuid.NewString())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func seedProduct(t *testing.T, repo *repositories.GORMProductRepository, name string, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:         name,
		Description:  name + " description",
		Price:        decimal.RequireFromString(price),
		Category:     models.CategoryRing,
		Images:       []string{"/img/" + name + ".jpg"},
		CountInStock: stock,
		IsNew:        true,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}
