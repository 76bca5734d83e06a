package services_test

import (
	"context"
	"testing"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	ana   = &models.User{ID: "u1", Name: "Ana"}
	ben   = &models.User{ID: "u2", Name: "Ben"}
	admin = &models.User{ID: "u9", Name: "Admin", IsAdmin: true}
)

func reviewedProduct() *models.Product {
	return &models.Product{
		ID: "p1",
		Reviews: []models.Review{
			{ID: "r1", ProductID: "p1", UserID: "u1", Name: "Ana", Rating: 5, Comment: "lovely"},
			{ID: "r2", ProductID: "p1", UserID: "u3", Name: "Cy", Rating: 3, Comment: "ok"},
		},
		Rating:     4,
		NumReviews: 2,
	}
}

func TestReviewService_ListReviews(t *testing.T) {
	repo := new(MockProductRepository)
	svc := services.NewReviewService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "p1").Return(reviewedProduct(), nil).Once()
	repo.On("GetByID", ctx, "p2").Return(&models.Product{ID: "p2"}, nil).Once()

	reviews, err := svc.ListReviews(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, reviews, 2)

	reviews, err = svc.ListReviews(ctx, "p2")
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
}

func TestReviewService_AddReview(t *testing.T) {
	ctx := context.Background()

	t.Run("appends and recomputes the rating", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := services.NewReviewService(repo)
		repo.On("ModifyReviews", ctx, "p1").Return(reviewedProduct(), nil).Once()

		product, err := svc.AddReview(ctx, "p1", ben, 1, " meh ")
		require.NoError(t, err)
		assert.Equal(t, 3, product.NumReviews)
		assert.Equal(t, 3.0, product.Rating)
		assert.Equal(t, "meh", product.Reviews[2].Comment)
		assert.Equal(t, "Ben", product.Reviews[2].Name)
	})

	t.Run("second review by the same user", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := services.NewReviewService(repo)
		repo.On("ModifyReviews", ctx, "p1").Return(reviewedProduct(), nil).Once()

		_, err := svc.AddReview(ctx, "p1", ana, 4, "again")
		assert.ErrorIs(t, err, repositories.ErrAlreadyReviewed)
		assert.Equal(t, apperror.Conflict, apperror.KindOf(err))
	})

	t.Run("invalid input never reaches the repository", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := services.NewReviewService(repo)

		_, err := svc.AddReview(ctx, "p1", ben, 6, "great")
		assert.Equal(t, apperror.Validation, apperror.KindOf(err))
		_, err = svc.AddReview(ctx, "p1", ben, 4, "   ")
		assert.Equal(t, apperror.Validation, apperror.KindOf(err))
		repo.AssertNotCalled(t, "ModifyReviews", mock.Anything, mock.Anything)
	})
}

func TestReviewService_UpdateReview(t *testing.T) {
	ctx := context.Background()

	t.Run("author edits", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := services.NewReviewService(repo)
		repo.On("ReviewProductID", ctx, "r1").Return("p1", nil).Once()
		repo.On("ModifyReviews", ctx, "p1").Return(reviewedProduct(), nil).Once()

		product, err := svc.UpdateReview(ctx, "r1", ana, 1, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, 2.0, product.Rating)
		assert.Equal(t, "changed my mind", product.Reviews[0].Comment)
	})

	t.Run("someone else", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := services.NewReviewService(repo)
		repo.On("ReviewProductID", ctx, "r1").Return("p1", nil).Once()
		repo.On("ModifyReviews", ctx, "p1").Return(reviewedProduct(), nil).Once()

		_, err := svc.UpdateReview(ctx, "r1", admin, 1, "nope")
		assert.ErrorIs(t, err, services.ErrNotReviewOwner)
	})

	t.Run("unknown review", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := services.NewReviewService(repo)
		repo.On("ReviewProductID", ctx, "r9").Return("", repositories.ErrReviewNotFound).Once()

		_, err := svc.UpdateReview(ctx, "r9", ana, 3, "text")
		assert.ErrorIs(t, err, repositories.ErrReviewNotFound)
	})
}

func TestReviewService_DeleteReview(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		user    *models.User
		wantErr error
	}{
		{name: "author", user: ana},
		{name: "admin", user: admin},
		{name: "other user", user: ben, wantErr: services.ErrNotReviewOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockProductRepository)
			svc := services.NewReviewService(repo)
			repo.On("ReviewProductID", ctx, "r1").Return("p1", nil).Once()
			repo.On("ModifyReviews", ctx, "p1").Return(reviewedProduct(), nil).Once()

			product, err := svc.DeleteReview(ctx, "r1", tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, product.NumReviews)
			assert.Equal(t, 3.0, product.Rating)
		})
	}
}
