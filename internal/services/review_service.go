package services

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ReviewService manages product reviews. Every change recomputes the
// product's rating in the same transaction.
type ReviewService struct {
	repo repositories.ProductRepository
}

// NewReviewService creates a new ReviewService.
func NewReviewService(repo repositories.ProductRepository) *ReviewService {
	return &ReviewService{repo: repo}
}

// ListReviews returns the reviews of a product, oldest first.
func (s *ReviewService) ListReviews(ctx context.Context, productID string) ([]models.Review, error) {
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Reviews == nil {
		return []models.Review{}, nil
	}
	return product.Reviews, nil
}

// AddReview records user's review of a product. A user reviews a product once.
func (s *ReviewService) AddReview(ctx context.Context, productID string, user *models.User, rating int, comment string) (*models.Product, error) {
	comment = strings.TrimSpace(comment)
	if err := validateReview(rating, comment); err != nil {
		return nil, err
	}

	return s.repo.ModifyReviews(ctx, productID, func(p *models.Product) error {
		for _, r := range p.Reviews {
			if r.UserID == user.ID {
				return repositories.ErrAlreadyReviewed
			}
		}
		p.Reviews = append(p.Reviews, models.Review{
			UserID:  user.ID,
			Name:    user.Name,
			Rating:  rating,
			Comment: comment,
		})
		return nil
	})
}

// UpdateReview changes the rating and comment of a review. Only its author may do so.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID string, user *models.User, rating int, comment string) (*models.Product, error) {
	comment = strings.TrimSpace(comment)
	if err := validateReview(rating, comment); err != nil {
		return nil, err
	}

	productID, err := s.repo.ReviewProductID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	return s.repo.ModifyReviews(ctx, productID, func(p *models.Product) error {
		i := reviewIndex(p, reviewID)
		if i < 0 {
			return fmt.Errorf("%w: %s", repositories.ErrReviewNotFound, reviewID)
		}
		if p.Reviews[i].UserID != user.ID {
			return ErrNotReviewOwner
		}
		p.Reviews[i].Rating = rating
		p.Reviews[i].Comment = comment
		return nil
	})
}

// DeleteReview removes a review. Its author and admins may do so.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID string, user *models.User) (*models.Product, error) {
	productID, err := s.repo.ReviewProductID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	return s.repo.ModifyReviews(ctx, productID, func(p *models.Product) error {
		i := reviewIndex(p, reviewID)
		if i < 0 {
			return fmt.Errorf("%w: %s", repositories.ErrReviewNotFound, reviewID)
		}
		if p.Reviews[i].UserID != user.ID && !user.IsAdmin {
			return ErrNotReviewOwner
		}
		p.Reviews = append(p.Reviews[:i], p.Reviews[i+1:]...)
		return nil
	})
}

func reviewIndex(p *models.Product, reviewID string) int {
	for i := range p.Reviews {
		if p.Reviews[i].ID == reviewID {
			return i
		}
	}
	return -1
}

func validateReview(rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return invalid("rating must be between 1 and 5")
	}
	if comment == "" {
		return invalid("comment is required")
	}
	return nil
}
