package services

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

const (
	productPageSize = 12
	topRatedLimit   = 5
	topSellingLimit = 8
)

// ProductPage is one page of the catalog.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Total    int64            `json:"total"`
}

// ProductInput holds every field of a new product.
type ProductInput struct {
	Name         string
	Description  string
	Price        decimal.Decimal
	Discount     int
	Category     models.ProductCategory
	Material     *models.ProductMaterial
	Weight       float64
	Images       []string
	Tags         []string
	CountInStock int
	Featured     bool
	IsNew        *bool
}

// ProductPatch holds the optional fields of a product edit. When Version is
// set it must match the stored version.
type ProductPatch struct {
	Name         *string
	Description  *string
	Price        *decimal.Decimal
	Discount     *int
	Category     *models.ProductCategory
	Material     *models.ProductMaterial
	Weight       *float64
	Images       []string
	Tags         []string
	CountInStock *int
	Featured     *bool
	IsNew        *bool
	Version      *int64
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// ListProducts returns the given 1-based page of the catalog.
func (s *ProductService) ListProducts(ctx context.Context, page int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	products, total, err := s.repo.List(ctx, (page-1)*productPageSize, productPageSize)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	pages := int((total + productPageSize - 1) / productPageSize)
	return &ProductPage{Products: products, Page: page, Pages: pages, Total: total}, nil
}

// TopRated returns the best rated products.
func (s *ProductService) TopRated(ctx context.Context) ([]models.Product, error) {
	return s.repo.TopRated(ctx, topRatedLimit)
}

// TopSelling returns the best selling products.
func (s *ProductService) TopSelling(ctx context.Context) ([]models.Product, error) {
	return s.repo.TopSelling(ctx, topSellingLimit)
}

// GetProduct retrieves a single product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct validates in and adds it to the catalog.
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	product := &models.Product{
		Name:         strings.TrimSpace(in.Name),
		Description:  strings.TrimSpace(in.Description),
		Price:        in.Price.Round(2),
		Discount:     in.Discount,
		Category:     in.Category,
		Material:     in.Material,
		Weight:       in.Weight,
		Images:       in.Images,
		Tags:         in.Tags,
		CountInStock: in.CountInStock,
		Featured:     in.Featured,
		IsNew:        true,
	}
	if in.IsNew != nil {
		product.IsNew = *in.IsNew
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct applies the set fields of patch.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Version != nil && *patch.Version != product.Version {
		return nil, fmt.Errorf("%w: product %s is at version %d", ErrVersionConflict, id, product.Version)
	}

	if patch.Name != nil {
		product.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		product.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		product.Price = patch.Price.Round(2)
	}
	if patch.Discount != nil {
		product.Discount = *patch.Discount
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	if patch.Material != nil {
		product.Material = patch.Material
	}
	if patch.Weight != nil {
		product.Weight = *patch.Weight
	}
	if patch.Images != nil {
		product.Images = patch.Images
	}
	if patch.Tags != nil {
		product.Tags = patch.Tags
	}
	if patch.CountInStock != nil {
		product.CountInStock = *patch.CountInStock
	}
	if patch.Featured != nil {
		product.Featured = *patch.Featured
	}
	if patch.IsNew != nil {
		product.IsNew = *patch.IsNew
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct deletes a product and its reviews. Orders keep their snapshots.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Name == "" || p.Description == "":
		return invalid("name and description are required")
	case !p.Price.IsPositive():
		return invalid("price must be greater than zero")
	case p.Discount < 0 || p.Discount > 100:
		return invalid("discount must be between 0 and 100")
	case !p.Category.Valid():
		return invalid(fmt.Sprintf("unknown category %q", p.Category))
	case p.Material != nil && !p.Material.Valid():
		return invalid(fmt.Sprintf("unknown material %q", *p.Material))
	case len(p.Images) == 0:
		return invalid("at least one image is required")
	case p.CountInStock < 0:
		return invalid("count in stock must not be negative")
	case p.Weight < 0:
		return invalid("weight must not be negative")
	}
	return nil
}
