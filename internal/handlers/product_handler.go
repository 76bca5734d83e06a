package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// ProductHandler handles HTTP requests for the catalog and its reviews.
type ProductHandler struct {
	products *services.ProductService
	reviews  *services.ReviewService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(products *services.ProductService, reviews *services.ReviewService) *ProductHandler {
	return &ProductHandler{products: products, reviews: reviews, validate: newValidator()}
}

// RegisterRoutes registers the product and review routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, verified []fiber.Handler, admin fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/top", h.HandleTopRated)
	productRoutes.Get("/top-selling", h.HandleTopSelling)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Get("/:id/reviews", h.HandleListReviews)
	productRoutes.Post("/:id/reviews", chain(verified, h.HandleAddReview)...)

	productRoutes.Post("/", chain(verified, admin, h.HandleCreateProduct)...)
	productRoutes.Put("/:id", chain(verified, admin, h.HandleUpdateProduct)...)
	productRoutes.Delete("/:id", chain(verified, admin, h.HandleDeleteProduct)...)

	reviewRoutes := router.Group("/reviews")
	reviewRoutes.Put("/:id", chain(verified, h.HandleUpdateReview)...)
	reviewRoutes.Delete("/:id", chain(verified, h.HandleDeleteReview)...)
}

// HandleListProducts returns one page of the catalog.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	result, err := h.products.ListProducts(c.UserContext(), page(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleTopRated returns the best rated products.
func (h *ProductHandler) HandleTopRated(c *fiber.Ctx) error {
	products, err := h.products.TopRated(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// HandleTopSelling returns the best selling products.
func (h *ProductHandler) HandleTopSelling(c *fiber.Ctx) error {
	products, err := h.products.TopSelling(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// HandleGetProduct retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.products.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// ProductRequest represents the body of a new product.
type ProductRequest struct {
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description" validate:"required"`
	Price        decimal.Decimal `json:"price"`
	Discount     int             `json:"discount" validate:"min=0,max=100"`
	Category     string          `json:"category" validate:"required"`
	Material     string          `json:"material"`
	Weight       float64         `json:"weight" validate:"min=0"`
	Images       []string        `json:"images" validate:"required,min=1,dive,required"`
	Tags         []string        `json:"tags"`
	CountInStock int             `json:"countInStock" validate:"min=0"`
	Featured     bool            `json:"featured"`
	IsNew        *bool           `json:"isNew"`
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	in := services.ProductInput{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Discount:     req.Discount,
		Category:     models.ProductCategory(req.Category),
		Weight:       req.Weight,
		Images:       req.Images,
		Tags:         req.Tags,
		CountInStock: req.CountInStock,
		Featured:     req.Featured,
		IsNew:        req.IsNew,
	}
	if req.Material != "" {
		material := models.ProductMaterial(req.Material)
		in.Material = &material
	}

	product, err := h.products.CreateProduct(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// ProductPatchRequest holds the optional fields of a product edit.
type ProductPatchRequest struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	Discount     *int             `json:"discount" validate:"omitempty,min=0,max=100"`
	Category     *string          `json:"category"`
	Material     *string          `json:"material"`
	Weight       *float64         `json:"weight" validate:"omitempty,min=0"`
	Images       []string         `json:"images" validate:"omitempty,min=1,dive,required"`
	Tags         []string         `json:"tags"`
	CountInStock *int             `json:"countInStock" validate:"omitempty,min=0"`
	Featured     *bool            `json:"featured"`
	IsNew        *bool            `json:"isNew"`
	Version      *int64           `json:"version"`
}

// HandleUpdateProduct applies a partial edit. A version in the body must match the stored one.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req ProductPatchRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	patch := services.ProductPatch{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Discount:     req.Discount,
		Weight:       req.Weight,
		Images:       req.Images,
		Tags:         req.Tags,
		CountInStock: req.CountInStock,
		Featured:     req.Featured,
		IsNew:        req.IsNew,
		Version:      req.Version,
	}
	if req.Category != nil {
		category := models.ProductCategory(*req.Category)
		patch.Category = &category
	}
	if req.Material != nil {
		material := models.ProductMaterial(*req.Material)
		patch.Material = &material
	}

	product, err := h.products.UpdateProduct(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product and its reviews.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.products.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// HandleListReviews returns the reviews of a product.
func (h *ProductHandler) HandleListReviews(c *fiber.Ctx) error {
	reviews, err := h.reviews.ListReviews(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviews)
}

// ReviewRequest represents the body of a review.
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

// HandleAddReview reviews a product as the signed in user.
func (h *ProductHandler) HandleAddReview(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	product, err := h.reviews.AddReview(c.UserContext(), c.Params("id"), middleware.CurrentUser(c), req.Rating, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateReview edits the caller's review.
func (h *ProductHandler) HandleUpdateReview(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	product, err := h.reviews.UpdateReview(c.UserContext(), c.Params("id"), middleware.CurrentUser(c), req.Rating, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleDeleteReview removes a review.
func (h *ProductHandler) HandleDeleteReview(c *fiber.Ctx) error {
	product, err := h.reviews.DeleteReview(c.UserContext(), c.Params("id"), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}
