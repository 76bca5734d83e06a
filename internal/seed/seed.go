// Package seed loads an initial product catalog from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Product is the YAML form of a catalog entry.
type Product struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Price        string   `yaml:"price"`
	Discount     int      `yaml:"discount"`
	Category     string   `yaml:"category"`
	Material     string   `yaml:"material"`
	Weight       float64  `yaml:"weight"`
	Images       []string `yaml:"images"`
	Tags         []string `yaml:"tags"`
	CountInStock int      `yaml:"countInStock"`
	Featured     bool     `yaml:"featured"`
	IsNew        *bool    `yaml:"isNew"`
}

type file struct {
	Products []Product `yaml:"products"`
}

// Parse decodes a seed document.
func Parse(r io.Reader) ([]models.Product, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	out := make([]models.Product, 0, len(doc.Products))
	for i, p := range doc.Products {
		product, err := p.toModel()
		if err != nil {
			return nil, fmt.Errorf("seed product %d (%s): %w", i, p.Name, err)
		}
		out = append(out, product)
	}
	return out, nil
}

func (p Product) toModel() (models.Product, error) {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return models.Product{}, fmt.Errorf("invalid price %q", p.Price)
	}
	category := models.ProductCategory(p.Category)
	if !category.Valid() {
		return models.Product{}, fmt.Errorf("unknown category %q", p.Category)
	}

	product := models.Product{
		Name:         p.Name,
		Description:  p.Description,
		Price:        price.Round(2),
		Discount:     p.Discount,
		Category:     category,
		Weight:       p.Weight,
		Images:       p.Images,
		Tags:         p.Tags,
		CountInStock: p.CountInStock,
		Featured:     p.Featured,
		IsNew:        p.IsNew == nil || *p.IsNew,
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}
	if p.Material != "" {
		material := models.ProductMaterial(p.Material)
		if !material.Valid() {
			return models.Product{}, fmt.Errorf("unknown material %q", p.Material)
		}
		product.Material = &material
	}
	return product, nil
}

// Catalog inserts products when the catalog is empty and reports how many were added.
func Catalog(ctx context.Context, repo repositories.ProductRepository, products []models.Product) (int, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Debug().Int64("products", count).Msg("catalog already populated, skipping seed")
		return 0, nil
	}

	for i := range products {
		if err := repo.Create(ctx, &products[i]); err != nil {
			return i, fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
	}
	log.Info().Int("products", len(products)).Msg("catalog seeded")
	return len(products), nil
}

// LoadFile parses path and seeds the catalog from it.
func LoadFile(ctx context.Context, repo repositories.ProductRepository, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	products, err := Parse(f)
	if err != nil {
		return 0, err
	}
	return Catalog(ctx, repo, products)
}
