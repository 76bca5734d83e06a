package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Place loads the products, builds the order from them and decrements the
// stock of every line with a guarded update before inserting the order. Any
// failure rolls back the whole order.
func (r *GORMOrderRepository) Place(ctx context.Context, productIDs []string, build OrderBuilder) (*models.Order, error) {
	var order *models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var products []models.Product
		if err := tx.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
			return fmt.Errorf("failed to load order products: %w", err)
		}
		byID := make(map[string]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		built, err := build(byID)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, item := range built.Items {
			p, ok := byID[item.ProductID]
			if !ok {
				return fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
			}
			if item.Quantity <= 0 {
				return fmt.Errorf("%w: %s", ErrInvalidQuantity, item.ProductID)
			}
			res := tx.Model(&models.Product{}).
				Where("id = ? AND version = ? AND count_in_stock >= ?", p.ID, p.Version, item.Quantity).
				Updates(map[string]any{
					"count_in_stock": gorm.Expr("count_in_stock - ?", item.Quantity),
					"sold":           gorm.Expr("sold + ?", item.Quantity),
					"version":        gorm.Expr("version + 1"),
					"updated_at":     now,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to reserve stock for %s: %w", p.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return classifyReservation(tx, p.ID, item.Quantity)
			}
		}

		if built.ID == "" {
			built.ID = uuid.New().String()
		}
		built.IsPaid = false
		built.PaidAt = nil
		built.IsDelivered = false
		built.DeliveredAt = nil
		if err := tx.Create(built).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		order = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// classifyReservation explains why a guarded stock decrement matched no row.
func classifyReservation(tx *gorm.DB, productID string, quantity int) error {
	var current models.Product
	if err := tx.Select("id", "count_in_stock").First(&current, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return fmt.Errorf("failed to check stock for %s: %w", productID, err)
	}
	if current.CountInStock < quantity {
		return fmt.Errorf("%w: %s has %d left", ErrOutOfStock, productID, current.CountInStock)
	}
	return ErrVersionConflict
}

// GetByID retrieves an order with its items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *GORMOrderRepository) get(db *gorm.DB, id string) (*models.Order, error) {
	var order models.Order
	if err := db.Preload("Items", orderItemsByID).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &order, nil
}

// ListByUser returns the orders of a user, newest first.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Preload("Items", orderItemsByID).
		Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders of user %s: %w", userID, err)
	}
	return orders, nil
}

// ListAll returns every order, newest first.
func (r *GORMOrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).Preload("Items", orderItemsByID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// MarkPaid flips an unpaid order to paid. A paid order is never touched again.
func (r *GORMOrderRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time, result models.PaymentResult) (*models.Order, error) {
	var order *models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).Where("id = ? AND is_paid = ?", id, false).Updates(map[string]any{
			"is_paid":               true,
			"paid_at":               paidAt,
			"payment_id":            result.ID,
			"payment_status":        result.Status,
			"payment_update_time":   result.UpdateTime,
			"payment_email_address": result.EmailAddress,
			"updated_at":            time.Now(),
		})
		if res.Error != nil {
			return fmt.Errorf("failed to mark order %s paid: %w", id, res.Error)
		}

		current, err := r.get(tx, id)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyPaid, id)
		}
		order = current
		return nil
	})
	return order, err
}

// MarkDelivered flips an undelivered order to delivered. With requirePaid the
// order must already be paid.
func (r *GORMOrderRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time, requirePaid bool) (*models.Order, error) {
	var order *models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Order{}).Where("id = ? AND is_delivered = ?", id, false)
		if requirePaid {
			q = q.Where("is_paid = ?", true)
		}
		res := q.Updates(map[string]any{
			"is_delivered": true,
			"delivered_at": deliveredAt,
			"updated_at":   time.Now(),
		})
		if res.Error != nil {
			return fmt.Errorf("failed to mark order %s delivered: %w", id, res.Error)
		}

		current, err := r.get(tx, id)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			if current.IsDelivered {
				return fmt.Errorf("%w: %s", ErrAlreadyDelivered, id)
			}
			return fmt.Errorf("%w: %s", ErrOrderNotPaid, id)
		}
		order = current
		return nil
	})
	return order, err
}

// Delete removes an order and its items.
func (r *GORMOrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete order items: %w", err)
		}
		res := tx.Delete(&models.Order{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return nil
	})
}

func orderItemsByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}
