package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lalamig/storefront/internal/models"
)

// CreateOrder writes the order and its items in one transaction so a
// partially written order is never visible to readers.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// FindOrderByClientRequestID looks up a previous submission of the same
// client request, nil when there is none.
func (r *GormRepo) FindOrderByClientRequestID(ctx context.Context, userID uuid.UUID, requestID string) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND client_request_id = ?", userID, requestID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	orders := []models.Order{}
	err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
