package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"warehouse/internal/domain"
	"warehouse/internal/usecase"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if r.db == nil {
		return domain.Order{}, errDBUnavailable
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	model, err := orderToModel(order)
	if err != nil {
		return domain.Order{}, err
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Order{}, translate(err)
	}
	return order, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	if r.db == nil {
		return domain.Order{}, errDBUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, domain.ErrNotFound
	}
	var model OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.Order{}, translate(err)
	}
	return orderFromModel(model)
}

func (r *OrderRepository) List(ctx context.Context, filter usecase.OrderFilter, page usecase.Page) ([]domain.Order, int64, error) {
	if r.db == nil {
		return nil, 0, errDBUnavailable
	}
	page = page.Normalize()
	query := r.db.WithContext(ctx).Model(&OrderModel{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []OrderModel
	err := query.Order("created_at DESC").
		Order("id").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Order, 0, len(models))
	for _, model := range models {
		order, err := orderFromModel(model)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, order)
	}
	return out, total, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	result := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": at})
	return requireRows(result)
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	return requireRows(r.db.WithContext(ctx).Delete(&OrderModel{}, "id = ?", id))
}

func orderToModel(o domain.Order) (OrderModel, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return OrderModel{}, fmt.Errorf("encode order items: %w", err)
	}
	return OrderModel{
		ID:              o.ID,
		UserID:          o.UserID,
		ItemsJSON:       items,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}, nil
}

func orderFromModel(m OrderModel) (domain.Order, error) {
	var items []domain.OrderItem
	if len(m.ItemsJSON) > 0 {
		if err := json.Unmarshal(m.ItemsJSON, &items); err != nil {
			return domain.Order{}, fmt.Errorf("decode order items: %w", err)
		}
	}
	return domain.Order{
		ID:              m.ID,
		UserID:          m.UserID,
		Items:           items,
		TotalAmount:     m.TotalAmount,
		Status:          domain.OrderStatus(m.Status),
		ShippingAddress: m.ShippingAddress,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}, nil
}
