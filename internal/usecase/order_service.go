package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehouse/internal/domain"
)

type OrderService struct {
	Orders   OrderRepository
	Products ProductRepository
	Now      func() time.Time
}

func NewOrderService(orders OrderRepository, products ProductRepository) *OrderService {
	return &OrderService{Orders: orders, Products: products, Now: time.Now}
}

type OrderInput struct {
	UserID          string
	Items           []domain.OrderItem
	TotalAmount     float64
	ShippingAddress string
}

func (s *OrderService) Create(ctx context.Context, in OrderInput) (domain.Order, error) {
	if in.UserID == "" {
		return domain.Order{}, fmt.Errorf("%w: order owner is required", domain.ErrInvalidArgument)
	}
	if len(in.Items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: order must contain at least one product", domain.ErrInvalidArgument)
	}
	if in.TotalAmount < 0 {
		return domain.Order{}, fmt.Errorf("%w: total amount must be a positive number", domain.ErrInvalidArgument)
	}
	items := make([]domain.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.ProductID == "" {
			return domain.Order{}, fmt.Errorf("%w: product id is required", domain.ErrInvalidArgument)
		}
		if item.Quantity < 1 {
			return domain.Order{}, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidArgument)
		}
		if item.Price < 0 {
			return domain.Order{}, fmt.Errorf("%w: price must be a positive number", domain.ErrInvalidArgument)
		}
		if s.Products != nil {
			if _, err := s.Products.GetByID(ctx, item.ProductID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.Order{}, fmt.Errorf("%w: unknown product %s", domain.ErrInvalidArgument, item.ProductID)
				}
				return domain.Order{}, err
			}
		}
		items = append(items, item)
	}
	now := s.now()
	return s.Orders.Create(ctx, domain.Order{
		UserID:          in.UserID,
		Items:           items,
		TotalAmount:     in.TotalAmount,
		Status:          domain.OrderPending,
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (s *OrderService) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.Orders.GetByID(ctx, id)
}

// OwnerOf returns the id of the user who placed the order, or "" when the
// order does not exist.
func (s *OrderService) OwnerOf(ctx context.Context, id string) (string, error) {
	order, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return order.UserID, nil
}

func (s *OrderService) List(ctx context.Context, status string, page Page) ([]domain.Order, int64, error) {
	filter := OrderFilter{}
	if status = strings.TrimSpace(status); status != "" {
		filter.Status = domain.OrderStatus(status)
		if !filter.Status.Valid() {
			return nil, 0, fmt.Errorf("%w: invalid status", domain.ErrInvalidArgument)
		}
	}
	return s.Orders.List(ctx, filter, page)
}

func (s *OrderService) ListForUser(ctx context.Context, userID string, page Page) ([]domain.Order, int64, error) {
	return s.Orders.List(ctx, OrderFilter{UserID: userID}, page)
}

func (s *OrderService) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: invalid status", domain.ErrInvalidArgument)
	}
	if err := s.Orders.UpdateStatus(ctx, id, status, s.now()); err != nil {
		return domain.Order{}, err
	}
	return s.Orders.GetByID(ctx, id)
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	return s.Orders.Delete(ctx, id)
}

func (s *OrderService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
