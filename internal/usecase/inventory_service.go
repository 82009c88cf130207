package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehouse/internal/domain"
)

const DefaultLowStockThreshold = 10

type InventoryService struct {
	Inventory InventoryRepository
	Products  ProductRepository
	Now       func() time.Time
}

func NewInventoryService(inventory InventoryRepository, products ProductRepository) *InventoryService {
	return &InventoryService{Inventory: inventory, Products: products, Now: time.Now}
}

type InventoryUpdate struct {
	ProductID string
	Quantity  int
	Operation domain.InventoryOperation
}

func (s *InventoryService) List(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.Inventory.List(ctx)
}

func (s *InventoryService) Update(ctx context.Context, in InventoryUpdate) (domain.InventoryItem, error) {
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return domain.InventoryItem{}, fmt.Errorf("%w: productId is required", domain.ErrInvalidArgument)
	}
	if !in.Operation.Valid() {
		return domain.InventoryItem{}, fmt.Errorf("%w: operation must be add, subtract, or set", domain.ErrInvalidArgument)
	}
	if in.Quantity < 0 {
		return domain.InventoryItem{}, fmt.Errorf("%w: quantity must be non-negative", domain.ErrInvalidArgument)
	}
	if s.Products != nil {
		if _, err := s.Products.GetByID(ctx, productID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.InventoryItem{}, fmt.Errorf("%w: unknown product %s", domain.ErrInvalidArgument, productID)
			}
			return domain.InventoryItem{}, err
		}
	}
	return s.Inventory.Adjust(ctx, productID, in.Operation, in.Quantity, s.now())
}

func (s *InventoryService) LowStock(ctx context.Context, threshold int) ([]domain.InventoryItem, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return s.Inventory.LowStock(ctx, threshold)
}

func (s *InventoryService) Delete(ctx context.Context, id string) error {
	return s.Inventory.Delete(ctx, id)
}

func (s *InventoryService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
