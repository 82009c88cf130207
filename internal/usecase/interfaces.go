package usecase

import (
	"context"
	"time"

	"warehouse/internal/domain"
)

type Page struct {
	Page  int
	Limit int
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Pages returns how many pages of p.Limit cover total items.
func (p Page) Pages(total int64) int64 {
	p = p.Normalize()
	limit := int64(p.Limit)
	return (total + limit - 1) / limit
}

type AccountRepository interface {
	GetAccount(ctx context.Context, id string) (domain.Account, error)
	Create(ctx context.Context, account domain.Account) error
	Update(ctx context.Context, account domain.Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page Page) ([]domain.Account, int64, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product domain.Product) (domain.Product, error)
	GetByID(ctx context.Context, id string) (domain.Product, error)
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page Page) ([]domain.Product, int64, error)
	SearchByName(ctx context.Context, prefix string, limit int) ([]domain.Product, error)
}

type InventoryRepository interface {
	List(ctx context.Context) ([]domain.InventoryItem, error)
	GetByProductID(ctx context.Context, productID string) (domain.InventoryItem, error)
	// Adjust applies op atomically, creating the record when it does not exist
	// and op is add or set.
	Adjust(ctx context.Context, productID string, op domain.InventoryOperation, quantity int, at time.Time) (domain.InventoryItem, error)
	LowStock(ctx context.Context, threshold int) ([]domain.InventoryItem, error)
	Delete(ctx context.Context, id string) error
}

type OrderFilter struct {
	UserID string
	Status domain.OrderStatus
}

type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) (domain.Order, error)
	GetByID(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, filter OrderFilter, page Page) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, at time.Time) error
	Delete(ctx context.Context, id string) error
}
