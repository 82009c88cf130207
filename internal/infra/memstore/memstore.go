// Package memstore keeps warehouse records in process memory. It backs the
// server when no POSTGRES_DSN is configured and is used throughout the tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"warehouse/internal/domain"
	"warehouse/internal/usecase"

	"github.com/google/uuid"
)

type Accounts struct {
	mu   sync.RWMutex
	data map[string]domain.Account
}

func NewAccounts(seed ...domain.Account) *Accounts {
	a := &Accounts{data: make(map[string]domain.Account)}
	for _, account := range seed {
		a.data[account.ID] = account
	}
	return a
}

func (a *Accounts) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	account, ok := a.data[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return account, nil
}

func (a *Accounts) Create(_ context.Context, account domain.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.data[account.ID]; ok {
		return domain.ErrConflict
	}
	a.data[account.ID] = account
	return nil
}

func (a *Accounts) Update(_ context.Context, account domain.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.data[account.ID]; !ok {
		return domain.ErrNotFound
	}
	a.data[account.ID] = account
	return nil
}

func (a *Accounts) Delete(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(a.data, id)
	return nil
}

func (a *Accounts) List(_ context.Context, page usecase.Page) ([]domain.Account, int64, error) {
	a.mu.RLock()
	all := make([]domain.Account, 0, len(a.data))
	for _, account := range a.data {
		all = append(all, account)
	}
	a.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, page), int64(len(all)), nil
}

type Products struct {
	mu   sync.RWMutex
	data map[string]domain.Product
}

func NewProducts() *Products {
	return &Products{data: make(map[string]domain.Product)}
}

func (p *Products) Create(_ context.Context, product domain.Product) (domain.Product, error) {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.data[product.ID]; ok {
		return domain.Product{}, domain.ErrConflict
	}
	p.data[product.ID] = product
	return product, nil
}

func (p *Products) GetByID(_ context.Context, id string) (domain.Product, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	product, ok := p.data[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return product, nil
}

func (p *Products) Update(_ context.Context, product domain.Product) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.data[product.ID]; !ok {
		return domain.ErrNotFound
	}
	p.data[product.ID] = product
	return nil
}

func (p *Products) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(p.data, id)
	return nil
}

func (p *Products) List(_ context.Context, page usecase.Page) ([]domain.Product, int64, error) {
	all := p.sorted()
	return paginate(all, page), int64(len(all)), nil
}

func (p *Products) SearchByName(_ context.Context, prefix string, limit int) ([]domain.Product, error) {
	out := make([]domain.Product, 0)
	for _, product := range p.sorted() {
		if strings.HasPrefix(product.Name, prefix) {
			out = append(out, product)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (p *Products) sorted() []domain.Product {
	p.mu.RLock()
	all := make([]domain.Product, 0, len(p.data))
	for _, product := range p.data {
		all = append(all, product)
	}
	p.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}

type Inventory struct {
	mu        sync.Mutex
	byProduct map[string]domain.InventoryItem
}

func NewInventory() *Inventory {
	return &Inventory{byProduct: make(map[string]domain.InventoryItem)}
}

func (i *Inventory) List(_ context.Context) ([]domain.InventoryItem, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]domain.InventoryItem, 0, len(i.byProduct))
	for _, item := range i.byProduct {
		out = append(out, item)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ProductID < out[b].ProductID })
	return out, nil
}

func (i *Inventory) GetByProductID(_ context.Context, productID string) (domain.InventoryItem, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	item, ok := i.byProduct[productID]
	if !ok {
		return domain.InventoryItem{}, domain.ErrNotFound
	}
	return item, nil
}

func (i *Inventory) Adjust(_ context.Context, productID string, op domain.InventoryOperation, quantity int, at time.Time) (domain.InventoryItem, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	item, ok := i.byProduct[productID]
	if !ok {
		if op == domain.InventorySubtract {
			return domain.InventoryItem{}, domain.ErrNotFound
		}
		item = domain.InventoryItem{ID: uuid.NewString(), ProductID: productID, CreatedAt: at}
	}
	next, err := op.Apply(item.Quantity, quantity)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	item.Quantity = next
	item.LastUpdated = at
	i.byProduct[productID] = item
	return item, nil
}

func (i *Inventory) LowStock(_ context.Context, threshold int) ([]domain.InventoryItem, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]domain.InventoryItem, 0)
	for _, item := range i.byProduct {
		if item.Quantity <= threshold {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Quantity < out[b].Quantity })
	return out, nil
}

func (i *Inventory) Delete(_ context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for productID, item := range i.byProduct {
		if item.ID == id {
			delete(i.byProduct, productID)
			return nil
		}
	}
	return domain.ErrNotFound
}

type Orders struct {
	mu   sync.RWMutex
	data map[string]domain.Order
}

func NewOrders() *Orders {
	return &Orders{data: make(map[string]domain.Order)}
}

func (o *Orders) Create(_ context.Context, order domain.Order) (domain.Order, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.data[order.ID] = order
	return order, nil
}

func (o *Orders) GetByID(_ context.Context, id string) (domain.Order, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	order, ok := o.data[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

func (o *Orders) List(_ context.Context, filter usecase.OrderFilter, page usecase.Page) ([]domain.Order, int64, error) {
	o.mu.RLock()
	out := make([]domain.Order, 0, len(o.data))
	for _, order := range o.data {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		out = append(out, order)
	}
	o.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, page), int64(len(out)), nil
}

func (o *Orders) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = at
	o.data[id] = order
	return nil
}

func (o *Orders) Delete(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(o.data, id)
	return nil
}

func paginate[T any](all []T, page usecase.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
