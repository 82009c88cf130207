package domain

import "time"

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryHome        Category = "home"
	CategoryBooks       Category = "books"
	CategoryOther       Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryElectronics, CategoryClothing, CategoryHome, CategoryBooks, CategoryOther:
		return true
	}
	return false
}

type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Category    Category
	SKU         string
	Stock       int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type InventoryOperation string

const (
	InventoryAdd      InventoryOperation = "add"
	InventorySubtract InventoryOperation = "subtract"
	InventorySet      InventoryOperation = "set"
)

func (o InventoryOperation) Valid() bool {
	return o == InventoryAdd || o == InventorySubtract || o == InventorySet
}

// Apply returns the quantity after applying the operation to current.
func (o InventoryOperation) Apply(current, quantity int) (int, error) {
	var next int
	switch o {
	case InventoryAdd:
		next = current + quantity
	case InventorySubtract:
		next = current - quantity
	case InventorySet:
		next = quantity
	default:
		return current, ErrInvalidArgument
	}
	if next < 0 {
		return current, ErrInvalidArgument
	}
	return next, nil
}

type InventoryItem struct {
	ID          string
	ProductID   string
	Quantity    int
	Location    string
	LastUpdated time.Time
	CreatedAt   time.Time
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Order struct {
	ID              string
	UserID          string
	Items           []OrderItem
	TotalAmount     float64
	Status          OrderStatus
	ShippingAddress string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
