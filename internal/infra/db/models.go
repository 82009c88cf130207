package db

import "time"

type AccountModel struct {
	ID        string    `gorm:"primaryKey"`
	Email     string    `gorm:"index"`
	Name      string    `gorm:"not null"`
	Role      string    `gorm:"not null;default:customer"`
	IsActive  bool      `gorm:"not null;default:true"`
	Phone     string
	Address   string
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

type ProductModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"index;not null"`
	Description string    `gorm:"type:text"`
	Price       float64   `gorm:"type:numeric(12,2);not null"`
	Category    string    `gorm:"index;not null"`
	SKU         string    `gorm:"column:sku;index"`
	Stock       int       `gorm:"not null;default:0"`
	Active      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (ProductModel) TableName() string {
	return "products"
}

type InventoryModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	ProductID   string    `gorm:"type:uuid;uniqueIndex;not null"`
	Quantity    int       `gorm:"not null;index"`
	Location    string
	LastUpdated time.Time `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (InventoryModel) TableName() string {
	return "inventory"
}

type OrderModel struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	UserID          string    `gorm:"index;not null"`
	ItemsJSON       []byte    `gorm:"column:items;type:jsonb;not null"`
	TotalAmount     float64   `gorm:"type:numeric(12,2);not null"`
	Status          string    `gorm:"index;not null"`
	ShippingAddress string
	CreatedAt       time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (OrderModel) TableName() string {
	return "orders"
}

func allModels() []any {
	return []any{&AccountModel{}, &ProductModel{}, &InventoryModel{}, &OrderModel{}}
}
