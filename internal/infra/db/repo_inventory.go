package db

import (
	"context"
	"errors"
	"time"

	"warehouse/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) List(ctx context.Context) ([]domain.InventoryItem, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []InventoryModel
	if err := r.db.WithContext(ctx).Order("product_id").Find(&models).Error; err != nil {
		return nil, err
	}
	return inventoryFromModels(models), nil
}

func (r *InventoryRepository) GetByProductID(ctx context.Context, productID string) (domain.InventoryItem, error) {
	if r.db == nil {
		return domain.InventoryItem{}, errDBUnavailable
	}
	var model InventoryModel
	if err := r.db.WithContext(ctx).First(&model, "product_id = ?", productID).Error; err != nil {
		return domain.InventoryItem{}, translate(err)
	}
	return inventoryFromModel(model), nil
}

// Adjust locks the product's row for the duration of the read-modify-write so
// concurrent adjustments serialize. A missing row is inserted empty with
// ON CONFLICT DO NOTHING first, so concurrent first writes converge on one row.
func (r *InventoryRepository) Adjust(ctx context.Context, productID string, op domain.InventoryOperation, quantity int, at time.Time) (domain.InventoryItem, error) {
	if r.db == nil {
		return domain.InventoryItem{}, errDBUnavailable
	}
	var out InventoryModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := lockInventory(tx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) && op != domain.InventorySubtract {
			seed := InventoryModel{
				ID:          uuid.NewString(),
				ProductID:   productID,
				LastUpdated: at,
				CreatedAt:   at,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "product_id"}},
				DoNothing: true,
			}).Create(&seed).Error; err != nil {
				return translate(err)
			}
			model, err = lockInventory(tx, productID)
		}
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return domain.ErrNotFound
		case err != nil:
			return err
		}
		next, err := op.Apply(model.Quantity, quantity)
		if err != nil {
			return err
		}
		model.Quantity = next
		model.LastUpdated = at
		if err := tx.Model(&InventoryModel{}).
			Where("id = ?", model.ID).
			Updates(map[string]any{"quantity": next, "last_updated": at}).Error; err != nil {
			return err
		}
		out = model
		return nil
	})
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return inventoryFromModel(out), nil
}

func lockInventory(tx *gorm.DB, productID string) (InventoryModel, error) {
	var model InventoryModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "product_id = ?", productID).Error
	return model, err
}

func (r *InventoryRepository) LowStock(ctx context.Context, threshold int) ([]domain.InventoryItem, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []InventoryModel
	err := r.db.WithContext(ctx).
		Where("quantity <= ?", threshold).
		Order("quantity").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return inventoryFromModels(models), nil
}

func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	return requireRows(r.db.WithContext(ctx).Delete(&InventoryModel{}, "id = ?", id))
}

func inventoryFromModels(models []InventoryModel) []domain.InventoryItem {
	out := make([]domain.InventoryItem, 0, len(models))
	for _, model := range models {
		out = append(out, inventoryFromModel(model))
	}
	return out
}

func inventoryFromModel(m InventoryModel) domain.InventoryItem {
	return domain.InventoryItem{
		ID:          m.ID,
		ProductID:   m.ProductID,
		Quantity:    m.Quantity,
		Location:    m.Location,
		LastUpdated: m.LastUpdated,
		CreatedAt:   m.CreatedAt,
	}
}
