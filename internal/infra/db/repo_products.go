package db

import (
	"context"

	"warehouse/internal/domain"
	"warehouse/internal/usecase"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r.db == nil {
		return domain.Product{}, errDBUnavailable
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	model := productToModel(product)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Product{}, translate(err)
	}
	return product, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (domain.Product, error) {
	if r.db == nil {
		return domain.Product{}, errDBUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, domain.ErrNotFound
	}
	var model ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.Product{}, translate(err)
	}
	return productFromModel(model), nil
}

func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := productToModel(product)
	result := r.db.WithContext(ctx).
		Model(&ProductModel{}).
		Where("id = ?", product.ID).
		Select("name", "description", "price", "category", "sku", "stock", "active", "updated_at").
		Updates(&model)
	return requireRows(result)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	return requireRows(r.db.WithContext(ctx).Delete(&ProductModel{}, "id = ?", id))
}

func (r *ProductRepository) List(ctx context.Context, page usecase.Page) ([]domain.Product, int64, error) {
	if r.db == nil {
		return nil, 0, errDBUnavailable
	}
	page = page.Normalize()
	var total int64
	if err := r.db.WithContext(ctx).Model(&ProductModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []ProductModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	return productsFromModels(models), total, nil
}

func (r *ProductRepository) SearchByName(ctx context.Context, prefix string, limit int) ([]domain.Product, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ProductModel
	err := r.db.WithContext(ctx).
		Where(`name LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Order("name").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return productsFromModels(models), nil
}

func productToModel(p domain.Product) ProductModel {
	return ProductModel{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    string(p.Category),
		SKU:         p.SKU,
		Stock:       p.Stock,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func productsFromModels(models []ProductModel) []domain.Product {
	out := make([]domain.Product, 0, len(models))
	for _, model := range models {
		out = append(out, productFromModel(model))
	}
	return out
}

func productFromModel(m ProductModel) domain.Product {
	return domain.Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Category:    domain.Category(m.Category),
		SKU:         m.SKU,
		Stock:       m.Stock,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
