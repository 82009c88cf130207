package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"warehouse/internal/domain"
)

const searchLimit = 50

type ProductService struct {
	Products ProductRepository
	Now      func() time.Time
}

func NewProductService(products ProductRepository) *ProductService {
	return &ProductService{Products: products, Now: time.Now}
}

type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Category    domain.Category
	SKU         string
	Stock       int
}

// ProductPatch carries the fields of a partial update; nil fields are left
// untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *domain.Category
	SKU         *string
	Stock       *int
	Active      *bool
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (domain.Product, error) {
	product := domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Category:    in.Category,
		SKU:         strings.TrimSpace(in.SKU),
		Stock:       in.Stock,
		Active:      true,
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}
	now := s.now()
	product.CreatedAt = now
	product.UpdatedAt = now
	return s.Products.Create(ctx, product)
}

func (s *ProductService) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.Products.GetByID(ctx, id)
}

func (s *ProductService) List(ctx context.Context, page Page) ([]domain.Product, int64, error) {
	return s.Products.List(ctx, page.Normalize())
}

func (s *ProductService) Search(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", domain.ErrInvalidArgument)
	}
	return s.Products.SearchByName(ctx, query, searchLimit)
}

func (s *ProductService) Update(ctx context.Context, id string, patch ProductPatch) (domain.Product, error) {
	product, err := s.Products.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if patch.Name != nil {
		product.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		product.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	if patch.SKU != nil {
		product.SKU = strings.TrimSpace(*patch.SKU)
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if patch.Active != nil {
		product.Active = *patch.Active
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}
	product.UpdatedAt = s.now()
	if err := s.Products.Update(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	return s.Products.Delete(ctx, id)
}

func validateProduct(p domain.Product) error {
	nameLen := utf8.RuneCountInString(p.Name)
	switch {
	case nameLen < 2 || nameLen > 100:
		return fmt.Errorf("%w: name must be between 2 and 100 characters", domain.ErrInvalidArgument)
	case utf8.RuneCountInString(p.Description) > 1000:
		return fmt.Errorf("%w: description cannot exceed 1000 characters", domain.ErrInvalidArgument)
	case p.Price < 0:
		return fmt.Errorf("%w: price must be a positive number", domain.ErrInvalidArgument)
	case !p.Category.Valid():
		return fmt.Errorf("%w: invalid category", domain.ErrInvalidArgument)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must be a non-negative integer", domain.ErrInvalidArgument)
	}
	return nil
}

func (s *ProductService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
