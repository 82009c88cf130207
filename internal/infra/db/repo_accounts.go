package db

import (
	"context"

	"warehouse/internal/domain"
	"warehouse/internal/usecase"

	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	if r.db == nil {
		return domain.Account{}, errDBUnavailable
	}
	var model AccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.Account{}, translate(err)
	}
	return accountFromModel(model), nil
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := accountToModel(account)
	return translate(r.db.WithContext(ctx).Create(&model).Error)
}

func (r *AccountRepository) Update(ctx context.Context, account domain.Account) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).
		Model(&AccountModel{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"email":      account.Email,
			"name":       account.Name,
			"role":       string(account.Role),
			"is_active":  account.IsActive,
			"phone":      account.Phone,
			"address":    account.Address,
			"updated_at": account.UpdatedAt,
		})
	return requireRows(result)
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return requireRows(r.db.WithContext(ctx).Delete(&AccountModel{}, "id = ?", id))
}

func (r *AccountRepository) List(ctx context.Context, page usecase.Page) ([]domain.Account, int64, error) {
	if r.db == nil {
		return nil, 0, errDBUnavailable
	}
	page = page.Normalize()
	var total int64
	if err := r.db.WithContext(ctx).Model(&AccountModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []AccountModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Account, 0, len(models))
	for _, model := range models {
		out = append(out, accountFromModel(model))
	}
	return out, total, nil
}

func accountToModel(a domain.Account) AccountModel {
	return AccountModel{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Role:      string(a.Role),
		IsActive:  a.IsActive,
		Phone:     a.Phone,
		Address:   a.Address,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func accountFromModel(m AccountModel) domain.Account {
	return domain.Account{
		ID:        m.ID,
		Email:     m.Email,
		Name:      m.Name,
		Role:      domain.Role(m.Role),
		IsActive:  m.IsActive,
		Phone:     m.Phone,
		Address:   m.Address,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
