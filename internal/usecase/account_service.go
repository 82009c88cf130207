package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"warehouse/internal/domain"
)

type AccountService struct {
	Accounts    AccountRepository
	Revocations domain.RevocationList
	Now         func() time.Time
}

func NewAccountService(accounts AccountRepository, revocations domain.RevocationList) *AccountService {
	return &AccountService{Accounts: accounts, Revocations: revocations, Now: time.Now}
}

type RegisterInput struct {
	Name    string
	Phone   string
	Address string
}

type AccountPatch struct {
	Name     *string
	Email    *string
	Phone    *string
	Address  *string
	Role     *domain.Role
	IsActive *bool
}

// Register creates the account backing a verified identity. New accounts are
// always active customers.
func (s *AccountService) Register(ctx context.Context, claim domain.IdentityClaim, in RegisterInput) (domain.Account, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name); err != nil {
		return domain.Account{}, err
	}
	if _, err := s.Accounts.GetAccount(ctx, claim.SubjectID); err == nil {
		return domain.Account{}, fmt.Errorf("%w: account already exists", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, err
	}
	now := s.now()
	account := domain.Account{
		ID:        claim.SubjectID,
		Email:     claim.Email,
		Name:      name,
		Role:      domain.RoleCustomer,
		IsActive:  true,
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Accounts.Create(ctx, account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (domain.Account, error) {
	return s.Accounts.GetAccount(ctx, id)
}

func (s *AccountService) List(ctx context.Context, page Page) ([]domain.Account, int64, error) {
	return s.Accounts.List(ctx, page.Normalize())
}

// Update applies patch on behalf of actor. Only admins may change role or
// active state.
func (s *AccountService) Update(ctx context.Context, actor domain.AuthContext, id string, patch AccountPatch) (domain.Account, error) {
	if (patch.Role != nil || patch.IsActive != nil) && !actor.IsAdmin() {
		return domain.Account{}, fmt.Errorf("%w: only admins may change role or status", domain.ErrForbidden)
	}
	account, err := s.Accounts.GetAccount(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := validateName(name); err != nil {
			return domain.Account{}, err
		}
		account.Name = name
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if !strings.Contains(email, "@") {
			return domain.Account{}, fmt.Errorf("%w: valid email is required", domain.ErrInvalidArgument)
		}
		account.Email = email
	}
	if patch.Phone != nil {
		account.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Address != nil {
		account.Address = strings.TrimSpace(*patch.Address)
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return domain.Account{}, fmt.Errorf("%w: role must be admin or customer", domain.ErrInvalidArgument)
		}
		account.Role = *patch.Role
	}
	if patch.IsActive != nil {
		account.IsActive = *patch.IsActive
	}
	account.UpdatedAt = s.now()
	if err := s.Accounts.Update(ctx, account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (s *AccountService) Delete(ctx context.Context, id string) error {
	return s.Accounts.Delete(ctx, id)
}

// RevokeTokens voids every token issued to the subject before now.
func (s *AccountService) RevokeTokens(ctx context.Context, id string) (time.Time, error) {
	if s.Revocations == nil {
		return time.Time{}, fmt.Errorf("%w: revocation list not configured", domain.ErrUnavailable)
	}
	if _, err := s.Accounts.GetAccount(ctx, id); err != nil {
		return time.Time{}, err
	}
	at := s.now()
	if err := s.Revocations.Revoke(ctx, id, at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

func validateName(name string) error {
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return fmt.Errorf("%w: name must be between 2 and 50 characters", domain.ErrInvalidArgument)
	}
	return nil
}

func (s *AccountService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
