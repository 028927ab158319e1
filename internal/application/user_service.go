package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmc-edu/room-booking/internal/availability"
	"github.com/cmc-edu/room-booking/internal/persistence"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user persistence.User) (persistence.User, error)
	GetUserByEmail(ctx context.Context, email string) (persistence.User, error)
	UpdateUser(ctx context.Context, email string, patch persistence.UserPatch) error
	ListUsers(ctx context.Context) ([]persistence.User, error)
}

// UserReseeder restores the demo accounts when the user collection is empty.
type UserReseeder interface {
	EnsureUsers(ctx context.Context) error
}

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users    UserRepository
	hasher   PasswordHasher
	reseeder UserReseeder
}

// NewUserService wires dependencies for the user service. A nil hasher falls
// back to argon2id with the default parameters; reseeder may be nil.
func NewUserService(users UserRepository, hasher PasswordHasher, reseeder UserReseeder) *UserService {
	if hasher == nil {
		hasher = NewArgon2idHasher(DefaultArgon2idParams)
	}
	return &UserService{users: users, hasher: hasher, reseeder: reseeder}
}

// CreateUser registers an account. Anyone may register a student account;
// only administrators may assign other roles.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (persistence.User, error) {
	if s == nil || s.users == nil {
		return persistence.User{}, fmt.Errorf("UserService is not configured")
	}

	input := normalizeUserInput(params.Input)
	if input.Role != persistence.RoleStudent && params.Principal.Role != persistence.RoleAdmin {
		return persistence.User{}, ErrUnauthorized
	}

	vErr := validateStruct(input)
	if !input.Role.Valid() {
		vErr.add("vai_tro", msgUnknownRole)
	}
	if input.DateOfBirth != "" {
		if _, err := availability.ParseDate(input.DateOfBirth); err != nil {
			vErr.add("ngay_sinh", msgDate)
		}
	}
	phone, err := NormalizePhone(input.Phone)
	if err != nil {
		vErr.add("so_dien_thoai", msgPhone)
	}
	if vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return persistence.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, persistence.User{
		Code:         input.Code,
		Name:         input.Name,
		DateOfBirth:  input.DateOfBirth,
		Sex:          input.Sex,
		Email:        input.Email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         input.Role,
	})
	if err != nil {
		return persistence.User{}, mapRepoError(err)
	}
	return user, nil
}

// UpdatePassword replaces the password of the principal's own account.
func (s *UserService) UpdatePassword(ctx context.Context, params UpdatePasswordParams) error {
	if s == nil || s.users == nil {
		return fmt.Errorf("UserService is not configured")
	}
	if params.Principal.Email == "" {
		return ErrUnauthenticated
	}
	if vErr := validateStruct(params); vErr.HasErrors() {
		return vErr
	}

	hash, err := s.hasher.Hash(params.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdateUser(ctx, params.Principal.Email, persistence.UserPatch{PasswordHash: &hash}); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// FindByEmail looks up an account by email. When the user collection has
// been emptied the demo accounts are restored before the lookup is retried.
func (s *UserService) FindByEmail(ctx context.Context, email string) (persistence.User, error) {
	if s == nil || s.users == nil {
		return persistence.User{}, fmt.Errorf("UserService is not configured")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return persistence.User{}, ErrNotFound
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) || s.reseeder == nil {
		return persistence.User{}, mapRepoError(err)
	}

	all, err := s.users.ListUsers(ctx)
	if err != nil {
		return persistence.User{}, err
	}
	if len(all) > 0 {
		return persistence.User{}, ErrNotFound
	}
	if err := s.reseeder.EnsureUsers(ctx); err != nil {
		return persistence.User{}, fmt.Errorf("reseed users: %w", err)
	}

	user, err = s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return persistence.User{}, mapRepoError(err)
	}
	return user, nil
}

// ListUsers returns every account in insertion order for staff.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]persistence.User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("UserService is not configured")
	}
	if !principal.CanListUsers() {
		return nil, ErrUnauthorized
	}
	return s.users.ListUsers(ctx)
}

// VerifyCredentials checks an email and password pair for the upstream login
// page, which then asserts the email through X-User-Email. Unknown accounts and
// wrong passwords both yield ErrInvalidCredentials. No HTTP route calls it.
func (s *UserService) VerifyCredentials(ctx context.Context, email, password string) (persistence.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return persistence.User{}, ErrInvalidCredentials
		}
		return persistence.User{}, err
	}
	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return persistence.User{}, ErrInvalidCredentials
		}
		return persistence.User{}, fmt.Errorf("verify password: %w", err)
	}
	return user, nil
}

// ResolvePrincipal maps an asserted email to the acting principal.
func (s *UserService) ResolvePrincipal(ctx context.Context, email string) (Principal, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{}, err
	}
	return PrincipalFromUser(user), nil
}

func normalizeUserInput(input UserInput) UserInput {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	input.DateOfBirth = strings.TrimSpace(input.DateOfBirth)
	input.Sex = strings.TrimSpace(input.Sex)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Role == "" {
		input.Role = persistence.RoleStudent
	}
	if input.DateOfBirth != "" {
		input.DateOfBirth = availability.CanonicalDate(input.DateOfBirth)
	}
	return input
}
