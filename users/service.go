package users

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/user/usermgmt-go/apperror"
	"github.com/user/usermgmt-go/auth"
)

// Validation constraints for registration and updates.
const (
	nameMinLen     = 2
	nameMaxLen     = 50
	passwordMinLen = 6
)

// AccountService orchestrates the user directory, credential hasher, and
// token issuer to implement registration, login, and account management.
type AccountService struct {
	dir    Directory
	issuer *auth.Issuer
}

// NewAccountService creates a new AccountService.
func NewAccountService(dir Directory, issuer *auth.Issuer) *AccountService {
	return &AccountService{dir: dir, issuer: issuer}
}

// normalizeEmail trims whitespace and lowercases an email so that one
// canonical form exists per logical address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(name string) error {
	length := utf8.RuneCountInString(name)
	if length < nameMinLen || length > nameMaxLen {
		return apperror.NewValidationError("Name must be between 2 and 50 characters", nil)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < passwordMinLen {
		return apperror.NewValidationError("Password must be at least 6 characters long", nil)
	}
	return nil
}

// Register creates a new user account and returns a session token for it.
// The existence pre-check gives a friendly error in the common case; the
// directory's unique constraint remains the guard against a concurrent
// registration racing past the check.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)

	if email == "" {
		return nil, apperror.NewValidationError("Email is required", nil)
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	existing, err := s.dir.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewConflictError("Email already registered", nil)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.NewInternalError("failed to process password", err)
	}

	user, err := s.dir.Create(ctx, email, name, hash)
	if err != nil {
		return nil, err
	}

	return s.tokenResponse(user)
}

// Login authenticates a user by email and password. An unknown email and a
// wrong password produce the same error, so responses cannot be used to
// enumerate registered addresses.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	email := normalizeEmail(req.Email)

	user, err := s.dir.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.HashedPassword) {
		return nil, apperror.NewAuthError("Invalid credentials", nil)
	}

	return s.tokenResponse(user)
}

// GetUser retrieves a user by id.
func (s *AccountService) GetUser(ctx context.Context, id int64) (*UserResponse, error) {
	user, err := s.dir.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User not found", nil)
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ListUsers returns the client-facing view of all user records.
func (s *AccountService) ListUsers(ctx context.Context) ([]UserResponse, error) {
	records, err := s.dir.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]UserResponse, 0, len(records))
	for i := range records {
		result = append(result, toUserResponse(&records[i]))
	}
	return result, nil
}

// UpdateUser applies a partial update. The provided fields are validated the
// same way as at registration, and the password is re-hashed only if a new
// one is supplied.
func (s *AccountService) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*UserResponse, error) {
	var fields UpdateFields

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email == "" {
			return nil, apperror.NewValidationError("Email is required", nil)
		}
		fields.Email = &email
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		fields.Name = &name
	}
	if req.Password != nil && *req.Password != "" {
		if err := validatePassword(*req.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, apperror.NewInternalError("failed to process password", err)
		}
		fields.PasswordHash = &hash
	}

	user, err := s.dir.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// DeleteUser removes a user by id.
func (s *AccountService) DeleteUser(ctx context.Context, id int64) error {
	return s.dir.Delete(ctx, id)
}

// tokenResponse issues a session token for the user and assembles the
// standard token envelope.
func (s *AccountService) tokenResponse(user *auth.User) (*TokenResponse, error) {
	accessToken, _, err := s.issuer.Issue(user.Email)
	if err != nil {
		return nil, apperror.NewInternalError("failed to issue session token", err)
	}

	return &TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.issuer.TTL().Seconds()),
		User:        toUserResponse(user),
	}, nil
}

func toUserResponse(user *auth.User) UserResponse {
	return UserResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}
}
