package users

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/auth"
	"github.com/layr-ng/layr-api/pkg/email"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/observability"
)

const bcryptCost = 10

// Service implements account flows on top of the store.
type Service struct {
	store     Store
	tokens    *auth.TokenManager
	mail      email.Sender
	logger    *observability.Logger
	clientURL string
}

// NewService creates the users service.
func NewService(store Store, tokens *auth.TokenManager, mail email.Sender, logger *observability.Logger, clientURL string) *Service {
	return &Service{
		store:     store,
		tokens:    tokens,
		mail:      mail,
		logger:    logger,
		clientURL: clientURL,
	}
}

// Register creates a user account with a hashed password.
func (s *Service) Register(ctx context.Context, input RegisterInput) error {
	count, err := s.store.CountByEmail(ctx, input.Email)
	if err != nil {
		return apierrors.Internal("An unexpected error occurred during user registration. Please try again later.", err)
	}
	if count > 0 {
		return apierrors.Conflict("Email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return apierrors.Internal("An unexpected error occurred during user registration. Please try again later.", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: string(hash),
		Status:       StatusActive,
		AuthStrategy: "local",
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		s.logger.WithError(err).Error("Error creating user")
		return apierrors.Internal("An unexpected error occurred during user registration. Please try again later.", err)
	}
	return nil
}

// Authenticate checks user credentials. The same error covers unknown email
// and wrong password.
func (s *Service) Authenticate(ctx context.Context, emailAddr, password string) (*User, error) {
	user, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err == ErrNotFound {
		return nil, apierrors.Unauthorized("Credentials are invalid")
	}
	if err != nil {
		return nil, apierrors.Internal("Login failed", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apierrors.Unauthorized("Credentials are invalid")
	}
	return user, nil
}

// AuthenticateAdmin checks admin credentials.
func (s *Service) AuthenticateAdmin(ctx context.Context, emailAddr, password string) (*Admin, error) {
	admin, err := s.store.GetAdminByEmail(ctx, emailAddr)
	if err == ErrNotFound {
		return nil, apierrors.Unauthorized("Credentials are invalid")
	}
	if err != nil {
		return nil, apierrors.Internal("Login failed", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, apierrors.Unauthorized("Credentials are invalid")
	}
	return admin, nil
}

// GetUser returns the profile for an account.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err == ErrNotFound {
		return nil, apierrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apierrors.Internal("Failed to load user", err)
	}
	return user, nil
}

// UpdateUser applies a partial profile update.
func (s *Service) UpdateUser(ctx context.Context, id string, input UpdateInput) error {
	if err := s.store.UpdateUser(ctx, id, input); err != nil {
		return apierrors.Internal("Failed to update user", err)
	}
	return nil
}

// SearchByEmail finds accounts by exact email for sharing flows.
func (s *Service) SearchByEmail(ctx context.Context, emailAddr string, p httputil.Pagination) ([]PublicUser, error) {
	rows, err := s.store.SearchByEmail(ctx, emailAddr, p)
	if err != nil {
		return nil, apierrors.Internal("Search failed", err)
	}
	return rows, nil
}

// RequestPasswordReset mails a reset link when the account exists. The
// response is identical either way so the endpoint cannot be used to probe
// for registered emails.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string, kind auth.ActorKind) (string, error) {
	exists, err := s.accountExists(ctx, emailAddr, kind)
	if err != nil {
		return "", apierrors.Internal("Failed to process reset request", err)
	}
	if !exists {
		return "If this email exists in our system, you will receive a password reset link", nil
	}

	token, err := s.tokens.SignPasswordReset(emailAddr)
	if err != nil {
		return "", apierrors.Internal("Failed to process reset request", err)
	}

	resetLink := fmt.Sprintf("%s/reset_password?token=%s&email=%s",
		s.clientURL, url.QueryEscape(token), url.QueryEscape(emailAddr))

	if err := s.mail.Send(ctx, email.PasswordResetMessage(emailAddr, resetLink)); err != nil {
		return "", apierrors.Internal("Failed to send reset email", err)
	}
	return "Password reset link sent to your email", nil
}

// ResetPassword verifies a reset token and replaces the account password.
func (s *Service) ResetPassword(ctx context.Context, token, emailAddr, password string, kind auth.ActorKind) error {
	tokenEmail, err := s.tokens.VerifyPasswordReset(token)
	if err != nil {
		return apierrors.Forbidden("Invalid or expired reset token")
	}
	if tokenEmail != emailAddr {
		return apierrors.Forbidden("Invalid reset token")
	}

	exists, err := s.accountExists(ctx, emailAddr, kind)
	if err != nil {
		return apierrors.Internal("Failed to reset password", err)
	}
	if !exists {
		return apierrors.Forbidden("No account associated with this email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return apierrors.Internal("Failed to reset password", err)
	}

	if kind == auth.ActorAdmin {
		err = s.store.UpdateAdminPassword(ctx, emailAddr, string(hash))
	} else {
		err = s.store.UpdatePassword(ctx, emailAddr, string(hash))
	}
	if err != nil {
		return apierrors.Internal("Failed to reset password", err)
	}
	return nil
}

// RegisterAdmin creates an administrator account.
func (s *Service) RegisterAdmin(ctx context.Context, input RegisterInput) error {
	count, err := s.store.CountAdminsByEmail(ctx, input.Email)
	if err != nil {
		return apierrors.Internal("Failed to register admin", err)
	}
	if count > 0 {
		return apierrors.Conflict("Email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return apierrors.Internal("Failed to register admin", err)
	}

	admin := &Admin{
		ID:           uuid.NewString(),
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: string(hash),
		Status:       StatusActive,
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return apierrors.Internal("Failed to register admin", err)
	}
	return nil
}

// GetAdmin returns an administrator profile.
func (s *Service) GetAdmin(ctx context.Context, id string) (*Admin, error) {
	admin, err := s.store.GetAdminByID(ctx, id)
	if err == ErrNotFound {
		return nil, apierrors.NotFound("Admin not found")
	}
	if err != nil {
		return nil, apierrors.Internal("Failed to load admin", err)
	}
	return admin, nil
}

// ListUsers returns a page of accounts for the admin console.
func (s *Service) ListUsers(ctx context.Context, p httputil.Pagination) ([]User, error) {
	rows, err := s.store.ListUsers(ctx, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list users", err)
	}
	return rows, nil
}

func (s *Service) accountExists(ctx context.Context, emailAddr string, kind auth.ActorKind) (bool, error) {
	var count int
	var err error
	if kind == auth.ActorAdmin {
		count, err = s.store.CountAdminsByEmail(ctx, emailAddr)
	} else {
		count, err = s.store.CountByEmail(ctx, emailAddr)
	}
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
