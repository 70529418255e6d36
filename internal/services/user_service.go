package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/bizops-api/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserServiceProvider defines the interface for account services.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id uint) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
	CreateUser(ctx context.Context, name, email, password, role string) (models.User, error)
}

// UserService provides the account logic that sits outside the generic users resource.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetUserByID retrieves a single active or inactive user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return models.User{}, err
	}
	return user, nil
}

// AuthenticateUser checks credentials. Unknown, inactive and wrong-password
// accounts all yield ErrInvalidCredentials.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	if !user.Active {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// CreateUser creates an active account directly, used by the command line to
// bootstrap the first administrator.
func (s *UserService) CreateUser(ctx context.Context, name, email, password, role string) (models.User, error) {
	if role != models.RoleAdmin && role != models.RoleStaff {
		return models.User{}, NewValidationError("role", "The selected role is invalid.")
	}
	if len(password) < 8 {
		return models.User{}, NewValidationError("password", "The password field must be at least 8 characters.")
	}
	if len(password) > MaxPasswordBytes {
		return models.User{}, NewValidationError("password", fmt.Sprintf("The password field must not be greater than %d bytes.", MaxPasswordBytes))
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: hashed,
		Role:         role,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, fmt.Errorf("user %s: %w", user.Email, ErrConflict)
		}
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
