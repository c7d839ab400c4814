// internal/services/auth_service.go
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/apperrors"
	"github.com/javajoker/marketplace-backend/internal/config"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type AuthService struct {
	db  *gorm.DB
	cfg *config.Config
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,password"`
}

type RegisterResponse struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
}

type AuthResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		db:  db,
		cfg: cfg,
	}
}

// Register creates a USER account. Elevated roles are granted through the
// admin user endpoints only.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, apperrors.Internalf(err, "check username")
	}
	if count > 0 {
		return nil, apperrors.Conflict("username already exists")
	}

	user := &models.User{
		Username: req.Username,
		Role:     models.RoleUser,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperrors.Internalf(err, "hash password")
	}

	if err := db.Create(user).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperrors.Conflict("username already exists")
		}
		return nil, apperrors.Internalf(err, "create user")
	}

	return &RegisterResponse{UserID: user.ID, Username: user.Username}, nil
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// AdminLogin authenticates like Login but only admits staff roles.
func (s *AuthService) AdminLogin(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !user.Role.IsStaff() {
		return nil, apperrors.Permission("admin access required")
	}
	return s.issue(user)
}

func (s *AuthService) GetProfile(ctx context.Context, actor Actor) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", actor.ID).Error; err != nil {
		return nil, lookupError(err, "user")
	}
	return &user, nil
}

func (s *AuthService) authenticate(ctx context.Context, req *LoginRequest) (*models.User, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Auth("invalid credentials")
		}
		return nil, apperrors.Internalf(err, "load user")
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, apperrors.Auth("invalid credentials")
	}
	return &user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResponse, error) {
	ttl := s.cfg.JWT.AccessTokenTTL
	token, err := utils.GenerateJWT(user.ID, user.Username, string(user.Role), ttl)
	if err != nil {
		return nil, apperrors.Internalf(err, "sign token")
	}

	return &AuthResponse{
		User:      user,
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: ttl * 3600,
	}, nil
}
