// internal/services/user_service.go
package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/apperrors"
	"github.com/javajoker/marketplace-backend/internal/database"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type UserService struct {
	db      *gorm.DB
	storage *StorageService
}

type UpdateUserRequest struct {
	Username *string      `json:"username,omitempty" validate:"omitempty,username"`
	Password *string      `json:"password,omitempty" validate:"omitempty,password"`
	Role     *models.Role `json:"role,omitempty"`
}

func NewUserService(db *gorm.DB, storage *StorageService) *UserService {
	return &UserService{db: db, storage: storage}
}

func (s *UserService) ListUsers(ctx context.Context, params utils.PaginationParams) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if search := strings.TrimSpace(params.Search); search != "" {
		query = query.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internalf(err, "count users")
	}

	var users []models.User
	query = utils.ApplySort(query, params, []string{"created_at", "username", "role"})
	if err := utils.ApplyPagination(query, params).Find(&users).Error; err != nil {
		return nil, 0, apperrors.Internalf(err, "list users")
	}
	return users, total, nil
}

func (s *UserService) GetUser(ctx context.Context, rawID string) (*models.User, error) {
	id, err := parseID(rawID, "userId")
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "user")
	}
	return &user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, rawID string, req *UpdateUserRequest) (*models.User, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.Role != nil && !req.Role.Valid() {
		return nil, apperrors.Validation("role must be one of: ADMIN USER MODERATOR")
	}
	user, err := s.GetUser(ctx, rawID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	updates := make(map[string]interface{})

	if req.Username != nil && *req.Username != user.Username {
		var count int64
		if err := db.Model(&models.User{}).Where("username = ? AND id <> ?", *req.Username, user.ID).Count(&count).Error; err != nil {
			return nil, apperrors.Internalf(err, "check username")
		}
		if count > 0 {
			return nil, apperrors.Conflict("username already exists")
		}
		updates["username"] = *req.Username
	}
	if req.Password != nil {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, apperrors.Internalf(err, "hash password")
		}
		updates["password_hash"] = user.PasswordHash
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}

	if len(updates) == 0 {
		return user, nil
	}
	if err := db.Model(user).Updates(updates).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperrors.Conflict("username already exists")
		}
		return nil, apperrors.Internalf(err, "update user")
	}

	return s.GetUser(ctx, rawID)
}

// DeleteUser removes a user together with their bids and their products
// (and the bids and category links of those products). Sales are kept.
func (s *UserService) DeleteUser(ctx context.Context, actor Actor, rawID string) error {
	user, err := s.GetUser(ctx, rawID)
	if err != nil {
		return err
	}
	if user.ID == actor.ID {
		return apperrors.Validation("cannot delete your own account")
	}

	var products []models.Product
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Find(&products).Error; err != nil {
			return err
		}
		if err := deleteProducts(tx, productIDs(products)); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Bid{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return apperrors.Internalf(err, "delete user")
	}

	for _, p := range products {
		s.storage.DeleteFile(ctx, p.ImageKey)
	}
	return nil
}

func productIDs(products []models.Product) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

// deleteProducts removes products with their category links and bids.
func deleteProducts(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("product_id IN ?", ids).Delete(&models.ProductCategory{}).Error; err != nil {
		return err
	}
	if err := tx.Where("product_id IN ?", ids).Delete(&models.Bid{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Product{}).Error
}
