package services

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/apperrors"
	"github.com/javajoker/marketplace-backend/internal/database"
	"github.com/javajoker/marketplace-backend/internal/models"
)

type CategoryService struct {
	db      *gorm.DB
	storage *StorageService
}

type CreateCategoryRequest struct {
	Name  string `json:"name" form:"name" validate:"required,min=1,max=100"`
	Image string `json:"image" form:"image_url" validate:"omitempty,url,max=512"`
}

type UpdateCategoryRequest struct {
	Name  *string `json:"name,omitempty" form:"name" validate:"omitempty,min=1,max=100"`
	Image *string `json:"image,omitempty" form:"image_url" validate:"omitempty,url,max=512"`
}

// CategoryDeletion reports what a category delete removed.
type CategoryDeletion struct {
	CategoryID      uuid.UUID   `json:"categoryId"`
	UnlinkedCount   int64       `json:"unlinkedCount"`
	DeletedProducts []uuid.UUID `json:"deletedProducts"`
}

func NewCategoryService(db *gorm.DB, storage *StorageService) *CategoryService {
	return &CategoryService{db: db, storage: storage}
}

// CreateCategory stores a category. The image may be an uploaded file or an
// external URL; an upload wins when both are given.
func (s *CategoryService) CreateCategory(ctx context.Context, req *CreateCategoryRequest, image *multipart.FileHeader) (*models.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, req.Name, uuid.Nil); err != nil {
		return nil, err
	}

	category := &models.Category{Name: req.Name, Image: req.Image}
	if image != nil {
		upload, err := s.storage.UploadImage(ctx, image, s.storage.GetDefaultUploadOptions("categories"))
		if err != nil {
			return nil, err
		}
		category.Image = upload.URL
		category.ImageKey = upload.Key
	}

	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		s.storage.DeleteFile(ctx, category.ImageKey)
		if isDuplicate(err) {
			return nil, apperrors.Conflict("category name already exists")
		}
		return nil, apperrors.Internalf(err, "create category")
	}
	return category, nil
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name asc").Find(&categories).Error; err != nil {
		return nil, apperrors.Internalf(err, "list categories")
	}
	return categories, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, rawID string) (*models.Category, error) {
	id, err := parseID(rawID, "categoryId")
	if err != nil {
		return nil, err
	}

	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "category")
	}
	return &category, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, rawID string, req *UpdateCategoryRequest, image *multipart.FileHeader) (*models.Category, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	category, err := s.GetCategory(ctx, rawID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil && *req.Name != category.Name {
		if err := s.ensureNameFree(ctx, *req.Name, category.ID); err != nil {
			return nil, err
		}
		updates["name"] = *req.Name
	}
	if req.Image != nil {
		updates["image"] = *req.Image
		updates["image_key"] = ""
	}

	var upload *UploadResult
	if image != nil {
		if upload, err = s.storage.UploadImage(ctx, image, s.storage.GetDefaultUploadOptions("categories")); err != nil {
			return nil, err
		}
		updates["image"] = upload.URL
		updates["image_key"] = upload.Key
	}

	if len(updates) == 0 {
		return category, nil
	}

	oldKey := category.ImageKey
	if err := s.db.WithContext(ctx).Model(category).Updates(updates).Error; err != nil {
		if upload != nil {
			s.storage.DeleteFile(ctx, upload.Key)
		}
		if isDuplicate(err) {
			return nil, apperrors.Conflict("category name already exists")
		}
		return nil, apperrors.Internalf(err, "update category")
	}
	if _, replaced := updates["image_key"]; replaced && oldKey != "" {
		s.storage.DeleteFile(ctx, oldKey)
	}

	return s.GetCategory(ctx, rawID)
}

// DeleteCategory removes the category and its product links in one
// transaction. Products left without any category are deleted with their
// bids; sale records of those products are kept.
func (s *CategoryService) DeleteCategory(ctx context.Context, rawID string) (*CategoryDeletion, error) {
	category, err := s.GetCategory(ctx, rawID)
	if err != nil {
		return nil, err
	}

	result := &CategoryDeletion{CategoryID: category.ID, DeletedProducts: []uuid.UUID{}}
	var orphans []models.Product

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var linked []uuid.UUID
		if err := tx.Model(&models.ProductCategory{}).
			Where("category_id = ?", category.ID).
			Pluck("product_id", &linked).Error; err != nil {
			return err
		}

		unlink := tx.Where("category_id = ?", category.ID).Delete(&models.ProductCategory{})
		if unlink.Error != nil {
			return unlink.Error
		}
		result.UnlinkedCount = unlink.RowsAffected

		if err := tx.Delete(category).Error; err != nil {
			return err
		}

		if len(linked) == 0 {
			return nil
		}

		// products in linked that no longer have any category
		if err := tx.Where("id IN ?", linked).
			Where("NOT EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = products.id)").
			Find(&orphans).Error; err != nil {
			return err
		}
		return deleteProducts(tx, productIDs(orphans))
	})
	if err != nil {
		return nil, apperrors.Internalf(err, "delete category")
	}

	for _, p := range orphans {
		result.DeletedProducts = append(result.DeletedProducts, p.ID)
		s.storage.DeleteFile(ctx, p.ImageKey)
	}
	s.storage.DeleteFile(ctx, category.ImageKey)

	return result, nil
}

func (s *CategoryService) ensureNameFree(ctx context.Context, name string, except uuid.UUID) error {
	var count int64
	query := s.db.WithContext(ctx).Model(&models.Category{}).Where("name = ?", name)
	if except != uuid.Nil {
		query = query.Where("id <> ?", except)
	}
	if err := query.Count(&count).Error; err != nil {
		return apperrors.Internalf(err, "check category name")
	}
	if count > 0 {
		return apperrors.Conflict("category name already exists")
	}
	return nil
}
