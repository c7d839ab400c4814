// internal/services/product_service.go
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
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type ProductService struct {
	db      *gorm.DB
	storage *StorageService
}

type CreateProductRequest struct {
	Name       string `json:"name" form:"name" validate:"required,min=1,max=255"`
	Desc       string `json:"desc" form:"desc" validate:"required"`
	Cost       *int64 `json:"cost" form:"cost" validate:"required,min=0"`
	CategoryID string `json:"categoryId" form:"categoryId" validate:"required"`
}

// UpdateProductRequest is a partial update. Sale flags are not accepted;
// they only change when a sale is finalized.
type UpdateProductRequest struct {
	Name       *string `json:"name,omitempty" form:"name" validate:"omitempty,min=1,max=255"`
	Desc       *string `json:"desc,omitempty" form:"desc"`
	Cost       *int64  `json:"cost,omitempty" form:"cost" validate:"omitempty,min=0"`
	CategoryID *string `json:"categoryId,omitempty" form:"categoryId"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	Name string `json:"name,omitempty"`
}

func NewProductService(db *gorm.DB, storage *StorageService) *ProductService {
	return &ProductService{
		db:      db,
		storage: storage,
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, actor Actor, req *CreateProductRequest, image *multipart.FileHeader) (*models.Product, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	categoryID, err := parseID(req.CategoryID, "categoryId")
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, apperrors.Validation("image is required")
	}

	db := s.db.WithContext(ctx)

	var owner models.User
	if err := db.First(&owner, "id = ?", actor.ID).Error; err != nil {
		return nil, lookupError(err, "user")
	}

	var category models.Category
	if err := db.First(&category, "id = ?", categoryID).Error; err != nil {
		return nil, lookupError(err, "category")
	}

	upload, err := s.storage.UploadImage(ctx, image, s.storage.GetDefaultUploadOptions("products"))
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		UserID:   owner.ID,
		Name:     strings.TrimSpace(req.Name),
		Desc:     req.Desc,
		Cost:     *req.Cost,
		Image:    upload.URL,
		ImageKey: upload.Key,
	}

	err = database.WithTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Omit("Categories", "User", "Bids").Create(product).Error; err != nil {
			return err
		}
		return tx.Create(&models.ProductCategory{ProductID: product.ID, CategoryID: category.ID}).Error
	})
	if err != nil {
		s.storage.DeleteFile(ctx, upload.Key)
		return nil, apperrors.Internalf(err, "create product")
	}

	return s.GetProduct(ctx, product.ID.String())
}

func (s *ProductService) GetProduct(ctx context.Context, rawID string) (*models.Product, error) {
	id, err := parseID(rawID, "productId")
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := s.withDetails(s.db.WithContext(ctx)).First(&product, "products.id = ?", id).Error; err != nil {
		return nil, lookupError(err, "product")
	}
	return &product, nil
}

// GetOwnProduct returns the product only when the caller owns it, together
// with the bids it has received.
func (s *ProductService) GetOwnProduct(ctx context.Context, actor Actor, rawID string) (*models.Product, error) {
	id, err := parseID(rawID, "productId")
	if err != nil {
		return nil, err
	}

	var product models.Product
	err = s.withDetails(s.db.WithContext(ctx)).
		Preload("Bids").
		Preload("Bids.User").
		Where("products.user_id = ?", actor.ID).
		First(&product, "products.id = ?", id).Error
	if err != nil {
		return nil, lookupError(err, "product")
	}
	return &product, nil
}

func (s *ProductService) SearchProducts(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if name := strings.TrimSpace(params.Name); name != "" {
		query = query.Where("LOWER(products.name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internalf(err, "count products")
	}

	var products []models.Product
	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "name", "cost"})
	if err := utils.ApplyPagination(s.withDetails(query), params.PaginationParams).Find(&products).Error; err != nil {
		return nil, 0, apperrors.Internalf(err, "list products")
	}
	return products, total, nil
}

func (s *ProductService) ListUserProducts(ctx context.Context, actor Actor) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Preload("Categories").
		Preload("Bids").
		Preload("Bids.User").
		Where("user_id = ?", actor.ID).
		Order("created_at desc").
		Find(&products).Error
	if err != nil {
		return nil, apperrors.Internalf(err, "list user products")
	}
	return products, nil
}

func (s *ProductService) ListProductsByCategory(ctx context.Context, rawCategoryID string) ([]models.Product, error) {
	categoryID, err := parseID(rawCategoryID, "categoryId")
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var category models.Category
	if err := db.First(&category, "id = ?", categoryID).Error; err != nil {
		return nil, lookupError(err, "category")
	}

	var products []models.Product
	err = s.withDetails(db).
		Joins("JOIN product_categories pc ON pc.product_id = products.id").
		Where("pc.category_id = ?", categoryID).
		Order("products.created_at desc").
		Find(&products).Error
	if err != nil {
		return nil, apperrors.Internalf(err, "list products by category")
	}
	return products, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, actor Actor, rawID string, req *UpdateProductRequest, image *multipart.FileHeader) (*models.Product, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	id, err := parseID(rawID, "productId")
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "product")
	}
	if !actor.CanManage(product.UserID) {
		return nil, apperrors.Permission("not allowed to modify this product")
	}

	var newCategory *models.Category
	if req.CategoryID != nil {
		categoryID, err := parseID(*req.CategoryID, "categoryId")
		if err != nil {
			return nil, err
		}
		newCategory = &models.Category{}
		if err := db.First(newCategory, "id = ?", categoryID).Error; err != nil {
			return nil, lookupError(err, "category")
		}
	}

	// Prepare updates
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Desc != nil {
		updates["description"] = *req.Desc
	}
	if req.Cost != nil {
		updates["cost"] = *req.Cost
	}

	var upload *UploadResult
	if image != nil {
		if upload, err = s.storage.UploadImage(ctx, image, s.storage.GetDefaultUploadOptions("products")); err != nil {
			return nil, err
		}
		updates["image"] = upload.URL
		updates["image_key"] = upload.Key
	}

	err = database.WithTransaction(db, func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&product).Updates(updates).Error; err != nil {
				return err
			}
		}
		if newCategory != nil {
			if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductCategory{}).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.ProductCategory{ProductID: product.ID, CategoryID: newCategory.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if upload != nil {
			s.storage.DeleteFile(ctx, upload.Key)
		}
		return nil, apperrors.Internalf(err, "update product")
	}

	if upload != nil {
		s.storage.DeleteFile(ctx, product.ImageKey)
	}

	return s.GetProduct(ctx, rawID)
}

// DeleteProduct removes the product with its category links and bids. A
// sale record, if any, is kept.
func (s *ProductService) DeleteProduct(ctx context.Context, actor Actor, rawID string) error {
	id, err := parseID(rawID, "productId")
	if err != nil {
		return err
	}

	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		return lookupError(err, "product")
	}
	if !actor.CanManage(product.UserID) {
		return apperrors.Permission("not allowed to delete this product")
	}

	err = database.WithTransaction(db, func(tx *gorm.DB) error {
		return deleteProducts(tx, []uuid.UUID{product.ID})
	})
	if err != nil {
		return apperrors.Internalf(err, "delete product")
	}

	s.storage.DeleteFile(ctx, product.ImageKey)
	return nil
}

func (s *ProductService) withDetails(query *gorm.DB) *gorm.DB {
	return query.Preload("Categories").Preload("User")
}
