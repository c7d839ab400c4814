// internal/services/sale_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/apperrors"
	"github.com/javajoker/marketplace-backend/internal/models"
)

type SaleService struct {
	db *gorm.DB
}

type FinalizeSaleRequest struct {
	ProductID      string `json:"productId" validate:"required"`
	SelledUserID   string `json:"selledUserId" validate:"required"`
	BoughtedUserID string `json:"boughtedUserId" validate:"required"`
}

// SaleResponse is a sale expanded with product and party summaries. Product
// is nil when the product has since been deleted.
type SaleResponse struct {
	ID             uuid.UUID           `json:"id"`
	ProductID      uuid.UUID           `json:"productId"`
	SelledUserID   uuid.UUID           `json:"selledUserId"`
	BoughtedUserID uuid.UUID           `json:"boughtedUserId"`
	CreatedAt      time.Time           `json:"createdAt"`
	Product        *models.Product     `json:"product,omitempty"`
	Seller         *models.UserSummary `json:"seller,omitempty"`
	Buyer          *models.UserSummary `json:"buyer,omitempty"`
}

func NewSaleService(db *gorm.DB) *SaleService {
	return &SaleService{db: db}
}

// FinalizeSale marks the product sold, flags the buyer's bid and records the
// sale, all in one transaction. The product row is only flipped while it is
// still unsold, so of two concurrent calls exactly one succeeds.
func (s *SaleService) FinalizeSale(ctx context.Context, actor Actor, req *FinalizeSaleRequest) (*SaleResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	productID, err := parseID(req.ProductID, "productId")
	if err != nil {
		return nil, err
	}
	sellerID, err := parseID(req.SelledUserID, "selledUserId")
	if err != nil {
		return nil, err
	}
	buyerID, err := parseID(req.BoughtedUserID, "boughtedUserId")
	if err != nil {
		return nil, err
	}

	var sale models.Sale
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			return lookupError(err, "product")
		}
		if product.IsSelled {
			return apperrors.Conflict("already sold")
		}

		var seller, buyer models.User
		if err := tx.First(&seller, "id = ?", sellerID).Error; err != nil {
			return lookupError(err, "seller")
		}
		if err := tx.First(&buyer, "id = ?", buyerID).Error; err != nil {
			return lookupError(err, "buyer")
		}

		if product.UserID != seller.ID {
			return apperrors.Validation("seller must be the owner of the product")
		}
		if !actor.CanManage(seller.ID) {
			return apperrors.Permission("only the seller can finalize this sale")
		}
		if buyer.ID == seller.ID {
			return apperrors.Validation("buyer and seller must be different users")
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND is_selled = ?", product.ID, false).
			Updates(map[string]interface{}{
				"is_selled": true,
				"is_buyed":  true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("already sold")
		}

		sale = models.Sale{
			ProductID:      product.ID,
			SelledUserID:   seller.ID,
			BoughtedUserID: buyer.ID,
		}
		if err := tx.Omit("Product", "SelledUser", "BoughtedUser").Create(&sale).Error; err != nil {
			if isDuplicate(err) {
				return apperrors.Conflict("already sold")
			}
			return err
		}

		return tx.Model(&models.Bid{}).
			Where("product_id = ? AND user_id = ?", product.ID, buyer.ID).
			Update("am_i_bought_product", true).Error
	})
	if err != nil {
		return nil, apperrors.Internalf(err, "finalize sale")
	}

	logrus.WithFields(logrus.Fields{
		"sale_id":    sale.ID,
		"product_id": sale.ProductID,
		"seller_id":  sale.SelledUserID,
		"buyer_id":   sale.BoughtedUserID,
	}).Info("Sale finalized")

	return s.get(ctx, sale.ID, actor.ID, true)
}

// ListSales returns the sales in which the caller was the seller.
func (s *SaleService) ListSales(ctx context.Context, actor Actor) ([]SaleResponse, error) {
	var sales []models.Sale
	err := s.withDetails(s.db.WithContext(ctx)).
		Where("selled_user_id = ?", actor.ID).
		Order("created_at desc").
		Find(&sales).Error
	if err != nil {
		return nil, apperrors.Internalf(err, "list sales")
	}

	out := make([]SaleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, *toSaleResponse(&sales[i]))
	}
	return out, nil
}

// GetSale returns a sale only when the caller was its seller.
func (s *SaleService) GetSale(ctx context.Context, actor Actor, rawID string) (*SaleResponse, error) {
	id, err := parseID(rawID, "saleId")
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id, actor.ID, false)
}

func (s *SaleService) get(ctx context.Context, id, sellerID uuid.UUID, anySeller bool) (*SaleResponse, error) {
	query := s.withDetails(s.db.WithContext(ctx)).Where("id = ?", id)
	if !anySeller {
		query = query.Where("selled_user_id = ?", sellerID)
	}

	var sale models.Sale
	if err := query.First(&sale).Error; err != nil {
		return nil, lookupError(err, "sale")
	}
	return toSaleResponse(&sale), nil
}

func (s *SaleService) withDetails(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Product").
		Preload("Product.Categories").
		Preload("SelledUser").
		Preload("BoughtedUser")
}

func toSaleResponse(sale *models.Sale) *SaleResponse {
	resp := &SaleResponse{
		ID:             sale.ID,
		ProductID:      sale.ProductID,
		SelledUserID:   sale.SelledUserID,
		BoughtedUserID: sale.BoughtedUserID,
		CreatedAt:      sale.CreatedAt,
		Product:        sale.Product,
	}
	if sale.SelledUser != nil {
		summary := sale.SelledUser.Summary()
		resp.Seller = &summary
	}
	if sale.BoughtedUser != nil {
		summary := sale.BoughtedUser.Summary()
		resp.Buyer = &summary
	}
	return resp
}
