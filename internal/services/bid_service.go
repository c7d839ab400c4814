package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/apperrors"
	"github.com/javajoker/marketplace-backend/internal/models"
)

type BidService struct {
	db *gorm.DB
}

type CreateBidRequest struct {
	ProductID string `json:"productId" validate:"required"`
	BidAmount *int64 `json:"bidAmount" validate:"required,min=0"`
}

type UpdateBidRequest struct {
	BidAmount *int64 `json:"bidAmount" validate:"required,min=0"`
}

func NewBidService(db *gorm.DB) *BidService {
	return &BidService{db: db}
}

// CreateBid places the caller's single bid on a product.
func (s *BidService) CreateBid(ctx context.Context, actor Actor, req *CreateBidRequest) (*models.Bid, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	productID, err := parseID(req.ProductID, "productId")
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		return nil, lookupError(err, "product")
	}

	var bidder models.User
	if err := db.First(&bidder, "id = ?", actor.ID).Error; err != nil {
		return nil, lookupError(err, "user")
	}

	if product.IsSelled {
		return nil, apperrors.Conflict("product already sold")
	}
	if product.UserID == bidder.ID {
		return nil, apperrors.Validation("cannot bid on your own product")
	}

	var existing int64
	if err := db.Model(&models.Bid{}).
		Where("product_id = ? AND user_id = ?", product.ID, bidder.ID).
		Count(&existing).Error; err != nil {
		return nil, apperrors.Internalf(err, "check existing bid")
	}
	if existing > 0 {
		return nil, apperrors.Conflict("you have already placed a bid on this product")
	}

	bid := &models.Bid{
		ProductID: product.ID,
		UserID:    bidder.ID,
		BidAmount: *req.BidAmount,
	}
	if err := db.Omit("Product", "User").Create(bid).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperrors.Conflict("you have already placed a bid on this product")
		}
		return nil, apperrors.Internalf(err, "create bid")
	}

	return bid, nil
}

// GetBid returns a bid visible to the caller: their own, one on a product
// they own, or any bid for staff.
func (s *BidService) GetBid(ctx context.Context, actor Actor, rawID string) (*models.Bid, error) {
	bid, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if bid.UserID != actor.ID && bid.Product.UserID != actor.ID && !actor.Role.IsStaff() {
		return nil, apperrors.NotFound("bid")
	}
	return bid, nil
}

func (s *BidService) UpdateBid(ctx context.Context, actor Actor, rawID string, req *UpdateBidRequest) (*models.Bid, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	bid, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(bid.UserID) {
		return nil, apperrors.Permission("not allowed to modify this bid")
	}
	if bid.Product.IsSelled {
		return nil, apperrors.Conflict("product already sold")
	}

	if err := s.db.WithContext(ctx).Model(&models.Bid{}).
		Where("id = ?", bid.ID).
		Update("bid_amount", *req.BidAmount).Error; err != nil {
		return nil, apperrors.Internalf(err, "update bid")
	}

	return s.load(ctx, rawID)
}

func (s *BidService) DeleteBid(ctx context.Context, actor Actor, rawID string) error {
	bid, err := s.load(ctx, rawID)
	if err != nil {
		return err
	}
	if !actor.CanManage(bid.UserID) {
		return apperrors.Permission("not allowed to delete this bid")
	}

	if err := s.db.WithContext(ctx).Delete(&models.Bid{}, "id = ?", bid.ID).Error; err != nil {
		return apperrors.Internalf(err, "delete bid")
	}
	return nil
}

// ListMyBids returns the bids placed by the caller.
func (s *BidService) ListMyBids(ctx context.Context, actor Actor) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.withDetails(s.db.WithContext(ctx)).
		Where("user_id = ?", actor.ID).
		Order("created_at desc").
		Find(&bids).Error
	if err != nil {
		return nil, apperrors.Internalf(err, "list bids")
	}
	return bids, nil
}

// ListReceivedBids is the seller inbox: bids by other users on products the
// caller owns.
func (s *BidService) ListReceivedBids(ctx context.Context, actor Actor) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.withDetails(s.db.WithContext(ctx)).
		Joins("JOIN products ON products.id = bids.product_id").
		Where("products.user_id = ? AND bids.user_id <> ?", actor.ID, actor.ID).
		Order("bids.created_at desc").
		Find(&bids).Error
	if err != nil {
		return nil, apperrors.Internalf(err, "list received bids")
	}
	return bids, nil
}

func (s *BidService) load(ctx context.Context, rawID string) (*models.Bid, error) {
	id, err := parseID(rawID, "bidId")
	if err != nil {
		return nil, err
	}

	var bid models.Bid
	if err := s.withDetails(s.db.WithContext(ctx)).First(&bid, "bids.id = ?", id).Error; err != nil {
		return nil, lookupError(err, "bid")
	}
	if bid.Product == nil {
		return nil, apperrors.Internalf(errors.New("bid references a missing product"), "load bid")
	}
	return &bid, nil
}

func (s *BidService) withDetails(query *gorm.DB) *gorm.DB {
	return query.Preload("Product").Preload("User")
}
