package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/apperrors"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/testutil"
)

type SaleServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *SaleService
	ctx     context.Context

	seller  *models.User
	buyer   *models.User
	other   *models.User
	product *models.Product
}

func (suite *SaleServiceTestSuite) SetupTest() {
	suite.db = testutil.NewDB(suite.T())
	suite.service = NewSaleService(suite.db)
	suite.ctx = context.Background()

	suite.seller = testutil.CreateUser(suite.T(), suite.db, "seller", models.RoleUser)
	suite.buyer = testutil.CreateUser(suite.T(), suite.db, "buyer", models.RoleUser)
	suite.other = testutil.CreateUser(suite.T(), suite.db, "other", models.RoleUser)
	category := testutil.CreateCategory(suite.T(), suite.db, "phones")
	suite.product = testutil.CreateProduct(suite.T(), suite.db, suite.seller, 100, category)
}

func (suite *SaleServiceTestSuite) request(productID, sellerID, buyerID uuid.UUID) *FinalizeSaleRequest {
	return &FinalizeSaleRequest{
		ProductID:      productID.String(),
		SelledUserID:   sellerID.String(),
		BoughtedUserID: buyerID.String(),
	}
}

func (suite *SaleServiceTestSuite) sellerActor() Actor {
	return Actor{ID: suite.seller.ID, Role: models.RoleUser}
}

func (suite *SaleServiceTestSuite) saleCount() int64 {
	var count int64
	require.NoError(suite.T(), suite.db.Model(&models.Sale{}).Count(&count).Error)
	return count
}

func (suite *SaleServiceTestSuite) reloadProduct() models.Product {
	var product models.Product
	require.NoError(suite.T(), suite.db.First(&product, "id = ?", suite.product.ID).Error)
	return product
}

func (suite *SaleServiceTestSuite) TestFinalizeSaleUpdatesProductBidsAndRecordsSale() {
	buyerBid := testutil.CreateBid(suite.T(), suite.db, suite.product, suite.buyer, 90)
	otherBid := testutil.CreateBid(suite.T(), suite.db, suite.product, suite.other, 80)

	sale, err := suite.service.FinalizeSale(suite.ctx, suite.sellerActor(), suite.request(suite.product.ID, suite.seller.ID, suite.buyer.ID))
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), suite.product.ID, sale.ProductID)
	assert.Equal(suite.T(), suite.seller.ID, sale.SelledUserID)
	assert.Equal(suite.T(), suite.buyer.ID, sale.BoughtedUserID)
	require.NotNil(suite.T(), sale.Seller)
	require.NotNil(suite.T(), sale.Buyer)
	require.NotNil(suite.T(), sale.Product)
	assert.Equal(suite.T(), "seller", sale.Seller.Username)
	assert.Equal(suite.T(), "buyer", sale.Buyer.Username)

	product := suite.reloadProduct()
	assert.True(suite.T(), product.IsSelled)
	assert.True(suite.T(), product.IsBuyed)

	var won models.Bid
	require.NoError(suite.T(), suite.db.First(&won, "id = ?", buyerBid.ID).Error)
	assert.True(suite.T(), won.AmIboughtProduct)

	var lost models.Bid
	require.NoError(suite.T(), suite.db.First(&lost, "id = ?", otherBid.ID).Error)
	assert.False(suite.T(), lost.AmIboughtProduct)

	assert.Equal(suite.T(), int64(1), suite.saleCount())
}

func (suite *SaleServiceTestSuite) TestFinalizeSaleWithoutBid() {
	_, err := suite.service.FinalizeSale(suite.ctx, suite.sellerActor(), suite.request(suite.product.ID, suite.seller.ID, suite.buyer.ID))
	require.NoError(suite.T(), err)
	assert.True(suite.T(), suite.reloadProduct().IsSelled)
}

func (suite *SaleServiceTestSuite) TestFinalizeSaleOnSoldProductConflicts() {
	_, err := suite.service.FinalizeSale(suite.ctx, suite.sellerActor(), suite.request(suite.product.ID, suite.seller.ID, suite.buyer.ID))
	require.NoError(suite.T(), err)

	_, err = suite.service.FinalizeSale(suite.ctx, suite.sellerActor(), suite.request(suite.product.ID, suite.seller.ID, suite.other.ID))
	assert.True(suite.T(), errors.Is(err, apperrors.ErrConflict))
	assert.Equal(suite.T(), int64(1), suite.saleCount())
}

func (suite *SaleServiceTestSuite) TestFinalizeSaleOnFlaggedProductCreatesNoSale() {
	require.NoError(suite.T(), suite.db.Model(&models.Product{}).
		Where("id = ?", suite.product.ID).
		Update("is_selled", true).Error)

	_, err := suite.service.FinalizeSale(suite.ctx, suite.sellerActor(), suite.request(suite.product.ID, suite.seller.ID, suite.buyer.ID))
	assert.True(suite.T(), errors.Is(err, apperrors.ErrConflict))
	assert.Equal(suite.T(), int64(0), suite.saleCount())
}

func (suite *SaleServiceTestSuite) TestFinalizeSaleRollsBackWhenSaleInsertFails() {
	// A stray sale row makes the insert hit the unique index after the
	// product row has already been flipped.
	require.NoError(suite.T(), suite.db.Omit("Product", "SelledUser", "BoughtedUser").Create(&models.Sale{
		ProductID:      suite.product.ID,
		SelledUserID:   suite.seller.ID,
		BoughtedUserID: suite.other.ID,
	}).Error)
	bid := testutil.CreateBid(suite.T(), suite.db, suite.product, suite.buyer, 90)

	_, err := suite.service.FinalizeSale(suite.ctx, suite.sellerActor(), suite.request(suite.product.ID, suite.seller.ID, suite.buyer.ID))
	assert.True(suite.T(), errors.Is(err, apperrors.ErrConflict))

	product := suite.reloadProduct()
	assert.False(suite.T(), product.IsSelled)
	assert.False(suite.T(), product.IsBuyed)

	var reloaded models.Bid
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", bid.ID).Error)
	assert.False(suite.T(), reloaded.AmIboughtProduct)
	assert.Equal(suite.T(), int64(1), suite.saleCount())
}

func (suite *SaleServiceTestSuite) TestFinalizeSalePreconditionOrder() {
	missing := uuid.New()

	testCases := []struct {
		name    string
		req     *FinalizeSaleRequest
		kind    error
		message string
	}{
		{
			name: "malformed product id",
			req:  &FinalizeSaleRequest{ProductID: "nope", SelledUserID: missing.String(), BoughtedUserID: missing.String()},
			kind: apperrors.ErrValidation,
		},
		{
			name: "malformed buyer id",
			req:  &FinalizeSaleRequest{ProductID: missing.String(), SelledUserID: missing.String(), BoughtedUserID: "nope"},
			kind: apperrors.ErrValidation,
		},
		{
			name:    "missing product wins over missing seller",
			req:     suite.request(missing, missing, missing),
			kind:    apperrors.ErrNotFound,
			message: "product not found",
		},
		{
			name:    "missing seller",
			req:     suite.request(suite.product.ID, missing, suite.buyer.ID),
			kind:    apperrors.ErrNotFound,
			message: "seller not found",
		},
		{
			name:    "missing buyer",
			req:     suite.request(suite.product.ID, suite.seller.ID, missing),
			kind:    apperrors.ErrNotFound,
			message: "buyer not found",
		},
		{
			name: "seller is not the owner",
			req:  suite.request(suite.product.ID, suite.other.ID, suite.buyer.ID),
			kind: apperrors.ErrValidation,
		},
		{
			name: "buyer is the seller",
			req:  suite.request(suite.product.ID, suite.seller.ID, suite.seller.ID),
			kind: apperrors.ErrValidation,
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			_, err := suite.service.FinalizeSale(suite.ctx, suite.sellerActor(), tc.req)
			require.Error(suite.T(), err)
			assert.True(suite.T(), errors.Is(err, tc.kind), "got %v", err)
			if tc.message != "" {
				assert.Equal(suite.T(), tc.message, apperrors.Message(err, ""))
			}
		})
	}

	assert.Equal(suite.T(), int64(0), suite.saleCount())
	assert.False(suite.T(), suite.reloadProduct().IsSelled)
}

func (suite *SaleServiceTestSuite) TestFinalizeSaleRequiresSellerOrStaff() {
	_, err := suite.service.FinalizeSale(suite.ctx, Actor{ID: suite.other.ID, Role: models.RoleUser},
		suite.request(suite.product.ID, suite.seller.ID, suite.buyer.ID))
	assert.True(suite.T(), errors.Is(err, apperrors.ErrPermission))

	moderator := testutil.CreateUser(suite.T(), suite.db, "moderator", models.RoleModerator)
	sale, err := suite.service.FinalizeSale(suite.ctx, Actor{ID: moderator.ID, Role: models.RoleModerator},
		suite.request(suite.product.ID, suite.seller.ID, suite.buyer.ID))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.seller.ID, sale.SelledUserID)
}

func (suite *SaleServiceTestSuite) TestConcurrentFinalizeSaleHasSingleWinner() {
	const callers = 2

	var wg sync.WaitGroup
	errs := make([]error, callers)
	buyers := []*models.User{suite.buyer, suite.other}

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = suite.service.FinalizeSale(suite.ctx, suite.sellerActor(),
				suite.request(suite.product.ID, suite.seller.ID, buyers[i].ID))
		}(i)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrConflict):
			conflicted++
		default:
			suite.T().Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(suite.T(), 1, succeeded)
	assert.Equal(suite.T(), 1, conflicted)
	assert.Equal(suite.T(), int64(1), suite.saleCount())
}

func (suite *SaleServiceTestSuite) TestListAndGetSalesAreSellerScoped() {
	sale, err := suite.service.FinalizeSale(suite.ctx, suite.sellerActor(), suite.request(suite.product.ID, suite.seller.ID, suite.buyer.ID))
	require.NoError(suite.T(), err)

	sales, err := suite.service.ListSales(suite.ctx, suite.sellerActor())
	require.NoError(suite.T(), err)
	require.Len(suite.T(), sales, 1)
	assert.Equal(suite.T(), sale.ID, sales[0].ID)

	buyerActor := Actor{ID: suite.buyer.ID, Role: models.RoleUser}
	sales, err = suite.service.ListSales(suite.ctx, buyerActor)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), sales)

	got, err := suite.service.GetSale(suite.ctx, suite.sellerActor(), sale.ID.String())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), sale.ID, got.ID)

	_, err = suite.service.GetSale(suite.ctx, buyerActor, sale.ID.String())
	assert.True(suite.T(), errors.Is(err, apperrors.ErrNotFound))

	_, err = suite.service.GetSale(suite.ctx, suite.sellerActor(), "not-a-uuid")
	assert.True(suite.T(), errors.Is(err, apperrors.ErrValidation))
}

func (suite *SaleServiceTestSuite) TestSaleSurvivesProductDeletion() {
	sale, err := suite.service.FinalizeSale(suite.ctx, suite.sellerActor(), suite.request(suite.product.ID, suite.seller.ID, suite.buyer.ID))
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.db.Transaction(func(tx *gorm.DB) error {
		return deleteProducts(tx, []uuid.UUID{suite.product.ID})
	}))

	got, err := suite.service.GetSale(suite.ctx, suite.sellerActor(), sale.ID.String())
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), got.Product)
	assert.Equal(suite.T(), suite.product.ID, got.ProductID)
}

func TestSaleServiceSuite(t *testing.T) {
	suite.Run(t, new(SaleServiceTestSuite))
}
