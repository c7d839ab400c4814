package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/testutil"
)

type MarketplaceTestSuite struct {
	apiSuite

	seller   *models.User
	buyer    *models.User
	category *models.Category
}

func (suite *MarketplaceTestSuite) SetupTest() {
	suite.apiSuite.SetupTest()

	suite.seller = testutil.CreateUser(suite.T(), suite.db, "seller", models.RoleUser)
	suite.buyer = testutil.CreateUser(suite.T(), suite.db, "buyer", models.RoleUser)
	suite.category = testutil.CreateCategory(suite.T(), suite.db, "cameras")
}

func (suite *MarketplaceTestSuite) createProduct(token string, cost int64) string {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(suite.T(), writer.WriteField("name", "Leica M6"))
	require.NoError(suite.T(), writer.WriteField("desc", "35mm rangefinder"))
	require.NoError(suite.T(), writer.WriteField("cost", strconv.FormatInt(cost, 10)))
	require.NoError(suite.T(), writer.WriteField("categoryId", suite.category.ID.String()))
	part, err := writer.CreateFormFile("image", "leica.png")
	require.NoError(suite.T(), err)
	_, err = part.Write(testutil.PNG)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), writer.Close())

	req, err := http.NewRequest("POST", "/api/products", &body)
	require.NoError(suite.T(), err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w, response := suite.serve(req)
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Product models.Product `json:"product"`
	}
	require.NoError(suite.T(), json.Unmarshal(response.Data, &data))
	return data.Product.ID.String()
}

func (suite *MarketplaceTestSuite) bidCount() int64 {
	var count int64
	require.NoError(suite.T(), suite.db.Model(&models.Bid{}).Count(&count).Error)
	return count
}

func (suite *MarketplaceTestSuite) TestUnauthenticatedBidIsRejected() {
	product := testutil.CreateProduct(suite.T(), suite.db, suite.seller, 100, suite.category)

	w, _ := suite.do("POST", "/api/bids", "", map[string]interface{}{
		"productId": product.ID.String(),
		"bidAmount": 90,
	})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Zero(suite.T(), suite.bidCount())
}

func (suite *MarketplaceTestSuite) TestBidToSaleFlow() {
	sellerToken := testutil.Token(suite.T(), suite.seller)
	buyerToken := testutil.Token(suite.T(), suite.buyer)

	productID := suite.createProduct(sellerToken, 100)

	w, _ := suite.do("POST", "/api/bids", buyerToken, map[string]interface{}{"productId": productID, "bidAmount": 90})
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	w, _ = suite.do("POST", "/api/bids", buyerToken, map[string]interface{}{"productId": productID, "bidAmount": 95})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), int64(1), suite.bidCount())

	w, response := suite.do("GET", "/api/bids/received", sellerToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	var inbox []models.Bid
	require.NoError(suite.T(), json.Unmarshal(response.Data, &inbox))
	require.Len(suite.T(), inbox, 1)
	assert.Equal(suite.T(), suite.buyer.ID, inbox[0].UserID)

	saleBody := map[string]interface{}{
		"productId":      productID,
		"selledUserId":   suite.seller.ID.String(),
		"boughtedUserId": suite.buyer.ID.String(),
	}

	w, _ = suite.do("POST", "/api/sale", buyerToken, saleBody)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w, response = suite.do("POST", "/api/sale", sellerToken, saleBody)
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Sale struct {
			ID           string `json:"id"`
			SelledUserID string `json:"selledUserId"`
			Buyer        struct {
				Username string `json:"username"`
			} `json:"buyer"`
		} `json:"sale"`
	}
	require.NoError(suite.T(), json.Unmarshal(response.Data, &created))
	assert.Equal(suite.T(), suite.seller.ID.String(), created.Sale.SelledUserID)
	assert.Equal(suite.T(), "buyer", created.Sale.Buyer.Username)

	w, _ = suite.do("POST", "/api/sale", sellerToken, saleBody)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w, response = suite.do("GET", "/api/bids", buyerToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	var mine []models.Bid
	require.NoError(suite.T(), json.Unmarshal(response.Data, &mine))
	require.Len(suite.T(), mine, 1)
	assert.True(suite.T(), mine[0].AmIboughtProduct)

	w, _ = suite.do("GET", "/api/sale/"+created.Sale.ID, sellerToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, _ = suite.do("GET", "/api/sale/"+created.Sale.ID, buyerToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w, _ = suite.do("GET", "/api/products/"+productID, "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"isSelled":true`)
}

func (suite *MarketplaceTestSuite) TestFinalizeSaleOnSoldProduct() {
	product := testutil.CreateProduct(suite.T(), suite.db, suite.seller, 100, suite.category)
	require.NoError(suite.T(), suite.db.Model(product).Update("is_selled", true).Error)

	w, _ := suite.do("POST", "/api/sale", testutil.Token(suite.T(), suite.seller), map[string]interface{}{
		"productId":      product.ID.String(),
		"selledUserId":   suite.seller.ID.String(),
		"boughtedUserId": suite.buyer.ID.String(),
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	var count int64
	require.NoError(suite.T(), suite.db.Model(&models.Sale{}).Count(&count).Error)
	assert.Zero(suite.T(), count)
}

func (suite *MarketplaceTestSuite) TestDeleteCategoryRemovesOrphanedProduct() {
	moderator := testutil.CreateUser(suite.T(), suite.db, "moderator", models.RoleModerator)
	product := testutil.CreateProduct(suite.T(), suite.db, suite.seller, 100, suite.category)

	w, _ := suite.do("DELETE", "/api/categories/"+suite.category.ID.String(), testutil.Token(suite.T(), moderator), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, _ = suite.do("GET", "/api/products/"+product.ID.String(), "", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	var links int64
	require.NoError(suite.T(), suite.db.Model(&models.ProductCategory{}).Where("product_id = ?", product.ID).Count(&links).Error)
	assert.Zero(suite.T(), links)
}

func (suite *MarketplaceTestSuite) TestProductOwnershipAndSearch() {
	sellerToken := testutil.Token(suite.T(), suite.seller)
	productID := suite.createProduct(sellerToken, 250)

	w, response := suite.do("GET", "/api/products?name=leica", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "1", w.Header().Get("X-Total-Count"))
	assert.Contains(suite.T(), string(response.Data), productID)

	w, _ = suite.do("GET", "/api/products/getby/"+suite.category.ID.String(), "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, _ = suite.do("PUT", "/api/products/user/"+productID, testutil.Token(suite.T(), suite.buyer), map[string]interface{}{"cost": 1})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w, _ = suite.do("PUT", "/api/products/user/"+productID, sellerToken, map[string]interface{}{"cost": 200})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, _ = suite.do("GET", "/api/users/products", sellerToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"cost":200`)

	w, _ = suite.do("DELETE", "/api/products/"+productID, sellerToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func TestMarketplaceSuite(t *testing.T) {
	suite.Run(t, new(MarketplaceTestSuite))
}
