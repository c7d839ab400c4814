// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/config"
	"github.com/javajoker/marketplace-backend/internal/database"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

const (
	JWTSecret = "test-secret"
	Password  = "secret123"
)

// NewDB opens a private shared-cache SQLite database with a single
// connection and runs the migrations.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Initialize(config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() { database.Close(db) })
	return db
}

// Config returns a development config pointing at the local storage driver.
func Config(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{Environment: "test", LogLevel: "error"}
	cfg.JWT = config.JWTConfig{SecretKey: JWTSecret, Issuer: "marketplace-test", AccessTokenTTL: 1}
	cfg.Storage = config.StorageConfig{
		Driver:    "local",
		MaxSizeMB: 1,
		Local:     config.LocalStorageConfig{Dir: t.TempDir(), BaseURL: "http://localhost:3000/uploads"},
	}
	cfg.Redis = config.RedisConfig{StatsTTL: 60}
	cfg.I18n = config.I18nConfig{DefaultLocale: "en"}
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"*"}}
	cfg.RateLimit = config.RateLimitConfig{Enabled: false, SweepSchedule: "@every 1m"}

	utils.SetJWTSecret(JWTSecret)
	return cfg
}

func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{Username: username, Role: role}
	require.NoError(t, user.SetPassword(Password))
	require.NoError(t, db.Create(user).Error)
	return user
}

func Token(t *testing.T, user *models.User) string {
	t.Helper()

	token, err := utils.GenerateJWT(user.ID, user.Username, string(user.Role), 1)
	require.NoError(t, err)
	return token
}

func CreateCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()

	category := &models.Category{Name: name}
	require.NoError(t, db.Create(category).Error)
	return category
}

// CreateProduct inserts an unsold product linked to the given categories.
func CreateProduct(t *testing.T, db *gorm.DB, owner *models.User, cost int64, categories ...*models.Category) *models.Product {
	t.Helper()

	product := &models.Product{
		UserID: owner.ID,
		Name:   "product-" + uuid.NewString()[:8],
		Desc:   "test product",
		Cost:   cost,
		Image:  "http://localhost:3000/uploads/products/test.png",
	}
	require.NoError(t, db.Omit("Categories", "User", "Bids").Create(product).Error)
	for _, c := range categories {
		require.NoError(t, db.Create(&models.ProductCategory{ProductID: product.ID, CategoryID: c.ID}).Error)
	}
	return product
}

func CreateBid(t *testing.T, db *gorm.DB, product *models.Product, bidder *models.User, amount int64) *models.Bid {
	t.Helper()

	bid := &models.Bid{ProductID: product.ID, UserID: bidder.ID, BidAmount: amount}
	require.NoError(t, db.Omit("Product", "User").Create(bid).Error)
	return bid
}

// PNG is the smallest byte sequence accepted as a PNG upload.
var PNG = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

// FileHeader builds a multipart file header for field "image" the same way
// an HTTP request would produce it.
func FileHeader(t *testing.T, filename string, data []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	return form.File["image"][0]
}
