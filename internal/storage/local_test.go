package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/marketplace-backend/internal/config"
)

func TestLocalStorePutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(config.LocalStorageConfig{Dir: dir, BaseURL: "http://localhost:3000/uploads/"})
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "products/a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/uploads/products/a.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "products", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	require.NoError(t, store.Delete(context.Background(), "products/a.png"))
	_, err = os.Stat(filepath.Join(dir, "products", "a.png"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is not an error
	assert.NoError(t, store.Delete(context.Background(), "products/a.png"))
}

func TestLocalStoreKeepsKeysInsideDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(config.LocalStorageConfig{Dir: dir, BaseURL: "http://x"})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../../escape.png", strings.NewReader("x"), 1, "image/png")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape.png"))
	assert.NoError(t, err)

	_, err = store.Put(context.Background(), "", strings.NewReader("x"), 1, "image/png")
	assert.Error(t, err)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}

func TestS3URL(t *testing.T) {
	store := &S3Store{cfg: config.AWSConfig{S3Bucket: "imgs", Region: "eu-west-1"}}
	assert.Equal(t, "https://imgs.s3.eu-west-1.amazonaws.com/products/a.png", store.url("products/a.png"))

	store.cfg.CloudFrontURL = "https://cdn.example"
	assert.Equal(t, "https://cdn.example/products/a.png", store.url("products/a.png"))
}

func TestMinioURL(t *testing.T) {
	store, err := NewMinioStore(config.MinioConfig{Endpoint: "https://minio.local:9000", Bucket: "imgs", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "https://minio.local:9000/imgs/k.png", store.url("k.png"))

	store.cfg.PublicBase = "https://cdn.example/"
	assert.Equal(t, "https://cdn.example/k.png", store.url("k.png"))
}
