package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/marketplace-backend/internal/apperrors"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/testutil"
)

func TestParseRange(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	start, end, err := ParseRange("", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(0, 0).UTC(), start)
	assert.Equal(t, time.Date(2024, 5, 10, 23, 59, 59, 999999999, time.UTC), end)

	_, later, err := ParseRange("", "", now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, end, later)

	start, end, err = ParseRange("2024-05-01", "2024-05-02", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 5, 2, 23, 59, 59, 999999999, time.UTC), end)

	_, end, err = ParseRange("", "2024-05-02T08:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC), end)

	_, _, err = ParseRange("2024-05-03", "2024-05-02", now)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, _, err = ParseRange("yesterday", "", now)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestRegistrationsPerDay(t *testing.T) {
	db := testutil.NewDB(t)
	service := NewStatisticsService(db, nil, 60)
	ctx := context.Background()

	day1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	for i, createdAt := range []time.Time{day1, day1.Add(time.Hour), day2} {
		user := testutil.CreateUser(t, db, "user"+string(rune('a'+i)), models.RoleUser)
		require.NoError(t, db.Model(user).UpdateColumn("created_at", createdAt).Error)
	}

	start := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	stats, err := service.RegistrationsPerDay(ctx, start, end)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, []DailyCount{
		{Date: "2024-01-01", Count: 2},
		{Date: "2024-01-03", Count: 1},
	}, stats.Days)

	// served from the in-process cache until swept
	testutil.CreateUser(t, db, "late", models.RoleUser)
	cached, err := service.RegistrationsPerDay(ctx, start, end)
	require.NoError(t, err)
	assert.Same(t, stats, cached)

	assert.Equal(t, 0, service.Sweep(time.Hour))
	service.local[statsKeyPrefix+"old"] = cachedStats{stats: stats, storedAt: time.Now().Add(-2 * time.Hour)}
	assert.Equal(t, 1, service.Sweep(time.Minute))
}

func TestOverview(t *testing.T) {
	db := testutil.NewDB(t)
	service := NewStatisticsService(db, nil, 0)

	seller := testutil.CreateUser(t, db, "seller", models.RoleUser)
	buyer := testutil.CreateUser(t, db, "buyer", models.RoleUser)
	category := testutil.CreateCategory(t, db, "misc")
	product := testutil.CreateProduct(t, db, seller, 10, category)
	testutil.CreateProduct(t, db, seller, 10, category)
	testutil.CreateBid(t, db, product, buyer, 5)

	_, err := NewSaleService(db).FinalizeSale(context.Background(), Actor{ID: seller.ID, Role: models.RoleUser}, &FinalizeSaleRequest{
		ProductID:      product.ID.String(),
		SelledUserID:   seller.ID.String(),
		BoughtedUserID: buyer.ID.String(),
	})
	require.NoError(t, err)

	stats, err := service.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.NewUsersToday)
	assert.Equal(t, int64(2), stats.TotalProducts)
	assert.Equal(t, int64(1), stats.SoldProducts)
	assert.Equal(t, int64(1), stats.TotalCategories)
	assert.Equal(t, int64(1), stats.TotalBids)
	assert.Equal(t, int64(1), stats.TotalSales)
}

func TestDefaultRangeSharesCacheEntry(t *testing.T) {
	db := testutil.NewDB(t)
	service := NewStatisticsService(db, nil, 60)
	ctx := context.Background()
	testutil.CreateUser(t, db, "early", models.RoleUser)

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{now, now.Add(time.Second), now.Add(2 * time.Second)} {
		start, end, err := ParseRange("", "", at)
		require.NoError(t, err)
		_, err = service.RegistrationsPerDay(ctx, start, end)
		require.NoError(t, err)
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	assert.Len(t, service.local, 1)
}
