// internal/services/statistics_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/apperrors"
	"github.com/javajoker/marketplace-backend/internal/models"
)

const statsKeyPrefix = "stats:registrations:"

type StatisticsService struct {
	db    *gorm.DB
	redis *redis.Client
	ttl   time.Duration

	mu    sync.Mutex
	local map[string]cachedStats
}

type cachedStats struct {
	stats    *RegistrationStats
	storedAt time.Time
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type RegistrationStats struct {
	StartDate time.Time    `json:"startDate"`
	EndDate   time.Time    `json:"endDate"`
	Total     int64        `json:"total"`
	Days      []DailyCount `json:"days"`
}

type MarketplaceOverview struct {
	TotalUsers      int64 `json:"totalUsers"`
	NewUsersToday   int64 `json:"newUsersToday"`
	TotalProducts   int64 `json:"totalProducts"`
	SoldProducts    int64 `json:"soldProducts"`
	TotalCategories int64 `json:"totalCategories"`
	TotalBids       int64 `json:"totalBids"`
	TotalSales      int64 `json:"totalSales"`
}

// NewStatisticsService caches results in redis when client is non-nil and
// in process memory otherwise.
func NewStatisticsService(db *gorm.DB, client *redis.Client, ttlSeconds int) *StatisticsService {
	return &StatisticsService{
		db:    db,
		redis: client,
		ttl:   time.Duration(ttlSeconds) * time.Second,
		local: make(map[string]cachedStats),
	}
}

// ParseRange reads the optional startDate/endDate query values. Both accept
// YYYY-MM-DD or RFC3339. A missing start is the unix epoch and a missing end
// is the last instant of the current UTC day, so default ranges share one
// cache key for the whole day.
func ParseRange(rawStart, rawEnd string, now time.Time) (time.Time, time.Time, error) {
	start := time.Unix(0, 0).UTC()
	end := endOfDay(now.UTC())

	if rawStart = strings.TrimSpace(rawStart); rawStart != "" {
		t, err := parseDate(rawStart, false)
		if err != nil {
			return start, end, apperrors.Validation("startDate must be YYYY-MM-DD or RFC3339")
		}
		start = t
	}
	if rawEnd = strings.TrimSpace(rawEnd); rawEnd != "" {
		t, err := parseDate(rawEnd, true)
		if err != nil {
			return start, end, apperrors.Validation("endDate must be YYYY-MM-DD or RFC3339")
		}
		end = t
	}

	if start.After(end) {
		return start, end, apperrors.Validation("startDate must not be after endDate")
	}
	return start, end, nil
}

// parseDate treats a bare end date as inclusive of the whole day.
func parseDate(raw string, inclusive bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if inclusive {
		t = endOfDay(t)
	}
	return t, nil
}

func endOfDay(t time.Time) time.Time {
	return t.Truncate(24*time.Hour).Add(24*time.Hour - time.Nanosecond)
}

// RegistrationsPerDay counts users created in [start, end] grouped by UTC day.
// Days without registrations are omitted.
func (s *StatisticsService) RegistrationsPerDay(ctx context.Context, start, end time.Time) (*RegistrationStats, error) {
	key := fmt.Sprintf("%s%d:%d", statsKeyPrefix, start.Unix(), end.Unix())
	if cached := s.cached(ctx, key); cached != nil {
		return cached, nil
	}

	var createdAt []time.Time
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Order("created_at asc").
		Pluck("created_at", &createdAt).Error
	if err != nil {
		return nil, apperrors.Internalf(err, "count registrations")
	}

	stats := &RegistrationStats{
		StartDate: start,
		EndDate:   end,
		Total:     int64(len(createdAt)),
		Days:      []DailyCount{},
	}
	for _, t := range createdAt {
		day := t.UTC().Format("2006-01-02")
		if n := len(stats.Days); n > 0 && stats.Days[n-1].Date == day {
			stats.Days[n-1].Count++
			continue
		}
		stats.Days = append(stats.Days, DailyCount{Date: day, Count: 1})
	}

	s.store(ctx, key, stats)
	return stats, nil
}

func (s *StatisticsService) Overview(ctx context.Context) (*MarketplaceOverview, error) {
	db := s.db.WithContext(ctx)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	stats := &MarketplaceOverview{}

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.User{}), &stats.TotalUsers},
		{db.Model(&models.User{}).Where("created_at >= ?", today), &stats.NewUsersToday},
		{db.Model(&models.Product{}), &stats.TotalProducts},
		{db.Model(&models.Product{}).Where("is_selled = ?", true), &stats.SoldProducts},
		{db.Model(&models.Category{}), &stats.TotalCategories},
		{db.Model(&models.Bid{}), &stats.TotalBids},
		{db.Model(&models.Sale{}), &stats.TotalSales},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, apperrors.Internalf(err, "count marketplace totals")
		}
	}
	return stats, nil
}

// Sweep drops in-process entries older than the cache TTL or idle,
// whichever is longer. It is a no-op when redis holds the cache.
func (s *StatisticsService) Sweep(idle time.Duration) int {
	if s.redis != nil {
		return 0
	}
	maxAge := s.ttl
	if idle > maxAge {
		maxAge = idle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.local {
		if time.Since(entry.storedAt) > maxAge {
			delete(s.local, key)
			removed++
		}
	}
	return removed
}

func (s *StatisticsService) cached(ctx context.Context, key string) *RegistrationStats {
	if s.ttl <= 0 {
		return nil
	}

	if s.redis == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		entry, ok := s.local[key]
		if !ok || time.Since(entry.storedAt) > s.ttl {
			return nil
		}
		return entry.stats
	}

	raw, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.WithError(err).Warn("Statistics cache read failed")
		}
		return nil
	}
	var stats RegistrationStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *StatisticsService) store(ctx context.Context, key string, stats *RegistrationStats) {
	if s.ttl <= 0 {
		return
	}

	if s.redis == nil {
		s.mu.Lock()
		s.local[key] = cachedStats{stats: stats, storedAt: time.Now()}
		s.mu.Unlock()
		return
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		logrus.WithError(err).Warn("Statistics cache write failed")
	}
}
