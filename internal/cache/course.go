package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/learnhub/learnhub/internal/model"
)

// Cache key prefixes and TTLs.
const (
	courseKeyPrefix   = "course:"
	negCacheKeySuffix = ":neg"
	categoriesKey     = "categories"

	// DefaultCourseTTL is the TTL for cached course data.
	DefaultCourseTTL = 10 * time.Minute

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = time.Minute

	// CategoriesTTL is the TTL for the cached category list.
	CategoriesTTL = 5 * time.Minute
)

// GetCourse retrieves a course from cache by ID or slug.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetCourse(ctx context.Context, idOrSlug string) (*model.Course, error) {
	data, err := c.client.Get(ctx, courseKeyPrefix+idOrSlug).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var course model.Course
	if err := json.Unmarshal(data, &course); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, ErrCacheMiss
	}

	return &course, nil
}

// SetCourse stores a course under both its ID and slug.
func (c *Cache) SetCourse(ctx context.Context, course *model.Course) error {
	data, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("marshal course: %w", err)
	}

	pipe := c.client.Pipeline()
	for _, k := range courseKeys(course) {
		pipe.Set(ctx, k, data, DefaultCourseTTL)
		pipe.Del(ctx, k+negCacheKeySuffix)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache course: %w", err)
	}

	return nil
}

// DeleteCourse removes a course from cache.
func (c *Cache) DeleteCourse(ctx context.Context, course *model.Course) error {
	pipe := c.client.Pipeline()
	for _, k := range courseKeys(course) {
		pipe.Del(ctx, k, k+negCacheKeySuffix)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete course from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if an ID or slug is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, idOrSlug string) (bool, error) {
	exists, err := c.client.Exists(ctx, courseKeyPrefix+idOrSlug+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks an ID or slug as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, idOrSlug string) error {
	err := c.client.SetEx(ctx, courseKeyPrefix+idOrSlug+negCacheKeySuffix, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}

// GetCategories retrieves the cached category list.
func (c *Cache) GetCategories(ctx context.Context) ([]model.Category, error) {
	data, err := c.client.Get(ctx, categoriesKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var categories []model.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, ErrCacheMiss
	}

	return categories, nil
}

// SetCategories caches the category list.
func (c *Cache) SetCategories(ctx context.Context, categories []model.Category) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	return c.client.Set(ctx, categoriesKey, data, CategoriesTTL).Err()
}

// DeleteCategories removes the cached category list.
func (c *Cache) DeleteCategories(ctx context.Context) error {
	return c.client.Del(ctx, categoriesKey).Err()
}

func courseKeys(course *model.Course) []string {
	keys := []string{courseKeyPrefix + course.ID}
	if course.Slug != "" && course.Slug != course.ID {
		keys = append(keys, courseKeyPrefix+course.Slug)
	}
	return keys
}
