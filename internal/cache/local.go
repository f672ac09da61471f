package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/learnhub/learnhub/internal/model"
)

const localCategoriesKey = "categories"

// LocalCache is an in-process L1 in front of Redis for small hot values.
type LocalCache struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewLocalCache creates a LocalCache whose entries live for ttl.
func NewLocalCache(ttl time.Duration) *LocalCache {
	return &LocalCache{
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// GetCategories returns the locally cached category list.
func (l *LocalCache) GetCategories() ([]model.Category, bool) {
	if data, found := l.cache.Get(localCategoriesKey); found {
		if categories, ok := data.([]model.Category); ok {
			return categories, true
		}
	}
	return nil, false
}

// SetCategories stores the category list locally.
func (l *LocalCache) SetCategories(categories []model.Category) {
	l.cache.Set(localCategoriesKey, categories, l.ttl)
}

// ClearCategories removes the locally cached category list.
func (l *LocalCache) ClearCategories() {
	l.cache.Delete(localCategoriesKey)
}
