package csvimport

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"spendsync/internal/domain/category"
)

// CategoryResolver turns category labels into category ids, creating missing
// categories on the way. Resolved ids are cached per owner and name.
type CategoryResolver struct {
	repo  category.Repository
	cache *cache.Cache
}

func NewCategoryResolver(repo category.Repository, ttl time.Duration) *CategoryResolver {
	return &CategoryResolver{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Resolve returns the id of the owner's category named name.
func (r *CategoryResolver) Resolve(ctx context.Context, ownerID int64, name string) (string, error) {
	name = category.NormalizeName(name)
	if name == "" {
		return "", category.ErrEmptyName
	}

	key := fmt.Sprintf("%d:%s", ownerID, name)
	if id, ok := r.cache.Get(key); ok {
		return id.(string), nil
	}

	c, err := r.repo.FindOrCreate(ctx, ownerID, name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve category %q: %w", name, err)
	}

	r.cache.Set(key, c.ID, cache.DefaultExpiration)
	return c.ID, nil
}
