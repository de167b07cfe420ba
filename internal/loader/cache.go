package loader

import (
	"context"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keeps recently loaded datasets. Tables are immutable, so a cached dataset
// can be shared between callers. Local files are keyed by size and modification
// time as well, so an edited file is reloaded.
type Cache struct {
	lru *lru.Cache[string, *Dataset]
}

// NewCache returns a cache holding up to size datasets.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 16
	}
	c, err := lru.New[string, *Dataset](size)
	if err != nil {
		return nil, fmt.Errorf("init dataset cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Open returns a cached dataset for location and opt, loading it on a miss.
func (c *Cache) Open(ctx context.Context, location string, opt Options) (*Dataset, error) {
	key := cacheKey(location, opt)
	if ds, ok := c.lru.Get(key); ok {
		return ds, nil
	}
	ds, err := Open(ctx, location, opt)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, ds)
	return ds, nil
}

// Len reports how many datasets are cached.
func (c *Cache) Len() int { return c.lru.Len() }

func cacheKey(location string, opt Options) string {
	opt.S3.SecretKey = ""
	key := fmt.Sprintf("%s|%+v", location, opt)
	if fi, err := os.Stat(location); err == nil {
		key += fmt.Sprintf("|%d|%d", fi.Size(), fi.ModTime().UnixNano())
	}
	return key
}
