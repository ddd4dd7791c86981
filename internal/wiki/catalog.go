package wiki

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Item is one catalog entry: identifier, display name, and the per-4-hour
// trade limit the market imposes. Limit 0 means the feed reported none.
type Item struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Limit int    `json:"limit"`
}

// catalogTTL controls how long a fetched catalog stays fresh. The mapping
// changes on game updates only, so a long TTL is safe.
const catalogTTL = 6 * time.Hour

// catalogCache holds the last fetched catalog with its expiry.
// A singleflight.Group coalesces concurrent refreshes.
type catalogCache struct {
	mu        sync.RWMutex
	items     []Item
	fetchedAt time.Time
	group     singleflight.Group
}

func (cc *catalogCache) get() ([]Item, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	if cc.items == nil || time.Since(cc.fetchedAt) > catalogTTL {
		return nil, false
	}
	return cc.items, true
}

func (cc *catalogCache) put(items []Item) {
	cc.mu.Lock()
	cc.items = items
	cc.fetchedAt = time.Now()
	cc.mu.Unlock()
}

// Catalog returns the item mapping, cached for catalogTTL. Concurrent
// callers during a refresh share one fetch.
func (c *Client) Catalog() ([]Item, error) {
	if items, ok := c.catalog.get(); ok {
		return items, nil
	}

	result, err, _ := c.catalog.group.Do("mapping", func() (interface{}, error) {
		// Re-check under singleflight: a racing caller may have filled it.
		if items, ok := c.catalog.get(); ok {
			return items, nil
		}
		var items []Item
		if err := c.getJSON(c.base+"/mapping", &items); err != nil {
			return nil, err
		}
		c.catalog.put(items)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Item), nil
}

// CatalogByID returns the catalog keyed by item ID.
func (c *Client) CatalogByID() (map[int]Item, error) {
	items, err := c.Catalog()
	if err != nil {
		return nil, err
	}
	byID := make(map[int]Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return byID, nil
}
