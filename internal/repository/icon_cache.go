package repository

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/fakhrymubarak/weather-viewer/internal/cache"
	"github.com/fakhrymubarak/weather-viewer/internal/config"
	"github.com/fakhrymubarak/weather-viewer/internal/model"
)

// IconConfig locates icons: BaseURL + id + Extension.
type IconConfig struct {
	BaseURL   string
	Extension string
}

// IconConfigFromEnv reads the icon location from config.yaml.
func IconConfigFromEnv() IconConfig {
	return IconConfig{
		BaseURL:   config.GetIconBaseUrl(),
		Extension: config.GetIconExtension(),
	}
}

// IconCache resolves icons from its store, fetching and decoding on a miss.
// Concurrent misses for one id are not coalesced; each successful decode
// overwrites the entry. Failures are never stored.
type IconCache struct {
	store      cache.IconStore
	cfg        IconConfig
	httpClient *http.Client

	hits    atomic.Int64
	misses  atomic.Int64
	fetches atomic.Int64
}

// CacheStats is a point-in-time view of the cache counters.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Fetches int64 `json:"fetches"`
}

// NewIconCache creates an icon cache over store
func NewIconCache(store cache.IconStore, cfg IconConfig, httpClient ...*http.Client) *IconCache {
	client := http.DefaultClient
	if len(httpClient) > 0 && httpClient[0] != nil {
		client = httpClient[0]
	}
	return &IconCache{
		store:      store,
		cfg:        cfg,
		httpClient: client,
	}
}

// URL returns the remote location of the icon.
func (c *IconCache) URL(iconID string) string {
	return c.cfg.BaseURL + url.PathEscape(iconID) + c.cfg.Extension
}

// Lookup reads the store only. A store error counts as a miss.
func (c *IconCache) Lookup(ctx context.Context, iconID string) (*model.Icon, bool) {
	icon, ok, err := c.store.Get(ctx, iconID)
	if err != nil {
		config.GetLogger().Warnw("Icon store read failed", "icon", iconID, "error", err)
		return nil, false
	}
	return icon, ok
}

// Get returns the cached icon or fetches, decodes and stores it.
func (c *IconCache) Get(ctx context.Context, iconID string) (*model.Icon, error) {
	if iconID == "" {
		return nil, fmt.Errorf("%w: empty icon id", ErrInvalidRequest)
	}

	if icon, ok := c.Lookup(ctx, iconID); ok {
		c.hits.Add(1)
		return icon, nil
	}
	c.misses.Add(1)

	c.fetches.Add(1)
	body, err := get(ctx, c.httpClient, c.URL(iconID))
	if err != nil {
		return nil, err
	}

	icon, err := decodeIcon(iconID, body)
	if err != nil {
		config.GetLogger().Debugw("Icon decode failed", "icon", iconID, "error", err)
		return nil, err
	}

	if err := c.store.Put(ctx, icon); err != nil {
		config.GetLogger().Warnw("Icon store write failed", "icon", iconID, "error", err)
	}
	return icon, nil
}

// Stats returns the hit, miss and network fetch counters.
func (c *IconCache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Fetches: c.fetches.Load(),
	}
}

func decodeIcon(iconID string, body []byte) (*model.Icon, error) {
	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: icon %q: %v", ErrImageDecode, iconID, err)
	}
	bounds := img.Bounds()
	return &model.Icon{
		ID:     iconID,
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Data:   body,
	}, nil
}
