package imageio

import (
	"sync"

	"github.com/s1s2water/tileprep/internal/raster"
)

// Cache provides thread-safe caching of decoded rasters keyed by file path.
//
// Once a raster is loaded, subsequent Load calls for the same path return the
// cached raster without disk I/O. Callers must treat cached rasters as
// read-only since every caller shares the same instance.
//
// Cache is safe for concurrent use by multiple goroutines. Two goroutines
// missing the same path at once may both decode it; the later result wins.
//
// Cached rasters remain in memory until removed via Evict or Clear.
type Cache struct {
	mu      sync.RWMutex
	rasters map[string]raster.Raster
}

// NewCache creates an empty raster cache.
func NewCache() *Cache {
	return &Cache{
		rasters: make(map[string]raster.Raster),
	}
}

// Load retrieves a raster from the cache or reads it with ReadFile if not
// cached. Different spellings of the same path are cached separately.
func (c *Cache) Load(path string) (raster.Raster, error) {
	c.mu.RLock()
	if r, ok := c.rasters[path]; ok {
		c.mu.RUnlock()
		return r, nil
	}
	c.mu.RUnlock()

	r, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rasters[path] = r
	c.mu.Unlock()

	return r, nil
}

// Len returns the number of cached rasters.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rasters)
}

// Clear removes all rasters from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.rasters = make(map[string]raster.Raster)
	c.mu.Unlock()
}

// Evict removes the raster cached under path. Unknown paths are ignored.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.rasters, path)
	c.mu.Unlock()
}
