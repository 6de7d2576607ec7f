package imageio

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/s1s2water/tileprep/internal/raster"
)

// writeFixture writes a small uint16 raster to dir/name and returns its path.
func writeFixture(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	a, err := raster.FromSlice(2, 2, 1, []uint16{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("failed to build raster: %v", err)
	}
	if err := WriteFile(path, a, nil); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestCache_Load(t *testing.T) {
	cache := NewCache()
	path := writeFixture(t, t.TempDir(), "a.tif")

	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first != second {
		t.Error("second Load should return the cached raster")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestCache_EvictAndClear(t *testing.T) {
	cache := NewCache()
	dir := t.TempDir()
	a := writeFixture(t, dir, "a.tif")
	b := writeFixture(t, dir, "b.tif")

	first, _ := cache.Load(a)
	cache.Load(b)

	cache.Evict(a)
	if cache.Len() != 1 {
		t.Errorf("Len after Evict: got %d, want 1", cache.Len())
	}
	reloaded, err := cache.Load(a)
	if err != nil {
		t.Fatalf("Load after Evict failed: %v", err)
	}
	if reloaded == first {
		t.Error("Load after Evict should decode a new raster")
	}

	cache.Evict(filepath.Join(dir, "unknown.tif"))
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", cache.Len())
	}
}

func TestCache_LoadMissing(t *testing.T) {
	cache := NewCache()
	if _, err := cache.Load(filepath.Join(t.TempDir(), "missing.tif")); err == nil {
		t.Error("Load should fail for a missing file")
	}
	if cache.Len() != 0 {
		t.Errorf("failed loads should not be cached, Len: %d", cache.Len())
	}
}

func TestCache_ConcurrentLoad(t *testing.T) {
	cache := NewCache()
	path := writeFixture(t, t.TempDir(), "a.tif")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Load failed: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}
