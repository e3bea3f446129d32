package wasmrt

import (
	"container/list"
	"context"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/tetratelabs/wazero"
)

type cacheEntry struct {
	key      string
	compiled wazero.CompiledModule
	module   *Module
}

// moduleCache is a bounded LRU keyed by source key (the module's content
// hash or configured name), mirroring the bounded-capacity cache contract.
type moduleCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

func newModuleCache(capacity int) *moduleCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &moduleCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *moduleCache) get(key string) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry), true
}

// put inserts entry, evicting the least-recently-used entry (and closing
// its compiled module) if the cache is at capacity. evicted is the closed
// entry, or nil when nothing was evicted.
func (c *moduleCache) put(ctx context.Context, entry *cacheEntry) (evicted *cacheEntry) {
	c.mu.Lock()
	if el, ok := c.items[entry.key]; ok {
		c.order.MoveToFront(el)
		el.Value = entry
		c.mu.Unlock()
		return nil
	}
	el := c.order.PushFront(entry)
	c.items[entry.key] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			evicted = oldest.Value.(*cacheEntry)
			c.order.Remove(oldest)
			delete(c.items, evicted.key)
		}
	}
	c.mu.Unlock()

	if evicted != nil {
		_ = evicted.compiled.Close(ctx)
	}
	return evicted
}

// remove deletes key (used by explicit unload_module), returning the
// removed entry so the caller can close it.
func (c *moduleCache) remove(key string) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return el.Value.(*cacheEntry), true
}

// watchModuleDir watches dir for .wasm changes and invalidates the matching
// cache entry (the one whose key equals the changed file's path as fsnotify
// reports it, dir joined with the file name) so the next Load recompiles.
// Intended for local development of guest modules; a production deployment
// with content-addressed source keys would not need it.
func (c *moduleCache) watchModuleDir(ctx context.Context, dir string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Create) != 0 {
					if entry, found := c.remove(ev.Name); found {
						_ = entry.compiled.Close(ctx)
						logger.Info("wasm module invalidated by file change", "path", ev.Name)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("wasm module watcher error", "error", err)
			}
		}
	}()
	return nil
}
