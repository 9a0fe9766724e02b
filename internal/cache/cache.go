// Package cache stores synthesized section audio so static sections (intro,
// outro) do not re-synthesize identical text across runs. It layers a small
// in-memory LRU over zstd-compressed files on disk.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
)

// Stats tracks cache effectiveness.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// Cache is a two-level audio cache: memory first, disk second.
type Cache struct {
	dir      string
	capacity int64
	logger   *log.Logger

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List
	memSize  int64
	memCap   int64
	stats    Stats

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

type entry struct {
	key  string
	data []byte
}

// memoryShare of the total capacity kept in the in-memory layer.
const memoryShare = 4

// New creates a cache rooted at dir with the given total capacity in bytes.
func New(dir string, capacity int64, logger *log.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Cache{
		dir:      dir,
		capacity: capacity,
		logger:   logger,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		memCap:   capacity / memoryShare,
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

// Key derives the cache key for a synthesis request.
func Key(text, voice string, speed float64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.2f", text, voice, speed)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached payload for key, checking memory then disk. Disk
// hits are promoted into memory.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		data := elem.Value.(*entry).data
		c.stats.Hits++
		c.mu.Unlock()
		return data, true
	}
	c.mu.Unlock()

	compressed, err := os.ReadFile(c.path(key))
	if err != nil {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}
	data, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		c.logger.Warn("dropping corrupt cache entry", "key", key[:8], "error", err)
		os.Remove(c.path(key))
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.stats.Hits++
	c.putMemoryLocked(key, data)
	c.mu.Unlock()
	return data, true
}

// Put stores a payload in memory and on disk, evicting old entries past
// capacity.
func (c *Cache) Put(key string, data []byte) error {
	if int64(len(data)) > c.capacity {
		return nil // too large to cache, not an error
	}

	compressed := c.encoder.EncodeAll(data, nil)
	if err := os.WriteFile(c.path(key), compressed, 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	c.mu.Lock()
	c.putMemoryLocked(key, data)
	c.mu.Unlock()

	return c.evictDisk()
}

// Statistics returns a snapshot of cache counters.
func (c *Cache) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.diskSize()
	return s
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".zst")
}

func (c *Cache) putMemoryLocked(key string, data []byte) {
	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		return
	}
	c.items[key] = c.eviction.PushFront(&entry{key: key, data: data})
	c.memSize += int64(len(data))
	for c.memSize > c.memCap && c.eviction.Len() > 1 {
		oldest := c.eviction.Back()
		e := oldest.Value.(*entry)
		c.eviction.Remove(oldest)
		delete(c.items, e.key)
		c.memSize -= int64(len(e.data))
	}
}

// evictDisk removes the oldest files until the disk layer fits capacity.
func (c *Cache) evictDisk() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}

	type fileInfo struct {
		path string
		size int64
		mod  time.Time
	}
	var files []fileInfo
	var total int64
	for _, de := range entries {
		info, err := de.Info()
		if err != nil || de.IsDir() {
			continue
		}
		files = append(files, fileInfo{
			path: filepath.Join(c.dir, de.Name()),
			size: info.Size(),
			mod:  info.ModTime(),
		})
		total += info.Size()
	}
	if total <= c.capacity {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })
	for _, f := range files {
		if total <= c.capacity {
			break
		}
		if err := os.Remove(f.path); err == nil {
			total -= f.size
		}
	}
	c.logger.Debug("cache evicted to capacity", "size", humanize.Bytes(uint64(total)))
	return nil
}

func (c *Cache) diskSize() int64 {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}
	var total int64
	for _, de := range entries {
		if info, err := de.Info(); err == nil && !de.IsDir() {
			total += info.Size()
		}
	}
	return total
}
