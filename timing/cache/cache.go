// Package cache models set-associative caches on top of the Akita cache
// directory. Caches track tags, validity and dirtiness only: the emulator's
// memory stays the single source of data, and the cache reports hit or miss
// and the cycles an access costs.
package cache

import (
	"fmt"
	"math/bits"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
	// HitLatency in cycles
	HitLatency uint64 `json:"hit_latency"`
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64 `json:"miss_latency"`
}

// DefaultICacheConfig returns the default instruction cache: 4KB, 4-way,
// 32B lines.
func DefaultICacheConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 4,
		BlockSize:     32,
		HitLatency:    1,
		MissLatency:   10,
	}
}

// DefaultDCacheConfig returns the default data cache: 4KB, 4-way, 32B lines.
func DefaultDCacheConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 4,
		BlockSize:     32,
		HitLatency:    1,
		MissLatency:   10,
	}
}

// Validate checks that the geometry describes at least one set and that
// the block size is a power of two.
func (c Config) Validate() error {
	if c.BlockSize <= 0 || bits.OnesCount(uint(c.BlockSize)) != 1 {
		return fmt.Errorf("block_size must be a power of two, got %d", c.BlockSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0, got %d", c.Associativity)
	}
	if c.Size < c.Associativity*c.BlockSize || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size %d is not a multiple of associativity*block_size (%d)",
			c.Size, c.Associativity*c.BlockSize)
	}
	return nil
}

// NumSets returns the number of sets the configuration describes.
func (c Config) NumSets() int {
	return c.Size / (c.Associativity * c.BlockSize)
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint32
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// Accesses returns the number of reads and writes.
func (s Statistics) Accesses() uint64 {
	return s.Reads + s.Writes
}

// HitRate returns hits over accesses, or 0 before the first access.
func (s Statistics) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

// Cache is a write-back, write-allocate cache with LRU replacement.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// New creates a new cache with the given configuration. The configuration
// must pass Validate.
func New(config Config) *Cache {
	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockAddr(addr uint32) uint64 {
	return uint64(addr) &^ uint64(c.config.BlockSize-1)
}

// Read performs a cache read of size bytes at addr.
func (c *Cache) Read(addr uint32, size int) AccessResult {
	c.stats.Reads++
	return c.access(addr, size, false)
}

// Write performs a cache write. The value is not stored; a hit or fill only
// marks the line dirty.
func (c *Cache) Write(addr uint32, size int, _ uint32) AccessResult {
	c.stats.Writes++
	return c.access(addr, size, true)
}

func (c *Cache) access(addr uint32, _ int, isWrite bool) AccessResult {
	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		if isWrite {
			block.IsDirty = true
		}

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++
	return c.fill(blockAddr, isWrite)
}

// fill allocates a line for blockAddr, evicting the LRU way of its set.
func (c *Cache) fill(blockAddr uint64, isWrite bool) AccessResult {
	result := AccessResult{
		Hit:     false,
		Latency: c.config.MissLatency,
	}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)

		if victim.IsDirty {
			c.stats.Writebacks++
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = isWrite

	c.directory.Visit(victim)

	return result
}

// Contains reports whether the line holding addr is resident.
func (c *Cache) Contains(addr uint32) bool {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	return block != nil && block.IsValid
}

// Invalidate marks a cache line as invalid.
func (c *Cache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush counts a writeback for every dirty line and invalidates all lines.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
