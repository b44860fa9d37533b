package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/timing/cache"
)

var _ = Describe("Cache", func() {
	var c *cache.Cache

	BeforeEach(func() {
		// 256B, 2-way, 32B lines: 4 sets, addresses 128 bytes apart share a set.
		config := cache.Config{
			Size:          256,
			Associativity: 2,
			BlockSize:     32,
			HitLatency:    1,
			MissLatency:   10,
		}
		Expect(config.Validate()).To(Succeed())
		c = cache.New(config)
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			result := c.Read(0x1000, 4)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on cached data", func() {
			c.Read(0x1000, 4)

			result := c.Read(0x1000, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(c.Stats().HitRate()).To(BeNumerically("~", 0.5))
		})

		It("should hit on different addresses in same cache line", func() {
			c.Read(0x1000, 4)

			Expect(c.Read(0x101C, 4).Hit).To(BeTrue())
			Expect(c.Read(0x1020, 4).Hit).To(BeFalse())
		})
	})

	Describe("Write operations", func() {
		It("should allocate on a write miss", func() {
			result := c.Write(0x2000, 4, 0xDEADBEEF)
			Expect(result.Hit).To(BeFalse())

			Expect(c.Read(0x2000, 4).Hit).To(BeTrue())
			Expect(c.Stats().Writes).To(Equal(uint64(1)))
		})
	})

	Describe("Replacement", func() {
		It("should evict the least recently used way", func() {
			c.Read(0x000, 4)
			c.Read(0x080, 4)
			c.Read(0x000, 4) // 0x080 is now LRU

			result := c.Read(0x100, 4)
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(uint32(0x080)))

			Expect(c.Contains(0x000)).To(BeTrue())
			Expect(c.Contains(0x080)).To(BeFalse())
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should count a writeback when a dirty line is evicted", func() {
			c.Write(0x000, 4, 1)
			c.Read(0x080, 4)
			c.Read(0x100, 4)

			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
		})

		It("should not count a writeback for a clean line", func() {
			c.Read(0x000, 4)
			c.Read(0x080, 4)
			c.Read(0x100, 4)

			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(0)))
		})
	})

	Describe("Maintenance", func() {
		It("should invalidate a single line", func() {
			c.Read(0x40, 4)
			c.Invalidate(0x44)
			Expect(c.Contains(0x40)).To(BeFalse())
		})

		It("should write back dirty lines on flush", func() {
			c.Write(0x000, 4, 1)
			c.Write(0x020, 4, 2)
			c.Read(0x040, 4)

			c.Flush()

			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))
			Expect(c.Contains(0x000)).To(BeFalse())
			Expect(c.Contains(0x040)).To(BeFalse())
		})

		It("should clear lines and statistics on reset", func() {
			c.Read(0x000, 4)
			c.Reset()

			Expect(c.Contains(0x000)).To(BeFalse())
			Expect(c.Stats()).To(Equal(cache.Statistics{}))
		})
	})

	Describe("Config", func() {
		It("should accept the defaults", func() {
			Expect(cache.DefaultICacheConfig().Validate()).To(Succeed())
			Expect(cache.DefaultDCacheConfig().Validate()).To(Succeed())
			Expect(cache.DefaultDCacheConfig().NumSets()).To(Equal(32))
		})

		It("should reject a block size that is not a power of two", func() {
			config := cache.DefaultDCacheConfig()
			config.BlockSize = 24
			Expect(config.Validate()).To(MatchError(ContainSubstring("block_size")))
		})

		It("should reject a size that does not divide into sets", func() {
			config := cache.DefaultDCacheConfig()
			config.Size = 100
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should report a zero hit rate before any access", func() {
			Expect(cache.Statistics{}.HitRate()).To(BeZero())
		})
	})
})
