package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/config"
	"github.com/sarchlab/armsim/loader"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "armsim-config-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	It("should provide valid defaults", func() {
		c := config.DefaultConfig()
		Expect(c.MemorySize).To(Equal(32768))
		Expect(c.StackPointer).To(Equal(uint32(0x7000)))
		Expect(c.TraceFile).To(BeEmpty())
		Expect(c.Validate()).To(Succeed())
	})

	It("should round-trip through a file", func() {
		c := config.DefaultConfig()
		c.MaxSteps = 1000
		c.TraceFile = "trace.log"
		c.Breakpoints = []uint32{0x10, 0x20}
		c.DCache.Associativity = 2
		path := filepath.Join(tempDir, "armsim.json")

		Expect(c.SaveConfig(path)).To(Succeed())
		loaded, err := config.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(c))
	})

	It("should fill missing fields with defaults", func() {
		path := filepath.Join(tempDir, "partial.json")
		Expect(os.WriteFile(path, []byte(`{"memory_size": 65536, "latency": {"load_latency": 4}}`), 0644)).To(Succeed())

		c, err := config.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.MemorySize).To(Equal(65536))
		Expect(c.StackPointer).To(Equal(uint32(0x7000)))
		Expect(c.Latency.LoadLatency).To(Equal(uint64(4)))
		Expect(c.Latency.ALULatency).To(Equal(uint64(1)))
		Expect(c.ICache.BlockSize).To(Equal(32))
	})

	It("should report a missing file", func() {
		_, err := config.LoadConfig(filepath.Join(tempDir, "none.json"))
		Expect(err).To(MatchError(os.ErrNotExist))
	})

	It("should report malformed JSON", func() {
		path := filepath.Join(tempDir, "bad.json")
		Expect(os.WriteFile(path, []byte(`{"memory_size":`), 0644)).To(Succeed())

		_, err := config.LoadConfig(path)
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("Validate",
		func(mutate func(*config.Config), want string) {
			c := config.DefaultConfig()
			mutate(c)
			Expect(c.Validate()).To(MatchError(ContainSubstring(want)))
		},
		Entry("zero memory", func(c *config.Config) { c.MemorySize = 0 }, "memory_size"),
		Entry("too much memory", func(c *config.Config) { c.MemorySize = loader.MaxMemorySize + 1 }, "memory_size"),
		Entry("unaligned stack", func(c *config.Config) { c.StackPointer = 0x6FFE }, "aligned"),
		Entry("zero latency", func(c *config.Config) { c.Latency.ALULatency = 0 }, "latency"),
		Entry("bad icache", func(c *config.Config) { c.ICache.BlockSize = 3 }, "icache"),
		Entry("bad dcache", func(c *config.Config) { c.DCache.Associativity = 0 }, "dcache"),
	)

	It("should accept a memory smaller than the stack pointer", func() {
		c := config.DefaultConfig()
		c.MemorySize = 4096
		Expect(c.Validate()).To(Succeed())
	})

	It("should wrap the loader sentinel for a bad memory size", func() {
		c := config.DefaultConfig()
		c.MemorySize = -1
		Expect(c.Validate()).To(MatchError(loader.ErrInvalidMemorySize))
	})
})
