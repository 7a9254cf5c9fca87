package recognition

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Cache", func() {
	var (
		tempDir   string
		cachePath string
		cache     *Cache
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "orderscan-cache-*")
		Expect(err).NotTo(HaveOccurred())
		cachePath = filepath.Join(tempDir, "cache.json")
		cache = NewCache(cachePath, 3)
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Get and Put", func() {
		It("round-trips lines by fingerprint", func() {
			lines := []CandidateLine{{Store: "A", Item: "春菊", Total: "90"}}
			cache.Put("fp-1", lines)

			got, ok := cache.Get("fp-1")
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(lines))
		})

		It("misses on unknown fingerprints", func() {
			_, ok := cache.Get("nope")
			Expect(ok).To(BeFalse())
		})

		It("overwrites an existing fingerprint without growing", func() {
			cache.Put("fp-1", []CandidateLine{{Item: "春菊"}})
			cache.Put("fp-1", []CandidateLine{{Item: "青梗菜"}})

			Expect(cache.Len()).To(Equal(1))
			got, _ := cache.Get("fp-1")
			Expect(got[0].Item).To(Equal("青梗菜"))
		})
	})

	Describe("eviction", func() {
		It("drops the oldest-inserted entries beyond the cap", func() {
			cache.Put("fp-1", nil)
			cache.Put("fp-2", nil)
			cache.Put("fp-3", nil)
			cache.Put("fp-4", nil)

			Expect(cache.Len()).To(Equal(3))
			_, ok := cache.Get("fp-1")
			Expect(ok).To(BeFalse())
			_, ok = cache.Get("fp-4")
			Expect(ok).To(BeTrue())
		})
	})

	Describe("Load and Save", func() {
		It("persists entries across instances", func() {
			cache.Put("fp-1", []CandidateLine{{Store: "A", Item: "春菊", Boxes: "3"}})
			Expect(cache.Save()).To(Succeed())

			reloaded := NewCache(cachePath, 3)
			Expect(reloaded.Load()).To(Succeed())

			got, ok := reloaded.Get("fp-1")
			Expect(ok).To(BeTrue())
			Expect(got[0].Boxes.Int()).To(Equal(3))
		})

		It("treats a missing file as an empty cache", func() {
			Expect(cache.Load()).To(Succeed())
			Expect(cache.Len()).To(Equal(0))
		})

		It("fails on a corrupt file", func() {
			Expect(os.WriteFile(cachePath, []byte("not json"), 0644)).To(Succeed())
			Expect(cache.Load()).NotTo(Succeed())
		})
	})
})

var _ = Describe("Fingerprint", func() {
	It("is deterministic", func() {
		Expect(Fingerprint([]byte("abc"))).To(Equal(Fingerprint([]byte("abc"))))
	})

	It("differs for different content", func() {
		Expect(Fingerprint([]byte("abc"))).NotTo(Equal(Fingerprint([]byte("abd"))))
	})
})
