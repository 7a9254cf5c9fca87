package order

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AliasTable", func() {
	var table *AliasTable

	BeforeEach(func() {
		table = NewAliasTable()
		table.AddEntry("青梗菜")
		table.AddVariant("青梗菜", "チンゲン菜")
		table.AddVariant("青梗菜", "チンゲンサイ")
		table.AddEntry("春菊")
	})

	Describe("Lookup", func() {
		It("resolves a registered variant without learning", func() {
			canonical, ok := table.Lookup("チンゲンサイ")
			Expect(ok).To(BeTrue())
			Expect(canonical).To(Equal("青梗菜"))
			Expect(table.Entries()).To(Equal([]string{"青梗菜", "春菊"}))
		})

		It("resolves an exact canonical name", func() {
			canonical, ok := table.Lookup("春菊")
			Expect(ok).To(BeTrue())
			Expect(canonical).To(Equal("春菊"))
		})

		It("resolves by containment in either direction", func() {
			canonical, ok := table.Lookup("春菊（大袋）")
			Expect(ok).To(BeTrue())
			Expect(canonical).To(Equal("春菊"))

			canonical, ok = table.Lookup("菜")
			Expect(ok).To(BeTrue())
			Expect(canonical).To(Equal("青梗菜"))
		})

		It("misses on unrelated text", func() {
			_, ok := table.Lookup("とまと")
			Expect(ok).To(BeFalse())
		})

		It("misses on empty input", func() {
			_, ok := table.Lookup("  ")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Learn", func() {
		It("merges text sharing enough runes with an existing entry", func() {
			canonical := table.Learn("青梗菜L")
			Expect(canonical).To(Equal("青梗菜"))
		})

		It("registers unrelated text as a new canonical entry", func() {
			canonical := table.Learn("とまと")
			Expect(canonical).To(Equal("とまと"))
			Expect(table.Entries()).To(ContainElement("とまと"))
		})

		It("is deterministic for repeated input", func() {
			first := table.Learn("キャベツ")
			second := table.Learn("キャベツ")
			Expect(second).To(Equal(first))
		})

		It("returns empty for empty input", func() {
			Expect(table.Learn(" ")).To(Equal(""))
		})
	})

	Describe("Match", func() {
		It("finds a known name inside longer text", func() {
			canonical, ok := table.Match("やまと屋チンゲン菜")
			Expect(ok).To(BeTrue())
			Expect(canonical).To(Equal("青梗菜"))
		})

		It("does not treat a fragment as a match", func() {
			_, ok := table.Match("菜")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Remove", func() {
		It("deletes the entry and its variants", func() {
			table.Remove("青梗菜")
			_, ok := table.Lookup("チンゲン菜")
			Expect(ok).To(BeFalse())
			Expect(table.Entries()).To(Equal([]string{"春菊"}))
		})
	})
})

var _ = Describe("Normalizer", func() {
	var normalizer *Normalizer

	BeforeEach(func() {
		table := NewAliasTable()
		table.AddEntry("春菊")
		normalizer = NewNormalizer(table)
	})

	It("returns empty for empty input", func() {
		Expect(normalizer.Normalize("  ")).To(Equal(""))
	})

	It("always returns a non-empty name for non-empty input", func() {
		for _, raw := range []string{"春菊", "しゅんぎく的な何か", "完全に未知の品目", "x"} {
			Expect(normalizer.Normalize(raw)).NotTo(BeEmpty())
		}
	})
})

var _ = Describe("StoreBook", func() {
	var table *AliasTable

	BeforeEach(func() {
		table = NewAliasTable()
		table.AddEntry("やまと屋")
	})

	When("auto-learn is enabled", func() {
		It("registers unknown stores", func() {
			book := NewStoreBook(table, true)
			store, ok := book.Validate("まるしん")
			Expect(ok).To(BeTrue())
			Expect(store).To(Equal("まるしん"))
			Expect(table.Entries()).To(ContainElement("まるしん"))
		})
	})

	When("auto-learn is disabled", func() {
		It("reports unknown stores as a miss", func() {
			book := NewStoreBook(table, false)
			_, ok := book.Validate("まるしん")
			Expect(ok).To(BeFalse())
		})

		It("still resolves known stores", func() {
			book := NewStoreBook(table, false)
			store, ok := book.Validate("やまと屋")
			Expect(ok).To(BeTrue())
			Expect(store).To(Equal("やまと屋"))
		})
	})
})

var _ = Describe("FallbackNormalize", func() {
	It("collapses chingensai spelling variants", func() {
		Expect(FallbackNormalize("チンゲン菜")).To(Equal("青梗菜"))
		Expect(FallbackNormalize("チンゲンサイ")).To(Equal("青梗菜"))
		Expect(FallbackNormalize("青梗菜")).To(Equal("青梗菜"))
	})

	It("splits the cucumber family on the loose marker", func() {
		Expect(FallbackNormalize("胡瓜バラ")).To(Equal("胡瓜(バラ)"))
		Expect(FallbackNormalize("きゅうり 3本パック")).To(Equal("胡瓜(3本P)"))
	})

	It("defaults an ambiguous cucumber to loose", func() {
		Expect(FallbackNormalize("キュウリ")).To(Equal("胡瓜(バラ)"))
	})

	It("passes unknown text through", func() {
		Expect(FallbackNormalize(" とまと ")).To(Equal("とまと"))
	})
})
