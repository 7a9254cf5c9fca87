package recognition

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// testMatcher recognizes the farm's item names without pulling in the
// normalizer package.
func testMatcher(text string) (string, bool) {
	for _, item := range []string{"春菊", "青梗菜", "チンゲン菜", "胡瓜", "長ネギ"} {
		if strings.Contains(text, item) {
			return item, true
		}
	}
	return "", false
}

var _ = Describe("parseTranscript", func() {
	var (
		textLines []string
		lines     []CandidateLine
	)

	JustBeforeEach(func() {
		lines = parseTranscript(textLines, testMatcher)
	})

	When("a store line precedes item lines", func() {
		BeforeEach(func() {
			textLines = []string{
				"やまと屋",
				"春菊 3箱",
				"青梗菜 60",
			}
		})

		It("applies the store context to the following items", func() {
			Expect(lines).To(HaveLen(2))
			Expect(lines[0].Store).To(Equal("やまと屋"))
			Expect(lines[1].Store).To(Equal("やまと屋"))
		})

		It("parses the explicit box count", func() {
			Expect(lines[0].Item).To(Equal("春菊"))
			Expect(lines[0].Boxes.Int()).To(Equal(3))
			Expect(lines[0].Total.IsZero()).To(BeTrue())
		})

		It("parses the bare number as a total", func() {
			Expect(lines[1].Item).To(Equal("青梗菜"))
			Expect(lines[1].Total.Int()).To(Equal(60))
		})
	})

	When("a later store line changes the context", func() {
		BeforeEach(func() {
			textLines = []string{
				"やまと屋",
				"春菊 90",
				"まるしん",
				"春菊 30",
			}
		})

		It("assigns each item line to the nearest preceding store", func() {
			Expect(lines).To(HaveLen(2))
			Expect(lines[0].Store).To(Equal("やまと屋"))
			Expect(lines[1].Store).To(Equal("まるしん"))
		})
	})

	When("a line combines a short store token with an item", func() {
		BeforeEach(func() {
			textLines = []string{"マルエツ春菊20"}
		})

		It("splits the store prefix from the item", func() {
			Expect(lines).To(HaveLen(1))
			Expect(lines[0].Store).To(Equal("マルエツ"))
			Expect(lines[0].Item).To(Equal("春菊"))
			Expect(lines[0].Total.Int()).To(Equal(20))
		})
	})

	When("a line carries a box count plus loose remainder", func() {
		BeforeEach(func() {
			textLines = []string{"春菊2箱+バラ15"}
		})

		It("captures both fields", func() {
			Expect(lines).To(HaveLen(1))
			Expect(lines[0].Boxes.Int()).To(Equal(2))
			Expect(lines[0].Remainder.Int()).To(Equal(15))
		})
	})

	When("a line carries a pack spec in parens and a total", func() {
		BeforeEach(func() {
			textLines = []string{"青梗菜(20入)60"}
		})

		It("captures the spec, unit and total", func() {
			Expect(lines).To(HaveLen(1))
			Expect(lines[0].Spec).To(Equal("(20入)"))
			Expect(lines[0].Unit.Int()).To(Equal(20))
			Expect(lines[0].Total.Int()).To(Equal(60))
		})
	})

	When("no pattern matches", func() {
		BeforeEach(func() {
			// Trailing marks after the quantity defeat the suffix
			// patterns; the last number still wins.
			textLines = []string{"胡瓜バラお願いします150本ほど!!"}
		})

		It("falls back to last-number-is-total", func() {
			Expect(lines).To(HaveLen(1))
			Expect(lines[0].Total.Int()).To(Equal(150))
			Expect(lines[0].Item).To(ContainSubstring("胡瓜"))
		})
	})

	When("an item line has no quantity", func() {
		BeforeEach(func() {
			textLines = []string{"春菊"}
		})

		It("extracts nothing and keeps the store context unchanged", func() {
			Expect(lines).To(BeEmpty())
		})
	})

	When("lines contain OCR spacing noise", func() {
		BeforeEach(func() {
			textLines = []string{"春 菊  3 箱"}
		})

		It("parses after compacting whitespace", func() {
			Expect(lines).To(HaveLen(1))
			Expect(lines[0].Item).To(Equal("春菊"))
			Expect(lines[0].Boxes.Int()).To(Equal(3))
		})
	})
})

var _ = Describe("splitStoreItem", func() {
	It("returns the text untouched when no item keyword is present", func() {
		store, item := splitStoreItem("やまと屋", testMatcher)
		Expect(store).To(Equal(""))
		Expect(item).To(Equal("やまと屋"))
	})

	It("returns the text untouched when the item has no prefix", func() {
		store, item := splitStoreItem("春菊", testMatcher)
		Expect(store).To(Equal(""))
		Expect(item).To(Equal("春菊"))
	})

	It("splits a store prefix from the item keyword", func() {
		store, item := splitStoreItem("まるしん青梗菜", testMatcher)
		Expect(store).To(Equal("まるしん"))
		Expect(item).To(Equal("青梗菜"))
	})

	It("works without a matcher", func() {
		store, item := splitStoreItem("まるしん青梗菜", nil)
		Expect(store).To(Equal(""))
		Expect(item).To(Equal("まるしん青梗菜"))
	})
})
