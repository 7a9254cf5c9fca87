package order

import (
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kojimafarm/orderscan/internal/recognition"
)

var _ = Describe("Reconciler", func() {
	var (
		reconciler *Reconciler
		candidates []recognition.CandidateLine
		lines      []Line
		warnings   []Warning
	)

	BeforeEach(func() {
		itemTable := NewAliasTable()
		for _, item := range DefaultRules().Items() {
			itemTable.AddEntry(item)
		}
		itemTable.AddVariant("青梗菜", "チンゲン菜")

		storeTable := NewAliasTable()
		storeTable.AddEntry("やまと屋")

		reconciler = NewReconciler(
			NewNormalizer(itemTable),
			NewStoreBook(storeTable, false),
			DefaultRules(),
		)
	})

	JustBeforeEach(func() {
		lines, warnings = reconciler.Reconcile(candidates)
	})

	When("the candidate carries an explicit box split", func() {
		BeforeEach(func() {
			candidates = []recognition.CandidateLine{{
				Store: "やまと屋", Item: "春菊", Spec: "30袋",
				Unit: "30", Boxes: "3", Remainder: "5",
			}}
		})

		It("uses the explicit values as-is", func() {
			Expect(lines).To(HaveLen(1))
			Expect(lines[0]).To(Equal(Line{
				Store: "やまと屋", Item: "春菊", Spec: "30袋",
				Unit: 30, Boxes: 3, Remainder: 5,
			}))
			Expect(warnings).To(BeEmpty())
		})
	})

	When("quantities are string-encoded with unit suffixes", func() {
		BeforeEach(func() {
			candidates = []recognition.CandidateLine{{
				Store: "やまと屋", Item: "春菊",
				Unit: "30袋", Boxes: "2箱", Remainder: "バラ7",
			}}
		})

		It("coerces them to integers", func() {
			Expect(lines[0].Unit).To(Equal(30))
			Expect(lines[0].Boxes).To(Equal(2))
			Expect(lines[0].Remainder).To(Equal(7))
		})
	})

	When("only a gross total is available", func() {
		BeforeEach(func() {
			candidates = []recognition.CandidateLine{{
				Store: "やまと屋", Item: "胡瓜(バラ)", Total: "170",
			}}
		})

		It("derives the box split including the half box", func() {
			Expect(lines[0].Unit).To(Equal(100))
			Expect(lines[0].Boxes).To(Equal(1))
			Expect(lines[0].Remainder).To(Equal(20))
			Expect(lines[0].HalfBox).To(BeTrue())
		})
	})

	When("the item name is a known variant", func() {
		BeforeEach(func() {
			candidates = []recognition.CandidateLine{{
				Store: "やまと屋", Item: "チンゲン菜", Total: "45",
			}}
		})

		It("normalizes to the canonical name before applying rules", func() {
			Expect(lines[0].Item).To(Equal("青梗菜"))
			Expect(lines[0].Unit).To(Equal(20))
			Expect(lines[0].Boxes).To(Equal(2))
			Expect(lines[0].Remainder).To(Equal(5))
		})
	})

	When("the item has no packing rule", func() {
		BeforeEach(func() {
			candidates = []recognition.CandidateLine{{
				Store: "やまと屋", Item: "とまと", Total: "75",
			}}
		})

		It("carries the quantity as loose units and warns", func() {
			Expect(lines[0].Unit).To(Equal(0))
			Expect(lines[0].Remainder).To(Equal(75))
			Expect(warnings).To(HaveLen(1))
			Expect(warnings[0].Message).To(ContainSubstring("no packing rule"))
		})
	})

	When("a box count arrives without a unit", func() {
		BeforeEach(func() {
			candidates = []recognition.CandidateLine{{
				Store: "やまと屋", Item: "春菊", Boxes: "3", Remainder: "10",
			}}
		})

		It("fills the unit from the rule table", func() {
			Expect(lines[0].Unit).To(Equal(30))
			Expect(lines[0].Boxes).To(Equal(3))
			Expect(lines[0].Remainder).To(Equal(10))
			Expect(warnings).To(BeEmpty())
		})
	})

	When("the candidate has no usable quantity", func() {
		BeforeEach(func() {
			candidates = []recognition.CandidateLine{{
				Store: "やまと屋", Item: "春菊",
			}}
		})

		It("emits a zero-quantity line with a warning", func() {
			Expect(lines).To(HaveLen(1))
			Expect(lines[0].TotalQuantity()).To(Equal(0))
			Expect(warnings).To(HaveLen(1))
			Expect(warnings[0].Message).To(ContainSubstring("no usable quantity"))
		})
	})

	When("the store is unknown and auto-learn is disabled", func() {
		BeforeEach(func() {
			candidates = []recognition.CandidateLine{{
				Store: "まるしん", Item: "春菊", Total: "30",
			}}
		})

		It("keeps the raw text and warns", func() {
			Expect(lines[0].Store).To(Equal("まるしん"))
			Expect(warnings).To(HaveLen(1))
			Expect(warnings[0].Message).To(ContainSubstring("unrecognized store"))
		})
	})

	When("reconciling a batch", func() {
		BeforeEach(func() {
			candidates = []recognition.CandidateLine{
				{Store: "やまと屋", Item: "春菊", Total: "90"},
				{Store: "やまと屋", Item: "青梗菜", Total: "40"},
				{Store: "やまと屋", Item: "胡瓜(3本P)", Total: "65"},
			}
		})

		It("preserves input order", func() {
			Expect(lines).To(HaveLen(3))
			Expect(lines[0].Item).To(Equal("春菊"))
			Expect(lines[1].Item).To(Equal("青梗菜"))
			Expect(lines[2].Item).To(Equal("胡瓜(3本P)"))
		})

		It("is idempotent over its own totals", func() {
			again := make([]recognition.CandidateLine, len(lines))
			for i, line := range lines {
				again[i] = recognition.CandidateLine{
					Store: line.Store,
					Item:  line.Item,
					Spec:  line.Spec,
					Total: recognition.Number(strconv.Itoa(line.TotalQuantity())),
				}
			}
			relines, rewarnings := reconciler.Reconcile(again)
			Expect(relines).To(Equal(lines))
			Expect(rewarnings).To(BeEmpty())
		})
	})

	When("no alias tables are configured", func() {
		BeforeEach(func() {
			reconciler = NewReconciler(nil, nil, DefaultRules())
			candidates = []recognition.CandidateLine{{
				Store: "どこかの店", Item: "チンゲンサイ", Total: "45",
			}}
		})

		It("falls back to the regex rules and keeps the store text", func() {
			Expect(lines[0].Item).To(Equal("青梗菜"))
			Expect(lines[0].Store).To(Equal("どこかの店"))
			Expect(lines[0].Boxes).To(Equal(2))
		})
	})
})
