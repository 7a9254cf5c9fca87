package order

import (
	"fmt"
	"strings"
)

// UnitLabels maps canonical item names to the counting word used in the
// chat summary. This is a lookup table, not a rule; it is injected so the
// label set can change without touching aggregation.
type UnitLabels map[string]string

// DefaultUnitLabels returns the farm's labels: bagged leafy greens count in
// 袋, everything else in パック.
func DefaultUnitLabels() UnitLabels {
	return UnitLabels{
		"春菊":  "袋",
		"青梗菜": "袋",
	}
}

// Label returns the counting word for an item, defaulting to パック.
func (u UnitLabels) Label(item string) string {
	if label, ok := u[item]; ok {
		return label
	}
	return "パック"
}

// Summary holds per-item quantity totals in first-occurrence order, so the
// chat text lists items in the order they appeared across the batch.
type Summary struct {
	items  []string
	totals map[string]int
}

// Summarize groups finalized order lines by canonical item and sums their
// total quantities.
func Summarize(lines []Line) *Summary {
	s := &Summary{totals: make(map[string]int)}
	for _, line := range lines {
		item := line.Item
		if item == "" {
			item = "不明"
		}
		if _, seen := s.totals[item]; !seen {
			s.items = append(s.items, item)
		}
		s.totals[item] += line.TotalQuantity()
	}
	return s
}

// Items returns the item names in first-occurrence order.
func (s *Summary) Items() []string {
	return append([]string(nil), s.items...)
}

// Total returns the summed quantity for an item.
func (s *Summary) Total(item string) int {
	return s.totals[item]
}

// Format renders the chat-summary text block.
func (s *Summary) Format(labels UnitLabels) string {
	var sb strings.Builder
	sb.WriteString("本日の注文まとめ\n")
	for _, item := range s.items {
		fmt.Fprintf(&sb, "%s: %d%s\n", item, s.totals[item], labels.Label(item))
	}
	return sb.String()
}
