package order

import (
	"fmt"
	"sort"
	"strings"
)

// HalfBoxCapacity is the size of the intermediate box. The physical
// packaging supports this box size only for loose cucumber.
const HalfBoxCapacity = 50

// Packing is the box split derived from a gross quantity.
type Packing struct {
	Unit      int
	Boxes     int
	Remainder int
	HalfBox   bool
}

// Rules maps canonical item names to units-per-box and owns the half-box
// special case.
type Rules struct {
	unitsPerBox map[string]int
	halfBoxItem string
}

// DefaultRules returns the farm's packing table.
func DefaultRules() *Rules {
	return &Rules{
		unitsPerBox: map[string]int{
			"胡瓜(3本P)":  30,
			"胡瓜(バラ)":   100,
			"春菊":       30,
			"青梗菜":      20,
			"長ネギ(2本P)": 30,
		},
		halfBoxItem: "胡瓜(バラ)",
	}
}

// NewRules builds a rule table from an explicit units-per-box mapping.
// halfBoxItem may be empty, disabling the half-box mode entirely.
func NewRules(unitsPerBox map[string]int, halfBoxItem string) *Rules {
	table := make(map[string]int, len(unitsPerBox))
	for item, unit := range unitsPerBox {
		table[item] = unit
	}
	return &Rules{unitsPerBox: table, halfBoxItem: halfBoxItem}
}

// UnitFor returns the units-per-box for an item, 0 when unconfigured.
func (r *Rules) UnitFor(item string) int {
	return r.unitsPerBox[item]
}

// BoxesAndRemainder splits a gross quantity into full boxes and remainder.
// An item with no configured rule carries everything as remainder with
// unit 0; that is deliberate fail-soft behavior, never an error. For the
// half-box item, a remainder of HalfBoxCapacity or more converts into one
// half box.
func (r *Rules) BoxesAndRemainder(total int, item string) Packing {
	if total < 0 {
		total = 0
	}

	unit, ok := r.unitsPerBox[item]
	if !ok || unit == 0 {
		return Packing{Remainder: total}
	}

	p := Packing{
		Unit:      unit,
		Boxes:     total / unit,
		Remainder: total % unit,
	}

	if item == r.halfBoxItem && p.Remainder >= HalfBoxCapacity {
		p.HalfBox = true
		p.Remainder -= HalfBoxCapacity
	}

	return p
}

// Items returns the configured canonical item names, sorted for stable
// prompt and config output.
func (r *Rules) Items() []string {
	items := make([]string, 0, len(r.unitsPerBox))
	for item := range r.unitsPerBox {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// RuleText renders the packing table as the instruction block embedded in AI
// prompts and operator-facing docs.
func (r *Rules) RuleText() string {
	var sb strings.Builder
	for _, item := range r.Items() {
		fmt.Fprintf(&sb, "- %s: %d/箱", item, r.unitsPerBox[item])
		if item == r.halfBoxItem {
			fmt.Fprintf(&sb, "（端数%d以上なら%d本箱を1つ使う）", HalfBoxCapacity, HalfBoxCapacity)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
