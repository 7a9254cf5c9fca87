package order

import (
	"strings"
)

// AliasTable maps canonical names to the textual variants seen for them on
// order forms. Unseen names are auto-learned so a lookup-then-learn sequence
// always produces some canonical name. Entries keep registration order,
// which also serves as the deterministic tie-break for nearest-match
// merging.
type AliasTable struct {
	variants map[string][]string
	order    []string
}

// NewAliasTable creates an empty table.
func NewAliasTable() *AliasTable {
	return &AliasTable{variants: make(map[string][]string)}
}

// AddEntry registers a canonical name. Re-adding is a no-op.
func (t *AliasTable) AddEntry(canonical string) {
	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return
	}
	if _, ok := t.variants[canonical]; ok {
		return
	}
	t.variants[canonical] = nil
	t.order = append(t.order, canonical)
}

// AddVariant records a textual variant under a canonical name, registering
// the canonical name if needed.
func (t *AliasTable) AddVariant(canonical, variant string) {
	canonical = strings.TrimSpace(canonical)
	variant = strings.TrimSpace(variant)
	if canonical == "" || variant == "" || canonical == variant {
		t.AddEntry(canonical)
		return
	}
	t.AddEntry(canonical)
	for _, v := range t.variants[canonical] {
		if v == variant {
			return
		}
	}
	t.variants[canonical] = append(t.variants[canonical], variant)
}

// Remove deletes a canonical entry and its variants.
func (t *AliasTable) Remove(canonical string) {
	if _, ok := t.variants[canonical]; !ok {
		return
	}
	delete(t.variants, canonical)
	for i, name := range t.order {
		if name == canonical {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Entries returns the canonical names in registration order.
func (t *AliasTable) Entries() []string {
	return append([]string(nil), t.order...)
}

// Variants returns the recorded variants for a canonical name.
func (t *AliasTable) Variants(canonical string) []string {
	return append([]string(nil), t.variants[canonical]...)
}

// Lookup resolves text to a canonical name: exact match on a canonical name
// or variant first, then substring containment in either direction.
func (t *AliasTable) Lookup(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	for _, canonical := range t.order {
		if canonical == text {
			return canonical, true
		}
		for _, v := range t.variants[canonical] {
			if v == text {
				return canonical, true
			}
		}
	}

	for _, canonical := range t.order {
		if strings.Contains(text, canonical) || strings.Contains(canonical, text) {
			return canonical, true
		}
		for _, v := range t.variants[canonical] {
			if strings.Contains(text, v) || strings.Contains(v, text) {
				return canonical, true
			}
		}
	}

	return "", false
}

// Match reports whether any known name or variant appears inside text. This
// is the one-directional containment check the OCR line parser needs; unlike
// Lookup it never treats text as an abbreviation of a longer name.
func (t *AliasTable) Match(text string) (string, bool) {
	for _, canonical := range t.order {
		if strings.Contains(text, canonical) {
			return canonical, true
		}
		for _, v := range t.variants[canonical] {
			if strings.Contains(text, v) {
				return canonical, true
			}
		}
	}
	return "", false
}

// Learn registers an unseen name and returns its canonical form. When an
// existing entry shares a common substring of at least minOverlap runes, the
// text is merged under it as a variant; the longest overlap wins and ties go
// to the earlier-registered entry. Otherwise the text becomes its own
// canonical entry. Learn never fails on non-empty input.
func (t *AliasTable) Learn(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if canonical, ok := t.Lookup(text); ok {
		return canonical
	}

	const minOverlap = 2
	best := ""
	bestScore := 0
	for _, canonical := range t.order {
		score := commonRunLength(canonical, text)
		for _, v := range t.variants[canonical] {
			if s := commonRunLength(v, text); s > score {
				score = s
			}
		}
		if score > bestScore {
			best = canonical
			bestScore = score
		}
	}

	if bestScore >= minOverlap {
		t.AddVariant(best, text)
		return best
	}

	t.AddEntry(text)
	return text
}

// commonRunLength returns the length in runes of the longest common
// substring of a and b.
func commonRunLength(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	longest := 0
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > longest {
					longest = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return longest
}

// Normalizer maps noisy item text to canonical item names via an alias
// table, auto-learning names it has never seen.
type Normalizer struct {
	table *AliasTable
}

// NewNormalizer creates a Normalizer over the given item alias table.
func NewNormalizer(table *AliasTable) *Normalizer {
	return &Normalizer{table: table}
}

// Normalize returns the canonical item name for raw text. Empty input
// returns ""; callers treat that as "unidentified", not an error. Non-empty
// input always yields a non-empty canonical name.
func (n *Normalizer) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if canonical, ok := n.table.Lookup(raw); ok {
		return canonical
	}
	return n.table.Learn(raw)
}

// StoreBook validates store names against the known-store table. Unlike
// items, store auto-learn can be disabled, in which case unknown stores are
// reported as a miss and the caller keeps the raw text for display.
type StoreBook struct {
	table     *AliasTable
	autoLearn bool
}

// NewStoreBook creates a StoreBook over the given store alias table.
func NewStoreBook(table *AliasTable, autoLearn bool) *StoreBook {
	return &StoreBook{table: table, autoLearn: autoLearn}
}

// Validate resolves raw text to a known store name. The boolean result is
// false only when the store is unknown and auto-learn is disabled.
func (s *StoreBook) Validate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if canonical, ok := s.table.Lookup(raw); ok {
		return canonical, true
	}
	if !s.autoLearn {
		return "", false
	}
	return s.table.Learn(raw), true
}
