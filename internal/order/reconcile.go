package order

import (
	"fmt"
	"strings"

	"github.com/kojimafarm/orderscan/internal/recognition"
)

// Reconciler turns loosely-typed candidate lines into canonical order
// lines. It is the single coercion point: name normalization, numeric
// coercion, and derived-field fill-in all happen here, and nothing mutates
// a Line afterwards.
type Reconciler struct {
	items  *Normalizer
	stores *StoreBook
	rules  *Rules
}

// NewReconciler creates a Reconciler. items may be nil, selecting the legacy
// regex fallback normalizer; stores may be nil, keeping store text as-is.
func NewReconciler(items *Normalizer, stores *StoreBook, rules *Rules) *Reconciler {
	return &Reconciler{items: items, stores: stores, rules: rules}
}

// Reconcile validates and completes candidate lines. Output order matches
// input order; no line is ever dropped, warnings mark the ones needing
// manual review.
func (r *Reconciler) Reconcile(candidates []recognition.CandidateLine) ([]Line, []Warning) {
	lines := make([]Line, 0, len(candidates))
	var warnings []Warning

	for _, cand := range candidates {
		index := len(lines)
		line, lineWarnings := r.reconcileOne(cand, index)
		lines = append(lines, line)
		warnings = append(warnings, lineWarnings...)
	}

	return lines, warnings
}

func (r *Reconciler) reconcileOne(cand recognition.CandidateLine, index int) (Line, []Warning) {
	var warnings []Warning
	warn := func(format string, args ...any) {
		warnings = append(warnings, Warning{Index: index, Message: fmt.Sprintf(format, args...)})
	}

	item := r.normalizeItem(cand.Item)
	if item == "" {
		warn("line has no identifiable item")
	}

	store := r.validateStore(cand.Store, warn)

	line := Line{
		Store: store,
		Item:  item,
		Spec:  strings.TrimSpace(cand.Spec),
	}

	unit := cand.Unit.Int()
	boxes := cand.Boxes.Int()
	remainder := cand.Remainder.Int()
	total := cand.Total.Int()

	switch {
	case unit != 0 && boxes != 0:
		// Explicit split from the source; trusted as-is.
		line.Unit = unit
		line.Boxes = boxes
		line.Remainder = remainder

	case !cand.Total.IsZero():
		packing := r.rules.BoxesAndRemainder(total, item)
		line.Unit = packing.Unit
		line.Boxes = packing.Boxes
		line.Remainder = packing.Remainder
		line.HalfBox = packing.HalfBox
		if packing.Unit == 0 && total > 0 {
			warn("no packing rule for item %q, quantity %d carried as loose units", item, total)
		}

	case boxes != 0 && r.rules.UnitFor(item) != 0:
		// Box count without a unit (typical of OCR "N箱" lines): the
		// rule table supplies the unit.
		line.Unit = r.rules.UnitFor(item)
		line.Boxes = boxes
		line.Remainder = remainder

	default:
		warn("line has no usable quantity, emitted with zero values")
	}

	return line, warnings
}

func (r *Reconciler) normalizeItem(raw string) string {
	if r.items != nil {
		return r.items.Normalize(raw)
	}
	return FallbackNormalize(raw)
}

func (r *Reconciler) validateStore(raw string, warn func(string, ...any)) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if r.stores == nil {
		return raw
	}
	canonical, ok := r.stores.Validate(raw)
	if !ok {
		// Keep the raw text so the line still renders somewhere useful.
		warn("unrecognized store %q, keeping raw text", raw)
		return raw
	}
	return canonical
}
