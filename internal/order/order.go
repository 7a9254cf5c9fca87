package order

// Line is a reconciled order line, the canonical unit of output. After
// reconciliation it is never mutated; renderers and aggregators consume it
// read-only. String fields default to "" and numeric fields to 0 so the
// downstream label renderer never sees a null.
type Line struct {
	Store string `json:"store"`
	Item  string `json:"item"`
	// Spec is the free-text pack descriptor as read from the form, kept
	// for display only.
	Spec      string `json:"spec"`
	Unit      int    `json:"unit"`
	Boxes     int    `json:"boxes"`
	Remainder int    `json:"remainder"`
	// HalfBox marks use of the intermediate 50-unit box, which exists
	// only for loose cucumber.
	HalfBox bool `json:"half_box"`
}

// TotalQuantity reports the arithmetic total the line represents:
// unit*boxes + remainder, plus the half-box capacity when one is in use.
func (l Line) TotalQuantity() int {
	total := l.Unit*l.Boxes + l.Remainder
	if l.HalfBox {
		total += HalfBoxCapacity
	}
	return total
}

// BoxCount reports how many physical boxes the line ships in: full boxes,
// the half box if used, and one loose box when a remainder is left over.
// This is the per-store figure printed on the label.
func (l Line) BoxCount() int {
	count := l.Boxes
	if l.HalfBox {
		count++
	}
	if l.Remainder > 0 {
		count++
	}
	return count
}

// Warning records a data-quality issue found during reconciliation. Warnings
// never block the pipeline; the affected line is still emitted with
// best-effort values.
type Warning struct {
	// Index is the position of the affected line in the batch output.
	Index   int    `json:"index"`
	Message string `json:"message"`
}
