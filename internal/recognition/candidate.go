package recognition

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Number is a loosely-typed numeric field. AI models emit quantities
// inconsistently as JSON numbers ("boxes": 3) or strings ("boxes": "3箱"),
// so the raw token is kept as a string and coerced at reconciliation time.
type Number string

// UnmarshalJSON accepts a JSON string, number or null.
func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*n = Number(strings.TrimSpace(str))
		return nil
	}
	*n = Number(s)
	return nil
}

// Int coerces the raw token to a non-negative integer. Non-numeric characters
// (units like 箱 or 本, commas, stray OCR noise) are stripped; an unparsable
// token coerces to 0.
func (n Number) Int() int {
	var b strings.Builder
	for _, r := range string(n) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	v, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return v
}

// IsZero reports whether no numeric value was captured at all.
func (n Number) IsZero() bool {
	return strings.TrimSpace(string(n)) == ""
}

// CandidateLine is a pre-reconciliation order line as produced by a
// recognition strategy. Fields are optional; a source that could only
// recover a gross quantity sets Total and leaves the box split empty.
type CandidateLine struct {
	Store     string `json:"store"`
	Item      string `json:"item"`
	Spec      string `json:"spec"`
	Unit      Number `json:"unit"`
	Boxes     Number `json:"boxes"`
	Remainder Number `json:"remainder"`
	Total     Number `json:"total"`
}

// UnmarshalJSON tolerates "count" as an alias for "total", which some model
// responses use interchangeably.
func (c *CandidateLine) UnmarshalJSON(data []byte) error {
	type alias CandidateLine
	aux := struct {
		*alias
		Count Number `json:"count"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.Total.IsZero() && !aux.Count.IsZero() {
		c.Total = aux.Count
	}
	return nil
}
