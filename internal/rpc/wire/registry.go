package wire

import (
	"time"

	"github.com/fedehr/fedehr/internal/record"
)

// TimeKind is the target type a registered field name is coerced to.
type TimeKind int

const (
	TimeKindDate TimeKind = iota
	TimeKindDateTime
)

// TimeFields maps field names to their date/time target type. Decoding
// applies the mapping by field name at any nesting depth; field names not
// registered here, and registered fields whose strings fail to parse, pass
// through as opaque strings so unrecognized or future fields never break a
// decode.
var TimeFields = map[string]TimeKind{
	"dob":        TimeKindDate,
	"onset":      TimeKindDate,
	"recordedAt": TimeKindDateTime,
	"deceasedAt": TimeKindDateTime,
}

// CoerceTime re-hydrates s into the registered target type for the given
// field name. The second return reports whether a coercion happened.
func CoerceTime(fieldName, s string) (interface{}, bool) {
	kind, ok := TimeFields[fieldName]
	if !ok {
		return nil, false
	}
	switch kind {
	case TimeKindDate:
		d, err := record.ParseDate(s)
		if err != nil {
			return nil, false
		}
		return d, true
	case TimeKindDateTime:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, false
		}
		return t, true
	}
	return nil, false
}
