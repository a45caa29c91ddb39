// Package contact reads the few fields this service needs out of a CRM
// contact record. The record shape is owned by the CRM; lookups here never
// fail with an error, they report whether the value was there.
package contact

import (
	"bytes"
	"encoding/json"
)

// SlotPropertyPath is where a workflow-posted contact carries the id of the
// volunteer slot row the contact signed up for.
var SlotPropertyPath = []string{"properties", "volunteer_slot_date_time_id", "value"}

// Status tells a caller how far a path lookup got.
type Status int

const (
	// Present means the value exists and is usable.
	Present Status = iota
	// Absent means a container on the path is missing or null, or the
	// document is not JSON at all.
	Absent
	// Invalid means the containers exist but the value is missing, null,
	// false, zero, empty or of an unusable type.
	Invalid
)

func (s Status) String() string {
	switch s {
	case Present:
		return "present"
	case Absent:
		return "absent"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// Record is a decoded contact payload.
type Record struct {
	doc any
}

// Parse decodes body into a Record. A body that is not valid JSON yields a
// Record on which every lookup reports Absent.
func Parse(body []byte) Record {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Record{}
	}
	return Record{doc: doc}
}

// Lookup walks path through nested objects. Stepping into a missing or null
// value makes the result Absent. A non-object value does not stop the walk;
// any key read from it is simply missing, so a scalar sitting where the last
// container should be yields Invalid rather than Absent.
func (r Record) Lookup(path ...string) (any, Status) {
	if len(path) == 0 {
		return nil, Absent
	}
	cur := r.doc
	for _, key := range path {
		if cur == nil {
			return nil, Absent
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			cur = nil
			continue
		}
		cur = obj[key]
	}
	if cur == nil {
		return nil, Invalid
	}
	return cur, Present
}

// SlotRowID extracts the slot row id. Numbers and numeric strings are both
// accepted; anything that is not a positive integer is Invalid. The id is
// returned exactly as the caller sent it.
func (r Record) SlotRowID() (string, Status) {
	v, st := r.Lookup(SlotPropertyPath...)
	if st != Present {
		return "", st
	}
	var raw string
	switch t := v.(type) {
	case json.Number:
		raw = t.String()
	case string:
		raw = t
	default:
		return "", Invalid
	}
	if !isPositiveInteger(raw) {
		return "", Invalid
	}
	return raw, Present
}

// isPositiveInteger reports whether s is a base-10 integer greater than zero.
func isPositiveInteger(s string) bool {
	if s == "" {
		return false
	}
	nonZero := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		if c != '0' {
			nonZero = true
		}
	}
	return nonZero
}
