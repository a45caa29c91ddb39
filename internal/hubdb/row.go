package hubdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Row is one record of a table as returned by GET .../rows/{id}.
//
//	{"id":12245072310,"createdAt":1566251682040,"path":null,"name":null,
//	 "values":{"1":4,"2":1569916800000},"childTableId":0,"isSoftEditable":false}
type Row struct {
	ID             int64                      `json:"id"`
	CreatedAt      int64                      `json:"createdAt"`
	Path           *string                    `json:"path"`
	Name           *string                    `json:"name"`
	Values         map[string]json.RawMessage `json:"values"`
	ChildTableID   int64                      `json:"childTableId"`
	IsSoftEditable bool                       `json:"isSoftEditable"`
}

// IntCell returns the integer stored in cellID. Numbers with a zero
// fractional part ("4.0") are accepted.
func (r *Row) IntCell(cellID string) (int64, error) {
	raw, ok := r.Values[cellID]
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: cell %s missing", ErrMalformedRow, cellID)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: cell %s: %v", ErrMalformedRow, cellID, err)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("%w: cell %s is not an integer: %s", ErrMalformedRow, cellID, n)
	}
	return int64(f), nil
}

// cellUpdate is the body of PUT .../cells/{cellId}.
type cellUpdate struct {
	Value any `json:"value"`
}
