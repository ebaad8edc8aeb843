package thing

import (
	"encoding/json"
	"strconv"
)

// Well-known field names the server manages on a thing.
// Everything else in the record is opaque client data.
const (
	// FieldID is the server-assigned identifier on most backends.
	FieldID = "id"

	// FieldCID is the identifier assigned by the docstore backend.
	// Clients may address a thing by either field.
	FieldCID = "cid"

	// FieldWho records the authenticated identity that created or last
	// replaced the thing.
	FieldWho = "who"
)

// Thing is the opaque, client-supplied record the API manages: a
// mapping from field name to JSON-compatible value, augmented by the
// server with an identifier and a creator identity.
type Thing map[string]any

// ID returns the thing's identifier, checking FieldID then FieldCID.
// JSON round-trips turn numbers into float64 and form bodies carry
// numeric strings, so all three forms are accepted.
func (t Thing) ID() (int64, bool) {
	if id, ok := NumericID(t[FieldID]); ok {
		return id, true
	}
	return NumericID(t[FieldCID])
}

// SetID stamps the server-assigned identifier onto the thing.
func (t Thing) SetID(id int64) {
	t[FieldID] = id
}

// Who returns the recorded creator identity, if any.
func (t Thing) Who() string {
	who, _ := t[FieldWho].(string)
	return who
}

// SetWho stamps the authenticated identity onto the thing.
func (t Thing) SetWho(username string) {
	t[FieldWho] = username
}

// Clone returns a shallow copy of the thing.
func (t Thing) Clone() Thing {
	c := make(Thing, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// NumericID coerces a JSON-compatible value to an identifier.
// Accepts integers, floats with integral values, json.Number, and
// strings of decimal digits.
func NumericID(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
