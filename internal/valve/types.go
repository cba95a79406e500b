package valve

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// idKey is the JSON field holding the valve id.
const idKey = "id"

// Valve is a single addressable control unit.
//
// Attributes carries any extra fields of the stored record (name, room,
// calibration, ...) verbatim. They are flattened next to "id" in JSON, so
// {"id":1,"name":"kitchen"} round-trips unchanged.
type Valve struct {
	ID         int
	Attributes map[string]json.RawMessage
}

// MarshalJSON encodes the valve as a flat object.
func (v Valve) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(v.Attributes)+1)
	for k, raw := range v.Attributes {
		if k == idKey {
			continue
		}
		out[k] = raw
	}
	id, err := json.Marshal(v.ID)
	if err != nil {
		return nil, err
	}
	out[idKey] = id
	return json.Marshal(out)
}

// UnmarshalJSON decodes a flat object. The "id" field is required and must
// be an integer.
func (v *Valve) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValve, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: null record", ErrInvalidValve)
	}

	rawID, ok := fields[idKey]
	if !ok {
		return fmt.Errorf("%w: missing id", ErrInvalidValve)
	}
	var id int
	if err := json.Unmarshal(rawID, &id); err != nil {
		return fmt.Errorf("%w: id: %w", ErrInvalidValve, err)
	}
	delete(fields, idKey)

	v.ID = id
	v.Attributes = nil
	if len(fields) > 0 {
		v.Attributes = fields
	}
	return nil
}

// Clone returns a deep copy of the valve.
func (v Valve) Clone() Valve {
	c := Valve{ID: v.ID}
	if v.Attributes != nil {
		c.Attributes = make(map[string]json.RawMessage, len(v.Attributes))
		for k, raw := range v.Attributes {
			c.Attributes[k] = bytes.Clone(raw)
		}
	}
	return c
}
