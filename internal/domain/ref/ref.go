// Package ref provides a tagged union for API fields that arrive either as
// a bare object ID or as a fully populated object, depending on whether the
// backend expanded the reference for that endpoint. Decoding normalizes both
// shapes into one type so call sites never type-sniff raw JSON.
package ref

import (
	"encoding/json"
	"fmt"
)

// Entity is any domain object addressable by its backend ID.
type Entity interface {
	EntityID() string
}

// Ref is either an unresolved ID or a resolved value of type T.
// The zero Ref is empty: not resolved and with an empty ID.
type Ref[T Entity] struct {
	id       string
	value    T
	resolved bool
}

// ByID returns an unresolved reference.
func ByID[T Entity](id string) Ref[T] {
	return Ref[T]{id: id}
}

// Resolved returns a reference carrying the full value.
func Resolved[T Entity](v T) Ref[T] {
	return Ref[T]{value: v, resolved: true}
}

// ID returns the referenced object's ID, whichever arm is populated.
func (r Ref[T]) ID() string {
	if r.resolved {
		return r.value.EntityID()
	}
	return r.id
}

// Value returns the resolved object, if the backend expanded the reference.
func (r Ref[T]) Value() (T, bool) {
	return r.value, r.resolved
}

// IsZero reports whether the reference is empty.
func (r Ref[T]) IsZero() bool {
	return !r.resolved && r.id == ""
}

// UnmarshalJSON accepts either a JSON string (the ID) or a JSON object
// (the expanded value).
func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty reference")
	}
	switch data[0] {
	case 'n': // null
		*r = Ref[T]{}
		return nil
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode reference id: %w", err)
		}
		*r = Ref[T]{id: id}
		return nil
	case '{':
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode reference value: %w", err)
		}
		*r = Ref[T]{value: v, resolved: true}
		return nil
	default:
		return fmt.Errorf("reference must be a string id or an object, got %q", data[0])
	}
}

// MarshalJSON writes the expanded value when resolved, the bare ID otherwise.
// Outbound payloads always send bare IDs, so services build payloads from
// ID() rather than marshaling a Ref directly.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.resolved {
		return json.Marshal(r.value)
	}
	return json.Marshal(r.id)
}

// IDs collects the IDs of a reference slice, in order.
func IDs[T Entity](refs []Ref[T]) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ID())
	}
	return out
}
