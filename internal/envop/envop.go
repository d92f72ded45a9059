// Package envop implements the environment-operation value of spec §3 and
// §9's "polymorphism over env values" note: a tagged sum of Set, Prepend,
// Append, and Unset, decoded from either a bare JSON string (shorthand for
// Set) or an object with op/value/separator fields.
package envop

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	Set     Kind = "set"
	Prepend Kind = "prepend"
	Append  Kind = "append"
	Unset   Kind = "unset"
)

const defaultSeparator = ":"

// Value is one environment-operation instruction targeting a single key.
type Value struct {
	Kind      Kind
	Value     string
	Separator string
}

// UnmarshalJSON accepts a bare string (⇒ Set) or an object
// {op, value, separator}. Any other shape is an error; callers surface it
// as host_env_parse_error or a record-load failure depending on source.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Value{Kind: Set, Value: s}
		return nil
	}

	var obj struct {
		Op        string `json:"op"`
		Value     string `json:"value"`
		Separator string `json:"separator"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("envop: value is neither a string nor an operation object: %w", err)
	}

	kind := Kind(obj.Op)
	switch kind {
	case Set, Prepend, Append, Unset:
	case "":
		return fmt.Errorf("envop: missing op")
	default:
		return fmt.Errorf("envop: unknown op %q", obj.Op)
	}

	sep := obj.Separator
	if sep == "" {
		sep = defaultSeparator
	}

	*v = Value{Kind: kind, Value: obj.Value, Separator: sep}
	return nil
}

// MarshalJSON always emits the object form {op, value, separator}, so a
// decoded-then-reencoded document round-trips its operation kind exactly
// even though the bare-string shorthand is accepted on input.
func (v Value) MarshalJSON() ([]byte, error) {
	sep := v.Separator
	if sep == "" {
		sep = defaultSeparator
	}
	return json.Marshal(struct {
		Op        string `json:"op"`
		Value     string `json:"value"`
		Separator string `json:"separator"`
	}{Op: string(v.Kind), Value: v.Value, Separator: sep})
}

// Apply computes the new value for a key given its current value (ok
// reports whether the key was already present) and this operation.
// Returns the new value and whether the key remains present afterward.
func (v Value) Apply(current string, currentOK bool) (newValue string, present bool) {
	switch v.Kind {
	case Set:
		return v.Value, true
	case Unset:
		return "", false
	case Prepend:
		if !currentOK || current == "" {
			return v.Value, true
		}
		return v.Value + v.Separator + current, true
	case Append:
		if !currentOK || current == "" {
			return v.Value, true
		}
		return current + v.Separator + v.Value, true
	default:
		return current, currentOK
	}
}
