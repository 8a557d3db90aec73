package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FieldValue is a tagged value reported by a source. Exactly one of the payloads is
// meaningful, as selected by Kind.
type FieldValue struct {
	Kind FieldKind
	Num  float64
	Str  string
	Time time.Time
}

// Number creates a numeric FieldValue.
func Number(v float64) FieldValue { return FieldValue{Kind: NumberKind, Num: v} }

// String creates a string FieldValue.
func String(s string) FieldValue { return FieldValue{Kind: StringKind, Str: s} }

// Timestamp creates a timestamp FieldValue.
func Timestamp(t time.Time) FieldValue { return FieldValue{Kind: TimestampKind, Time: t.UTC()} }

// Bool creates a numeric FieldValue of 1 or 0.
func Bool(b bool) FieldValue {
	if b {
		return Number(1)
	}
	return Number(0)
}

// IsZero reports whether the value carries no kind.
func (v FieldValue) IsZero() bool { return v.Kind == "" }

// IsNumber reports whether the value is numeric.
func (v FieldValue) IsNumber() bool { return v.Kind == NumberKind }

// Float returns the numeric payload and whether the value is numeric.
func (v FieldValue) Float() (float64, bool) {
	if v.Kind != NumberKind {
		return 0, false
	}
	return v.Num, true
}

// Equal reports whether two values have the same kind and payload.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case NumberKind:
		return v.Num == o.Num || (math.IsNaN(v.Num) && math.IsNaN(o.Num))
	case StringKind:
		return v.Str == o.Str
	case TimestampKind:
		return v.Time.Equal(o.Time)
	}
	return true
}

// Compare orders two values of the same kind. Strings compare lexicographically
// and timestamps chronologically.
func (v FieldValue) Compare(o FieldValue) int {
	switch v.Kind {
	case NumberKind:
		switch {
		case v.Num < o.Num:
			return -1
		case v.Num > o.Num:
			return 1
		}
	case StringKind:
		switch {
		case v.Str < o.Str:
			return -1
		case v.Str > o.Str:
			return 1
		}
	case TimestampKind:
		return v.Time.Compare(o.Time)
	}
	return 0
}

// String renders the payload for tables and CSV output.
func (v FieldValue) String() string {
	switch v.Kind {
	case NumberKind:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case StringKind:
		return v.Str
	case TimestampKind:
		return v.Time.Format(time.RFC3339)
	}
	return ""
}

// ParseFieldValue classifies a raw string the way batch files are decoded.
func ParseFieldValue(raw string) FieldValue {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return Timestamp(t)
	}
	return String(raw)
}

// UnmarshalYAML decodes a scalar node into a FieldValue.
func (v *FieldValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("field value must be a scalar, got node kind %d", node.Kind)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Number(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Bool(b)
	case "!!timestamp":
		var t time.Time
		if err := node.Decode(&t); err != nil {
			return err
		}
		*v = Timestamp(t)
	case "!!null":
		return fmt.Errorf("field value must not be null")
	default:
		*v = ParseFieldValue(node.Value)
	}
	return nil
}

// MarshalYAML encodes the payload as a plain scalar.
func (v FieldValue) MarshalYAML() (any, error) {
	switch v.Kind {
	case NumberKind:
		return v.Num, nil
	case TimestampKind:
		return v.Time, nil
	}
	return v.Str, nil
}

// UnmarshalJSON decodes a JSON scalar into a FieldValue.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case float64:
		*v = Number(x)
	case bool:
		*v = Bool(x)
	case string:
		*v = ParseFieldValue(x)
	case nil:
		return fmt.Errorf("field value must not be null")
	default:
		return fmt.Errorf("field value must be a scalar, got %T", raw)
	}
	return nil
}

// MarshalJSON encodes the payload as a plain JSON scalar.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case NumberKind:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return json.Marshal(v.String())
		}
		return json.Marshal(v.Num)
	case TimestampKind:
		return json.Marshal(v.Time.Format(time.RFC3339Nano))
	}
	return json.Marshal(v.Str)
}
