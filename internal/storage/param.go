package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ParamType tags the wire representation of a strategy parameter value.
type ParamType string

const (
	ParamInt   ParamType = "int"
	ParamFloat ParamType = "float"
	ParamStr   ParamType = "str"
	ParamJSON  ParamType = "json"
)

// Valid reports whether the tag is one of the enumerated values.
func (t ParamType) Valid() bool {
	return t == ParamInt || t == ParamFloat || t == ParamStr || t == ParamJSON
}

// ParamValue is a tagged strategy parameter value. Exactly the field matching
// Type is meaningful; JSON-typed values keep their canonical encoding in Raw.
type ParamValue struct {
	Type  ParamType
	Int   int64
	Float float64
	Str   string
	Raw   json.RawMessage
}

// IntParam builds an int-typed value.
func IntParam(v int64) ParamValue { return ParamValue{Type: ParamInt, Int: v} }

// FloatParam builds a float-typed value.
func FloatParam(v float64) ParamValue { return ParamValue{Type: ParamFloat, Float: v} }

// StrParam builds a str-typed value.
func StrParam(v string) ParamValue { return ParamValue{Type: ParamStr, Str: v} }

// JSONParam builds a json-typed value from any JSON-encodable Go value.
func JSONParam(v any) (ParamValue, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return ParamValue{}, fmt.Errorf("encoding json parameter: %w", err)
	}
	return ParamValue{Type: ParamJSON, Raw: raw}, nil
}

// InferParam maps a dynamically-typed value onto the tag system: booleans,
// slices and maps become json; integer kinds become int; floats become float;
// strings stay str; everything else falls back to its string form.
func InferParam(v any) ParamValue {
	switch x := v.(type) {
	case bool, []any, map[string]any:
		p, err := JSONParam(x)
		if err == nil {
			return p
		}
		return StrParam(fmt.Sprint(x))
	case int:
		return IntParam(int64(x))
	case int32:
		return IntParam(int64(x))
	case int64:
		return IntParam(x)
	case float32:
		return FloatParam(float64(x))
	case float64:
		return FloatParam(x)
	case string:
		return StrParam(x)
	case json.RawMessage:
		return ParamValue{Type: ParamJSON, Raw: x}
	default:
		return StrParam(fmt.Sprint(x))
	}
}

// Encode renders the value and its tag for storage in a (value, type) column
// pair or document field.
func (p ParamValue) Encode() (value string, typ ParamType) {
	switch p.Type {
	case ParamInt:
		return strconv.FormatInt(p.Int, 10), ParamInt
	case ParamFloat:
		return strconv.FormatFloat(p.Float, 'g', -1, 64), ParamFloat
	case ParamJSON:
		return string(p.Raw), ParamJSON
	default:
		return p.Str, ParamStr
	}
}

// DecodeParam parses a stored (value, type) pair back into a tagged value.
// An unparseable int or float degrades to str rather than erroring, so one
// bad row cannot make a whole parameter set unreadable.
func DecodeParam(value string, typ ParamType) ParamValue {
	switch typ {
	case ParamInt:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return IntParam(n)
		}
	case ParamFloat:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return FloatParam(f)
		}
	case ParamJSON:
		if json.Valid([]byte(value)) {
			return ParamValue{Type: ParamJSON, Raw: json.RawMessage(value)}
		}
	}
	return StrParam(value)
}

// Equal reports semantic equality. Values of different tags are never equal;
// json values compare by compacted encoding.
func (p ParamValue) Equal(o ParamValue) bool {
	if p.Type != o.Type {
		return false
	}
	switch p.Type {
	case ParamInt:
		return p.Int == o.Int
	case ParamFloat:
		return p.Float == o.Float
	case ParamJSON:
		return compactJSON(p.Raw) == compactJSON(o.Raw)
	default:
		return p.Str == o.Str
	}
}

func compactJSON(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// paramDoc is the document form used by the file tier and by JSON logging.
type paramDoc struct {
	Type  ParamType       `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value as {"type": ..., "value": ...} with the value
// in its native JSON shape.
func (p ParamValue) MarshalJSON() ([]byte, error) {
	var val json.RawMessage
	switch p.Type {
	case ParamInt:
		val = json.RawMessage(strconv.FormatInt(p.Int, 10))
	case ParamFloat:
		val = json.RawMessage(strconv.FormatFloat(p.Float, 'g', -1, 64))
	case ParamJSON:
		val = p.Raw
	default:
		enc, err := json.Marshal(p.Str)
		if err != nil {
			return nil, err
		}
		val = enc
	}
	return json.Marshal(paramDoc{Type: p.Type, Value: val})
}

// UnmarshalJSON decodes the {"type", "value"} document form.
func (p *ParamValue) UnmarshalJSON(data []byte) error {
	var doc paramDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding parameter document: %w", err)
	}
	switch doc.Type {
	case ParamInt:
		var n int64
		if err := json.Unmarshal(doc.Value, &n); err != nil {
			return fmt.Errorf("decoding int parameter: %w", err)
		}
		*p = IntParam(n)
	case ParamFloat:
		var f float64
		if err := json.Unmarshal(doc.Value, &f); err != nil {
			return fmt.Errorf("decoding float parameter: %w", err)
		}
		*p = FloatParam(f)
	case ParamJSON:
		*p = ParamValue{Type: ParamJSON, Raw: doc.Value}
	case ParamStr:
		var s string
		if err := json.Unmarshal(doc.Value, &s); err != nil {
			return fmt.Errorf("decoding str parameter: %w", err)
		}
		*p = StrParam(s)
	default:
		return Invalidf("unknown parameter type %q", doc.Type)
	}
	return nil
}
