// Package wire defines the fixed RPC message schema and the generic
// structured Value that carries the schema-flexible sections of a patient
// document across it. New fields added to the document model ride inside
// Values and need no wire-schema change.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates the Value union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindStruct
	KindList
)

// Value is a self-describing container: null, bool, number, string, an
// ordered struct of named Values, or a list of Values. Struct fields keep
// their insertion order through marshal/unmarshal.
type Value struct {
	Kind   Kind
	Bool   bool
	Num    float64
	Str    string
	Fields []Field
	Items  []*Value
}

// Field is a single named entry of a struct Value.
type Field struct {
	Key   string
	Value *Value
}

func NullValue() *Value              { return &Value{Kind: KindNull} }
func BoolValue(b bool) *Value        { return &Value{Kind: KindBool, Bool: b} }
func NumberValue(n float64) *Value   { return &Value{Kind: KindNumber, Num: n} }
func StringValue(s string) *Value    { return &Value{Kind: KindString, Str: s} }
func ListValue(items ...*Value) *Value {
	return &Value{Kind: KindList, Items: items}
}

func StructValue(fields ...Field) *Value {
	return &Value{Kind: KindStruct, Fields: fields}
}

// Field returns the named field of a struct Value, or nil when the Value is
// not a struct or the field is absent.
func (v *Value) Field(key string) *Value {
	if v == nil || v.Kind != KindStruct {
		return nil
	}
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// SetField replaces the named field or appends it, preserving order.
func (v *Value) SetField(key string, val *Value) {
	for i, f := range v.Fields {
		if f.Key == key {
			v.Fields[i].Value = val
			return
		}
	}
	v.Fields = append(v.Fields, Field{Key: key, Value: val})
}

// StringVal returns the string payload and whether the Value is a string.
func (v *Value) StringVal() (string, bool) {
	if v == nil || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// FromJSON parses a JSON document into a Value tree.
func FromJSON(data []byte) (*Value, error) {
	v := &Value{}
	if err := v.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Value) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindString:
		return json.Marshal(v.Str)
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			raw, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindStruct:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, f := range v.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			raw, err := f.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("wire: unknown value kind %d", v.Kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	parsed, err := parseValue(dec)
	if err != nil {
		return err
	}
	*v = *parsed
	return nil
}

func parseValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("wire: parse value: %w", err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := &Value{Kind: KindStruct}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("wire: parse object key: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("wire: object key is %T, want string", keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				v.Fields = append(v.Fields, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, fmt.Errorf("wire: parse object end: %w", err)
			}
			return v, nil
		case '[':
			v := &Value{Kind: KindList}
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				v.Items = append(v.Items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, fmt.Errorf("wire: parse array end: %w", err)
			}
			return v, nil
		}
		return nil, fmt.Errorf("wire: unexpected delimiter %v", t)
	case bool:
		return BoolValue(t), nil
	case float64:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	case nil:
		return NullValue(), nil
	}
	return nil, fmt.Errorf("wire: unexpected token %T", tok)
}
