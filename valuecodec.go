package kvdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

const maxValueDepth = 512

var errTooDeep = errors.New("value nesting too deep")

func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(nil)
}

func (v Value) appendJSON(buf []byte) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...), nil
	case KindBool:
		return strconv.AppendBool(buf, v.b), nil
	case KindNumber:
		if !isFinite(v.n) {
			return nil, fmt.Errorf("cannot encode %v as JSON", v.n)
		}
		raw, err := json.Marshal(v.n)
		if err != nil {
			return nil, err
		}
		return append(buf, raw...), nil
	case KindString:
		raw, err := json.Marshal(v.s)
		if err != nil {
			return nil, err
		}
		return append(buf, raw...), nil
	case KindArray:
		buf = append(buf, '[')
		for i, el := range v.arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = el.appendJSON(buf)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case KindObject:
		return v.obj.appendJSON(buf)
	default:
		panic("unreachable")
	}
}

func (obj *Object) MarshalJSON() ([]byte, error) {
	return obj.appendJSON(nil)
}

func (obj *Object) appendJSON(buf []byte) ([]byte, error) {
	buf = append(buf, '{')
	for i, f := range obj.Fields() {
		if i > 0 {
			buf = append(buf, ',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf = append(buf, name...)
		buf = append(buf, ':')
		buf, err = f.Value.appendJSON(buf)
		if err != nil {
			return nil, err
		}
	}
	return append(buf, '}'), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	val, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func (obj *Object) UnmarshalJSON(data []byte) error {
	val, err := ParseJSON(data)
	if err != nil {
		return err
	}
	o, ok := val.AsObject()
	if !ok {
		return fmt.Errorf("expected JSON object, got %v", val.Kind())
	}
	*obj = *o
	return nil
}

// ParseJSON decodes a single JSON value, keeping object fields in document order.
func ParseJSON(data []byte) (Value, error) {
	if !json.Valid(data) {
		return Value{}, fmt.Errorf("invalid JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec, 0)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("unexpected data after top-level JSON value")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder, depth int) (Value, error) {
	if depth > maxValueDepth {
		return Value{}, errTooDeep
	}
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}
	switch tok := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(tok), nil
	case string:
		return String(tok), nil
	case json.Number:
		return ValueOf(tok)
	case float64:
		return Number(tok), nil
	case json.Delim:
		switch tok {
		case '[':
			var arr []Value
			for dec.More() {
				el, err := decodeJSONValue(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, el)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindArray, arr: arr}, nil
		case '{':
			var fields []Field
			for dec.More() {
				nameTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				name, ok := nameTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("invalid object key %v", nameTok)
				}
				val, err := decodeJSONValue(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				fields = append(fields, Field{name, val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ObjectValue(NewObject(fields...)), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}

var (
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
)

func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindNumber:
		if v.n == math.Trunc(v.n) && math.Abs(v.n) < 1<<53 {
			return enc.EncodeInt(int64(v.n))
		}
		return enc.EncodeFloat64(v.n)
	case KindString:
		return enc.EncodeString(v.s)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.arr)); err != nil {
			return err
		}
		for _, el := range v.arr {
			if err := el.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case KindObject:
		fields := v.obj.Fields()
		if err := enc.EncodeMapLen(len(fields)); err != nil {
			return err
		}
		for _, f := range fields {
			if err := enc.EncodeString(f.Name); err != nil {
				return err
			}
			if err := f.Value.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	default:
		panic("unreachable")
	}
}

func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	val, err := decodeMsgpackValue(dec, 0)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// ParseMsgpack decodes a single msgpack value, keeping map entries in encoded order.
func ParseMsgpack(data []byte) (Value, error) {
	r := bytes.NewReader(data)
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)
	dec.ResetDict(r, nil)
	v, err := decodeMsgpackValue(dec, 0)
	if err != nil {
		return Value{}, err
	}
	if r.Len() != 0 {
		return Value{}, fmt.Errorf("unexpected %d bytes after top-level msgpack value", r.Len())
	}
	return v, nil
}

func decodeMsgpackValue(dec *msgpack.Decoder, depth int) (Value, error) {
	if depth > maxValueDepth {
		return Value{}, errTooDeep
	}
	c, err := dec.PeekCode()
	if err != nil {
		return Value{}, err
	}
	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return Value{}, err
		}
		fields := make([]Field, 0, max(n, 0))
		for j := 0; j < n; j++ {
			name, err := dec.DecodeString()
			if err != nil {
				return Value{}, err
			}
			val, err := decodeMsgpackValue(dec, depth+1)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{name, val})
		}
		return ObjectValue(NewObject(fields...)), nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return Value{}, err
		}
		arr := make([]Value, 0, max(n, 0))
		for j := 0; j < n; j++ {
			el, err := decodeMsgpackValue(dec, depth+1)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, el)
		}
		return Value{kind: KindArray, arr: arr}, nil
	}
	x, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return Value{}, err
	}
	if b, ok := x.([]byte); ok {
		return String(string(b)), nil
	}
	return ValueOf(x)
}
