package kvdoc

import (
	"bytes"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects how records are serialized into store values.
type Encoding int

const (
	JSON Encoding = iota
	MsgPack

	defaultEncoding = JSON
)

func (enc Encoding) String() string {
	switch enc {
	case JSON:
		return "json"
	case MsgPack:
		return "msgpack"
	default:
		return fmt.Sprintf("invalid encoding %d", int(enc))
	}
}

func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return JSON, nil
	case "msgpack", "messagepack":
		return MsgPack, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q", s)
	}
}

// Marshal serializes v. MsgPack honors `json` struct tags so the same record
// type works with both encodings.
func (enc Encoding) Marshal(v any) ([]byte, error) {
	switch enc {
	case JSON:
		return json.Marshal(v)
	case MsgPack:
		var buf bytes.Buffer
		e := msgpack.GetEncoder()
		defer msgpack.PutEncoder(e)
		e.Reset(&buf)
		e.SetSortMapKeys(true)
		e.SetCustomStructTag("json")
		e.UseCompactInts(true)
		if err := e.Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		panic("unsupported encoding")
	}
}

func (enc Encoding) Unmarshal(data []byte, v any) error {
	switch enc {
	case JSON:
		return json.Unmarshal(data, v)
	case MsgPack:
		d := msgpack.GetDecoder()
		defer msgpack.PutDecoder(d)
		d.Reset(bytes.NewReader(data))
		d.SetCustomStructTag("json")
		return d.Decode(v)
	default:
		panic("unsupported encoding")
	}
}

// ParseValue decodes data into a Value, keeping object fields in stored order.
func (enc Encoding) ParseValue(data []byte) (Value, error) {
	switch enc {
	case JSON:
		return ParseJSON(data)
	case MsgPack:
		return ParseMsgpack(data)
	default:
		panic("unsupported encoding")
	}
}
