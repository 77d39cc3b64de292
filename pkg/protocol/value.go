package protocol

import (
	"sort"

	"github.com/vango-dev/livehooks/internal/errors"
)

// ValueType identifies the type of a hook value.
type ValueType uint8

const (
	ValueNull   ValueType = 0x00
	ValueBool   ValueType = 0x01
	ValueInt    ValueType = 0x02
	ValueFloat  ValueType = 0x03
	ValueString ValueType = 0x04
	ValueArray  ValueType = 0x05
	ValueObject ValueType = 0x06
)

// EncodeValue appends a hook value.
//
// Supported Go types: nil, bool, all int kinds, float32/64, string,
// []any, []string, []map[string]any, map[string]any. Anything else is
// encoded as null. Object keys are written in sorted order so equal
// payloads encode to equal bytes.
func EncodeValue(enc *Encoder, v any) {
	switch val := v.(type) {
	case nil:
		enc.WriteByte(byte(ValueNull))
	case bool:
		enc.WriteByte(byte(ValueBool))
		enc.WriteBool(val)
	case int:
		writeInt(enc, int64(val))
	case int8:
		writeInt(enc, int64(val))
	case int16:
		writeInt(enc, int64(val))
	case int32:
		writeInt(enc, int64(val))
	case int64:
		writeInt(enc, val)
	case uint:
		writeInt(enc, int64(val))
	case uint8:
		writeInt(enc, int64(val))
	case uint16:
		writeInt(enc, int64(val))
	case uint32:
		writeInt(enc, int64(val))
	case float32:
		enc.WriteByte(byte(ValueFloat))
		enc.WriteFloat64(float64(val))
	case float64:
		enc.WriteByte(byte(ValueFloat))
		enc.WriteFloat64(val)
	case string:
		enc.WriteByte(byte(ValueString))
		enc.WriteString(val)
	case []any:
		enc.WriteByte(byte(ValueArray))
		enc.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			EncodeValue(enc, item)
		}
	case []string:
		enc.WriteByte(byte(ValueArray))
		enc.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			EncodeValue(enc, item)
		}
	case []map[string]any:
		enc.WriteByte(byte(ValueArray))
		enc.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			EncodeValue(enc, item)
		}
	case map[string]any:
		enc.WriteByte(byte(ValueObject))
		writeObjectBody(enc, val)
	default:
		enc.WriteByte(byte(ValueNull))
	}
}

// EncodeObject appends an object body (count + pairs) without a type tag.
func EncodeObject(enc *Encoder, obj map[string]any) {
	writeObjectBody(enc, obj)
}

func writeInt(enc *Encoder, v int64) {
	enc.WriteByte(byte(ValueInt))
	enc.WriteSvarint(v)
}

func writeObjectBody(enc *Encoder, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	enc.WriteUvarint(uint64(len(keys)))
	for _, k := range keys {
		enc.WriteString(k)
		EncodeValue(enc, obj[k])
	}
}

// DecodeValue reads a hook value. Ints decode as int64, floats as
// float64, arrays as []any and objects as map[string]any.
func DecodeValue(d *Decoder) (any, error) {
	return decodeValue(d, 0)
}

// DecodeObject reads an object body written by EncodeObject.
func DecodeObject(d *Decoder) (map[string]any, error) {
	return decodeObjectBody(d, 0)
}

func decodeValue(d *Decoder, depth int) (any, error) {
	if depth > MaxValueDepth {
		return nil, errors.New(errors.CodeDepthExceeded).WithDetailf("limit %d", MaxValueDepth)
	}

	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	switch ValueType(tag) {
	case ValueNull:
		return nil, nil
	case ValueBool:
		return d.ReadBool()
	case ValueInt:
		return d.ReadSvarint()
	case ValueFloat:
		return d.ReadFloat64()
	case ValueString:
		return d.ReadString()
	case ValueArray:
		count, err := d.ReadCount()
		if err != nil {
			return nil, err
		}
		arr := make([]any, count)
		for i := range arr {
			if arr[i], err = decodeValue(d, depth+1); err != nil {
				return nil, err
			}
		}
		return arr, nil
	case ValueObject:
		return decodeObjectBody(d, depth)
	default:
		return nil, errors.New(errors.CodeInvalidValue).WithDetailf("value tag 0x%02x", tag)
	}
}

func decodeObjectBody(d *Decoder, depth int) (map[string]any, error) {
	count, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	obj := make(map[string]any, count)
	for i := 0; i < count; i++ {
		key, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		val, err := decodeValue(d, depth+1)
		if err != nil {
			return nil, err
		}
		obj[key] = val
	}
	return obj, nil
}
