package bytestore

import (
	"bytes"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns values into bytes and back. Encode appends to buf and returns
// the extended slice. Decode must accept exactly what Encode produced and
// should report malformed input as an error matching ErrDecode.
type Codec[T any] interface {
	Encode(buf []byte, v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// FixedCodec is a Codec whose every encoding is exactly Width bytes long.
type FixedCodec[T any] interface {
	Codec[T]
	Width() int
}

type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// IntCodec encodes integers as fixed-width little-endian values.
type IntCodec[T Integer] struct{}

func (IntCodec[T]) Width() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

func (c IntCodec[T]) Encode(buf []byte, v T) ([]byte, error) {
	switch c.Width() {
	case 1:
		return append(buf, byte(v)), nil
	case 2:
		return binary.LittleEndian.AppendUint16(buf, uint16(v)), nil
	case 4:
		return binary.LittleEndian.AppendUint32(buf, uint32(v)), nil
	default:
		return binary.LittleEndian.AppendUint64(buf, uint64(v)), nil
	}
}

func (c IntCodec[T]) Decode(data []byte) (T, error) {
	w := c.Width()
	if len(data) != w {
		return 0, dataErrf(data, 0, ErrDecode, nil, "integer needs %d bytes", w)
	}
	switch w {
	case 1:
		return T(data[0]), nil
	case 2:
		return T(binary.LittleEndian.Uint16(data)), nil
	case 4:
		return T(binary.LittleEndian.Uint32(data)), nil
	default:
		return T(binary.LittleEndian.Uint64(data)), nil
	}
}

type Float64Codec struct{}

func (Float64Codec) Width() int { return 8 }

func (Float64Codec) Encode(buf []byte, v float64) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v)), nil
}

func (Float64Codec) Decode(data []byte) (float64, error) {
	if len(data) != 8 {
		return 0, dataErrf(data, 0, ErrDecode, nil, "float64 needs 8 bytes")
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
}

type BoolCodec struct{}

func (BoolCodec) Width() int { return 1 }

func (BoolCodec) Encode(buf []byte, v bool) ([]byte, error) {
	if v {
		return append(buf, 1), nil
	}
	return append(buf, 0), nil
}

func (BoolCodec) Decode(data []byte) (bool, error) {
	if len(data) != 1 || data[0] > 1 {
		return false, dataErrf(data, 0, ErrDecode, nil, "invalid bool")
	}
	return data[0] == 1, nil
}

// StringCodec stores the raw UTF-8 bytes of a string.
type StringCodec struct{}

func (StringCodec) Encode(buf []byte, v string) ([]byte, error) {
	return append(buf, v...), nil
}

func (StringCodec) Decode(data []byte) (string, error) {
	return string(data), nil
}

// BytesCodec stores byte slices verbatim. Decode returns a copy.
type BytesCodec struct{}

func (BytesCodec) Encode(buf []byte, v []byte) ([]byte, error) {
	return append(buf, v...), nil
}

func (BytesCodec) Decode(data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}

// MsgPack encodes arbitrary values with MessagePack. Map keys are sorted so
// that equal values encode to equal bytes, which matters for hash table keys.
type MsgPack[T any] struct{}

func (MsgPack[T]) Encode(buf []byte, v T) ([]byte, error) {
	bb := bytesBuilder{buf}
	enc := msgpack.GetEncoder()
	enc.Reset(&bb)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return buf, err
	}
	return bb.Buf, nil
}

func (MsgPack[T]) Decode(data []byte) (T, error) {
	var v T
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err := dec.Decode(&v)
	msgpack.PutDecoder(dec)
	if err != nil {
		return v, dataErrf(data, 0, ErrDecode, err, "failed to decode msgpack into %T", v)
	}
	return v, nil
}
