package nbt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ComposeTag is the inverse of ParseTag: it emits
// [kind][2-byte BE name length][name bytes][payload]. An End tag composes to
// the single byte 0x00 with no name or payload.
func ComposeTag(t Tag) ([]byte, error) {
	if t.Kind == KindEnd {
		return []byte{0x00}, nil
	}

	payload, err := ComposePayload(t)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 1+2+len(t.Name)+len(payload))
	out = append(out, t.Kind)
	out = appendString(out, t.Name)
	out = append(out, payload...)
	return out, nil
}

// ComposePayload is the inverse of ParsePayload: it emits just the payload
// bytes for t, swapping host-order scalars back to big-endian.
func ComposePayload(t Tag) ([]byte, error) {
	switch t.Kind {
	case KindByte:
		return []byte{byte(t.Byte)}, nil

	case KindShort:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(t.Short))
		return buf[:], nil

	case KindInt:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(t.Int))
		return buf[:], nil

	case KindLong:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(t.Long))
		return buf[:], nil

	case KindFloat:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], math.Float32bits(t.Float))
		return buf[:], nil

	case KindDouble:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(t.Double))
		return buf[:], nil

	case KindString:
		return appendString(nil, t.Str), nil

	case KindByteArray:
		out := make([]byte, 4, 4+len(t.Bytes))
		binary.BigEndian.PutUint32(out, uint32(len(t.Bytes)))
		out = append(out, t.Bytes...)
		return out, nil

	case KindIntArray:
		out := make([]byte, 4, 4+len(t.Ints)*4)
		binary.BigEndian.PutUint32(out, uint32(len(t.Ints)))
		for _, v := range t.Ints {
			// Endian-swapped individually, per element — this is the step
			// the source's composeList leaves to composePayload's per-kind
			// switch, and the one most tempting to "optimize" away with a
			// single bulk binary.Write over the slice.
			var buf [4]byte
			binary.BigEndian.PutUint32(buf[:], uint32(v))
			out = append(out, buf[:]...)
		}
		return out, nil

	case KindList:
		return composeList(t)

	case KindCompound:
		return composeCompound(t)

	default:
		return nil, fmt.Errorf("%w: unknown tag kind %d", ErrInvalidHeader, t.Kind)
	}
}

// composeList writes [element kind][4-byte BE size] then each element's
// composed payload with no per-element headers. The size field comes from
// ListLen, not len(t.List), so a List of kind End with a nonzero on-disk
// size round-trips that size even though it carries no elements.
func composeList(t Tag) ([]byte, error) {
	out := make([]byte, 5)
	out[0] = t.ListKind
	binary.BigEndian.PutUint32(out[1:5], uint32(t.ListLen))

	for i, elem := range t.List {
		p, err := ComposePayload(elem)
		if err != nil {
			return nil, fmt.Errorf("list element %d: %w", i, err)
		}
		out = append(out, p...)
	}
	return out, nil
}

// composeCompound concatenates each child's composed tag, then appends a
// single End byte.
func composeCompound(t Tag) ([]byte, error) {
	var out []byte
	for i, child := range t.List {
		b, err := ComposeTag(child)
		if err != nil {
			return nil, fmt.Errorf("compound child %d (%q): %w", i, child.Name, err)
		}
		out = append(out, b...)
	}
	out = append(out, 0x00)
	return out, nil
}

func appendString(dst []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	dst = append(dst, lenBuf[:]...)
	if len(s) > 0 {
		dst = append(dst, s...)
	}
	return dst
}
