package nbt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ParseTag reads one named tag from the head of b and returns it along with
// the number of bytes consumed, so a caller walking a larger buffer can
// advance its own cursor. An End tag has no name and consumes exactly one
// byte.
func ParseTag(b []byte) (Tag, int, error) {
	if len(b) < 1 {
		return Tag{}, 0, fmt.Errorf("%w: empty buffer, expected tag kind byte", ErrInvalidHeader)
	}
	kind := b[0]
	pos := 1

	if kind == KindEnd {
		return Tag{Kind: KindEnd}, pos, nil
	}

	name, n, err := readString(b[pos:])
	if err != nil {
		return Tag{}, 0, fmt.Errorf("%w: tag name: %v", ErrInvalidHeader, err)
	}
	pos += n

	tag, n, err := ParsePayload(kind, b[pos:])
	if err != nil {
		return Tag{}, 0, err
	}
	tag.Name = name
	pos += n

	return tag, pos, nil
}

// ParsePayload parses the payload for a tag of the given kind — the bytes
// after any kind byte and name. It is exported so a caller already holding a
// bare element kind (as inside a List) can parse one element directly.
func ParsePayload(kind byte, b []byte) (Tag, int, error) {
	switch kind {
	case KindByte:
		if len(b) < 1 {
			return Tag{}, 0, shortRead("byte", 1, len(b))
		}
		return Tag{Kind: kind, Byte: int8(b[0])}, 1, nil

	case KindShort:
		if len(b) < 2 {
			return Tag{}, 0, shortRead("short", 2, len(b))
		}
		return Tag{Kind: kind, Short: int16(binary.BigEndian.Uint16(b))}, 2, nil

	case KindInt:
		if len(b) < 4 {
			return Tag{}, 0, shortRead("int", 4, len(b))
		}
		return Tag{Kind: kind, Int: int32(binary.BigEndian.Uint32(b))}, 4, nil

	case KindLong:
		if len(b) < 8 {
			return Tag{}, 0, shortRead("long", 8, len(b))
		}
		return Tag{Kind: kind, Long: int64(binary.BigEndian.Uint64(b))}, 8, nil

	case KindFloat:
		if len(b) < 4 {
			return Tag{}, 0, shortRead("float", 4, len(b))
		}
		bits := binary.BigEndian.Uint32(b)
		return Tag{Kind: kind, Float: math.Float32frombits(bits)}, 4, nil

	case KindDouble:
		if len(b) < 8 {
			return Tag{}, 0, shortRead("double", 8, len(b))
		}
		bits := binary.BigEndian.Uint64(b)
		return Tag{Kind: kind, Double: math.Float64frombits(bits)}, 8, nil

	case KindString:
		s, n, err := readString(b)
		if err != nil {
			return Tag{}, 0, fmt.Errorf("%w: string payload: %v", ErrInvalidHeader, err)
		}
		return Tag{Kind: kind, Str: s}, n, nil

	case KindByteArray:
		n32, n, err := readLen(b)
		if err != nil {
			return Tag{}, 0, err
		}
		if len(b) < n+int(n32) {
			return Tag{}, 0, shortRead("byte array body", int(n32), len(b)-n)
		}
		data := make([]byte, n32)
		copy(data, b[n:n+int(n32)])
		return Tag{Kind: kind, Bytes: data}, n + int(n32), nil

	case KindIntArray:
		n32, n, err := readLen(b)
		if err != nil {
			return Tag{}, 0, err
		}
		need := int(n32) * 4
		if len(b) < n+need {
			return Tag{}, 0, shortRead("int array body", need, len(b)-n)
		}
		ints := make([]int32, n32)
		for i := range ints {
			off := n + i*4
			ints[i] = int32(binary.BigEndian.Uint32(b[off : off+4]))
		}
		return Tag{Kind: kind, Ints: ints}, n + need, nil

	case KindList:
		return parseList(b)

	case KindCompound:
		return parseCompound(b)

	default:
		return Tag{}, 0, fmt.Errorf("%w: unknown tag kind %d", ErrInvalidHeader, kind)
	}
}

// parseList reads a List payload: one element-kind byte, a 4-byte
// big-endian size, then that many headerless payloads of that kind. A List
// of kind End carries a size but produces no elements (the size is
// preserved in ListLen so composing it reproduces the original bytes).
func parseList(b []byte) (Tag, int, error) {
	if len(b) < 1 {
		return Tag{}, 0, shortRead("list element kind", 1, len(b))
	}
	elemKind := b[0]
	pos := 1

	n32, n, err := readLen(b[pos:])
	if err != nil {
		return Tag{}, 0, err
	}
	pos += n

	tag := Tag{Kind: KindList, ListKind: elemKind, ListLen: n32}
	if elemKind == KindEnd || n32 == 0 {
		return tag, pos, nil
	}

	elems := make([]Tag, 0, n32)
	for i := int32(0); i < n32; i++ {
		elem, n, err := ParsePayload(elemKind, b[pos:])
		if err != nil {
			return Tag{}, 0, fmt.Errorf("list element %d: %w", i, err)
		}
		elems = append(elems, elem)
		pos += n
	}
	tag.List = elems
	return tag, pos, nil
}

// initialCompoundCapacity is the geometric-growth starting point for a
// compound's child slice, standing in for the source's REALLOC_SIZE-stepped
// manual realloc ladder — Go's append already doubles from here.
const initialCompoundCapacity = 10

// parseCompound repeatedly parses named tags until an End tag is consumed.
// The End tag is the terminator and is not included in the child list.
func parseCompound(b []byte) (Tag, int, error) {
	pos := 0
	children := make([]Tag, 0, initialCompoundCapacity)

	for {
		child, n, err := ParseTag(b[pos:])
		if err != nil {
			return Tag{}, 0, fmt.Errorf("compound child %d: %w", len(children), err)
		}
		pos += n
		if child.Kind == KindEnd {
			break
		}
		children = append(children, child)
	}

	// Right-size, mirroring the source's final reallocarray down to
	// numTags after the terminating End tag is known.
	rightSized := append([]Tag(nil), children...)
	return Tag{Kind: KindCompound, List: rightSized}, pos, nil
}

// readString reads a 2-byte big-endian length prefix followed by that many
// bytes. A zero length yields an empty string, never an absent one.
func readString(b []byte) (string, int, error) {
	if len(b) < 2 {
		return "", 0, shortRead("string length", 2, len(b))
	}
	l := int(binary.BigEndian.Uint16(b))
	if len(b) < 2+l {
		return "", 0, shortRead("string body", l, len(b)-2)
	}
	if l == 0 {
		return "", 2, nil
	}
	return string(b[2 : 2+l]), 2 + l, nil
}

// readLen reads a 4-byte big-endian element count, as used by ByteArray,
// IntArray, and List.
func readLen(b []byte) (int32, int, error) {
	if len(b) < 4 {
		return 0, 0, shortRead("array/list length", 4, len(b))
	}
	n := int32(binary.BigEndian.Uint32(b))
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: negative length %d", ErrInvalidHeader, n)
	}
	return n, 4, nil
}

func shortRead(what string, want, got int) error {
	return fmt.Errorf("%w: %s needs %d bytes, have %d", ErrInvalidHeader, what, want, got)
}
