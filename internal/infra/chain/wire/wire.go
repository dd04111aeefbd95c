// Package wire walks protobuf-encoded messages field by field.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field is one decoded field. Varint holds varint values; Bytes holds
// length-delimited values. Other wire types are skipped with both empty.
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Bytes  []byte
}

// Walk calls fn for every field in b, in encoded order.
func Walk(b []byte, fn func(Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Message returns the last occurrence of a length-delimited field, or nil.
func Message(b []byte, num protowire.Number) ([]byte, error) {
	var out []byte
	err := Walk(b, func(f Field) error {
		if f.Num == num && f.Type == protowire.BytesType {
			out = f.Bytes
		}
		return nil
	})
	return out, err
}
