package cosmos

import "fmt"

// rawMessage carries pre-encoded protobuf bytes through grpc.
type rawMessage struct {
	b []byte
}

// rawCodec passes bytes through unchanged so requests and responses can be
// handled with protowire instead of generated types.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(*rawMessage)
	if !ok {
		return nil, fmt.Errorf("raw codec: unexpected type %T", v)
	}
	return m.b, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(*rawMessage)
	if !ok {
		return fmt.Errorf("raw codec: unexpected type %T", v)
	}
	m.b = append(m.b[:0], data...)
	return nil
}

func (rawCodec) Name() string { return "proto" }
