package storage

import (
	"bytes"
	"encoding/gob"
)

// Codec turns the persisted state of a store (the key-value map and the metadata) into bytes and back.
type Codec interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, value any) error
}

// GobCodec encodes with encoding/gob. Keys and values must be gob encodable; interface typed values must have their
// concrete types registered with gob.Register.
type GobCodec struct{}

var _ Codec = GobCodec{}

func (GobCodec) Marshal(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Unmarshal(data []byte, value any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(value)
}
