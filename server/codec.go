package server

import (
	"github.com/chazu/redex/wire"
)

// cborCodec carries service messages as canonical CBOR.
type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Marshal(v any) ([]byte, error) {
	return wire.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return wire.Unmarshal(data, v)
}
