// Package grpcts implements the networked transport: a real
// google.golang.org/grpc client/server pair exchanging transport.Frame
// values, standing in for generated protobuf stubs — no protoc is
// available in this environment, so a hand-registered gob codec carries
// the wire payload instead (see DESIGN.md, "Dropped teacher dependencies").
package grpcts

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is passed to grpc.CallContentSubtype by the client and
// matched against the server's registered codec during content
// negotiation.
const codecName = "gob"

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// gobCodec implements encoding.Codec (previously encoding.Codec was named
// grpc.Codec before the subtype-registration API) using encoding/gob.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("grpcts: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("grpcts: gob decode: %w", err)
	}
	return nil
}

func (gobCodec) Name() string { return codecName }
