package grpcts

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/asyncps/psengine/feaid"
	"github.com/asyncps/psengine/transport"
)

// pushPayload/pullPayload are the gob-encoded bodies carried in a
// transport.Frame's Payload for CmdPush/CmdPull, corresponding to the
// original's ps::SArray<Key>/ps::SArray<Real> push/pull message bodies.
// Keys is nil when Filter.KeyCache elided it as unchanged from the
// previous call on the same sender+direction; the receiver resolves it
// through a KeyCache instead.
type pushPayload struct {
	Keys   []feaid.ID
	Values []byte // quantized per Filter.FixedBytes and compressed per Filter.Compress
	Filter transport.Filter
}

type pullRequest struct {
	Keys   []feaid.ID
	Filter transport.Filter
}

type pullResponse struct {
	Values []byte
	Filter transport.Filter
}

// KeyCache implements Filter.KeyCache: it remembers, per sender and
// direction, the last key vector actually sent on the wire, so a caller
// issuing repeated pushes/pulls against an unchanged key set can omit it
// and let the other side reuse its cached copy. A single KeyCache is
// shared across every sender a process talks to (RemoteStore owns one for
// its own two directions; a server process owns one shared by every
// worker that calls it, keyed by Frame.Sender).
type KeyCache struct {
	mu   sync.Mutex
	last map[string][]feaid.ID
}

// NewKeyCache creates an empty KeyCache.
func NewKeyCache() *KeyCache {
	return &KeyCache{last: make(map[string][]feaid.ID)}
}

// encode returns keys to place on the wire under cacheKey: nil if keys is
// identical to the last value encoded under this same key (a cache hit,
// eliding the resend), else keys itself, after recording it as the new
// last-sent value.
func (c *KeyCache) encode(cacheKey string, keys []feaid.ID) []feaid.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sameKeyIDs(c.last[cacheKey], keys) {
		return nil
	}
	stored := make([]feaid.ID, len(keys))
	copy(stored, keys)
	c.last[cacheKey] = stored
	return keys
}

// decode resolves the keys a message under cacheKey actually carries:
// wireKeys verbatim (recording it for future hits) if non-empty, or the
// last keys recorded under cacheKey if wireKeys is empty (the sender's
// cache-hit signal). Returns an error if no prior keys were ever recorded
// under cacheKey — a cache-hit signal with nothing to resolve it against.
func (c *KeyCache) decode(cacheKey string, wireKeys []feaid.ID) ([]feaid.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(wireKeys) > 0 {
		stored := make([]feaid.ID, len(wireKeys))
		copy(stored, wireKeys)
		c.last[cacheKey] = stored
		return wireKeys, nil
	}
	cached, ok := c.last[cacheKey]
	if !ok {
		return nil, fmt.Errorf("grpcts: key cache miss for %q (no prior keys recorded)", cacheKey)
	}
	return cached, nil
}

func sameKeyIDs(a, b []feaid.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// zstdEncoder/zstdDecoder are process-wide, concurrency-safe per the
// klauspost/compress/zstd docs, backing Filter.Compress.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// maybeCompress zstd-compresses data when filter.Compress is set.
func maybeCompress(data []byte, filter transport.Filter) []byte {
	if !filter.Compress {
		return data
	}
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)))
}

// maybeDecompress reverses maybeCompress.
func maybeDecompress(data []byte, filter transport.Filter) ([]byte, error) {
	if !filter.Compress {
		return data, nil
	}
	return zstdDecoder.DecodeAll(data, nil)
}

// encodeValues applies fixed-bytes quantization (ps::Filter::FIXING_FLOAT)
// when filter.FixedBytes is 2 or 1, rounding each value to a fixed-point
// code (see float32To16/float32To8) to shrink the wire payload at the cost
// of precision and range; FixedBytes == 0 (or
// anything other than 1 or 2) sends full float32 precision.
func encodeValues(values []float32, filter transport.Filter) []byte {
	switch filter.FixedBytes {
	case 2:
		buf := make([]byte, 2*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint16(buf[2*i:], float32To16(v))
		}
		return buf
	case 1:
		buf := make([]byte, len(values))
		for i, v := range values {
			buf[i] = float32To8(v)
		}
		return buf
	default:
		var b bytes.Buffer
		_ = gob.NewEncoder(&b).Encode(values) // encoding []float32 cannot fail
		return b.Bytes()
	}
}

func decodeValues(data []byte, filter transport.Filter, n int) ([]float32, error) {
	switch filter.FixedBytes {
	case 2:
		out := make([]float32, n)
		for i := range out {
			out[i] = float16ToFloat32(binary.LittleEndian.Uint16(data[2*i:]))
		}
		return out, nil
	case 1:
		out := make([]float32, n)
		for i := range out {
			out[i] = float8ToFloat32(data[i])
		}
		return out, nil
	default:
		var out []float32
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// float32To16/float16ToFloat32 quantize to a fixed-point representation
// scaled to the [-8, 8) range typical of regularized linear-model
// weights, not IEEE-754 half precision — the original's FIXING_FLOAT
// filter is a lossy fixed-point scheme, not a standard float format.
func float32To16(v float32) uint16 {
	scaled := math.Round(float64(v) * (1 << 12))
	if scaled > math.MaxInt16 {
		scaled = math.MaxInt16
	} else if scaled < math.MinInt16 {
		scaled = math.MinInt16
	}
	return uint16(int16(scaled))
}

func float16ToFloat32(bits uint16) float32 {
	return float32(int16(bits)) / (1 << 12)
}

func float32To8(v float32) byte {
	scaled := math.Round(float64(v) * (1 << 4))
	if scaled > math.MaxInt8 {
		scaled = math.MaxInt8
	} else if scaled < math.MinInt8 {
		scaled = math.MinInt8
	}
	return byte(int8(scaled))
}

func float8ToFloat32(bits byte) float32 {
	return float32(int8(bits)) / (1 << 4)
}
