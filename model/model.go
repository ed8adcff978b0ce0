// Package model implements save/load for the PSMODEL1 sparse parameter
// format: a self-describing, newline-framed, shard-streamed text format,
// modeled on the same "one record per line, whitespace separated" texture
// the libsvm reader already uses, so the same buffered-scanner idiom reads
// it back.
//
// PSMODEL1 <algo> <num_shards>
// <shard_id> <key_hex> <field0> [<field1> [<field2>]]
// ...
package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/asyncps/psengine/feaid"
	"github.com/asyncps/psengine/server"
)

const magic = "PSMODEL1"

// Record is one saved parameter entry, key plus its persisted columns in
// server.Service.Dump order.
type Record struct {
	ShardID int
	Key     feaid.ID
	Fields  []float32
}

// Save streams every shard's Dump to path as a PSMODEL1 file. Shards are
// dumped in the order given, each in its entirety, so the file can be
// produced incrementally without materializing the whole parameter vector
// in memory at once.
func Save(path, algo string, shards []server.Service) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("model: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "%s %s %d\n", magic, algo, len(shards)); err != nil {
		return fmt.Errorf("model: write header: %w", err)
	}
	for shardID, shard := range shards {
		keys, fields := shard.Dump()
		for i, key := range keys {
			if _, err := fmt.Fprintf(w, "%d %x %s\n", shardID, key, joinFields(fields[i])); err != nil {
				return fmt.Errorf("model: write record: %w", err)
			}
		}
	}
	return w.Flush()
}

func joinFields(fields []float32) string {
	parts := make([]string, len(fields))
	for i, v := range fields {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, " ")
}

// Load reads a PSMODEL1 file back into its header algo and a flat slice of
// records, in file order. It does not reconstruct server.Service shards
// itself — the caller routes each Record by ShardID/Key against whatever
// shard topology it is restoring into, which may differ from the one that
// wrote the file: range partitioning is a deploy-time choice, not part of
// the saved format.
func Load(path string) (algo string, records []Record, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("model: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", nil, fmt.Errorf("model: read header: %w", err)
		}
		return "", nil, fmt.Errorf("model: empty file")
	}
	header := strings.Fields(sc.Text())
	if len(header) != 3 || header[0] != magic {
		return "", nil, fmt.Errorf("model: bad header %q, want %q <algo> <num_shards>", sc.Text(), magic)
	}
	algo = header[1]

	for sc.Scan() {
		line := strings.Fields(sc.Text())
		if len(line) < 3 {
			return "", nil, fmt.Errorf("model: malformed record %q", sc.Text())
		}
		shardID, err := strconv.Atoi(line[0])
		if err != nil {
			return "", nil, fmt.Errorf("model: record shard id %q: %w", line[0], err)
		}
		key, err := strconv.ParseUint(line[1], 16, 64)
		if err != nil {
			return "", nil, fmt.Errorf("model: record key %q: %w", line[1], err)
		}
		fields := make([]float32, len(line)-2)
		for i, tok := range line[2:] {
			v, err := strconv.ParseFloat(tok, 32)
			if err != nil {
				return "", nil, fmt.Errorf("model: record field %q: %w", tok, err)
			}
			fields[i] = float32(v)
		}
		records = append(records, Record{ShardID: shardID, Key: feaid.ID(key), Fields: fields})
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return "", nil, fmt.Errorf("model: scan: %w", err)
	}
	return algo, records, nil
}
