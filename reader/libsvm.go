package reader

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/asyncps/psengine/minibatch"
)

// libsvm reads libsvm-format ("<label> <index>:<value> ...") rows,
// partitioned across num_parts readers by line number modulo num_parts, and
// batches them into minibatches of mbSize rows. Grounded on the usage shown
// in original_source/learn/linear/test/minibatch_iter_test.cc
// (MinibatchIter(path, part_id, num_parts, format, mb_size)).
type libsvm struct {
	path      string
	partID    int
	numParts  int
	mbSize    int
	file      *os.File
	scanner   *bufio.Scanner
	lineNo    int
	err       error
	current   minibatch.Minibatch
	exhausted bool
}

// NewLibSVMReader opens path and returns a libsvm-format reader for the
// given partition. format must be "libsvm"; other values are rejected since
// no other reader is implemented.
func NewLibSVMReader(path string, partID, numParts int, format string, mbSize int) (Interface, error) {
	if format != "libsvm" {
		return nil, fmt.Errorf("reader: unsupported data_format %q", format)
	}
	if numParts <= 0 || partID < 0 || partID >= numParts {
		return nil, fmt.Errorf("reader: invalid partition %d/%d", partID, numParts)
	}
	if mbSize <= 0 {
		return nil, fmt.Errorf("reader: invalid minibatch size %d", mbSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &libsvm{path: path, partID: partID, numParts: numParts, mbSize: mbSize, file: f}
	r.scanner = bufio.NewScanner(f)
	r.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return r, nil
}

func (r *libsvm) BeforeFirst() error {
	if _, err := r.file.Seek(0, 0); err != nil {
		return err
	}
	r.scanner = bufio.NewScanner(r.file)
	r.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	r.lineNo = 0
	r.err = nil
	r.exhausted = false
	return nil
}

func (r *libsvm) Next() bool {
	if r.exhausted || r.err != nil {
		return false
	}

	var labels []float32
	var offset = []int{0}
	var index []uint64
	var values []float32

	for len(labels) < r.mbSize {
		line, ok := r.nextOwnedLine()
		if !ok {
			break
		}
		label, idx, val, err := parseLibSVMLine(line)
		if err != nil {
			r.err = fmt.Errorf("reader: %s:%d: %w", r.path, r.lineNo, err)
			return false
		}
		labels = append(labels, label)
		index = append(index, idx...)
		values = append(values, val...)
		offset = append(offset, len(index))
	}

	if len(labels) == 0 {
		r.exhausted = true
		return false
	}

	r.current = minibatch.Minibatch{Rows: minibatch.RowBlock{
		Labels: labels,
		Offset: offset,
		Index:  index,
		Value:  values,
	}}
	return true
}

// nextOwnedLine advances through the underlying scanner until it finds a
// line owned by this partition (lineNo % numParts == partID) or EOF.
func (r *libsvm) nextOwnedLine() (string, bool) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		owned := r.lineNo%r.numParts == r.partID
		r.lineNo++
		if strings.TrimSpace(line) == "" {
			continue
		}
		if owned {
			return line, true
		}
	}
	if err := r.scanner.Err(); err != nil {
		r.err = err
	}
	return "", false
}

func (r *libsvm) Value() minibatch.Minibatch { return r.current }
func (r *libsvm) Err() error                 { return r.err }
func (r *libsvm) Close() error                { return r.file.Close() }

// parseLibSVMLine parses "<label> <index>:<value> ..." into a label and
// parallel index/value slices. A bare index (no ":value") implies 1.0.
func parseLibSVMLine(line string) (label float32, index []uint64, value []float32, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, nil, nil, fmt.Errorf("empty line")
	}
	l, err := strconv.ParseFloat(fields[0], 32)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("invalid label %q: %w", fields[0], err)
	}
	label = float32(l)

	for _, tok := range fields[1:] {
		parts := strings.SplitN(tok, ":", 2)
		id, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("invalid feature id %q: %w", parts[0], err)
		}
		val := float32(1.0)
		if len(parts) == 2 {
			v, err := strconv.ParseFloat(parts[1], 32)
			if err != nil {
				return 0, nil, nil, fmt.Errorf("invalid feature value %q: %w", parts[1], err)
			}
			val = float32(v)
		}
		index = append(index, id)
		value = append(value, val)
	}
	return label, index, value, nil
}
