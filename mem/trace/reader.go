package trace

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Reader reads addresses from a trace, one per line. Blank lines are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	addr    uint64
	err     error
}

// NewReader creates a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next advances to the next address. It returns false at the end of the trace
// or when a line cannot be parsed. Err tells the two apart.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}

	for r.scanner.Scan() {
		r.line++

		token := strings.TrimSpace(r.scanner.Text())
		if token == "" {
			continue
		}

		addr, err := ParseAddress(token)
		if err != nil {
			r.err = fmt.Errorf("line %d: %w", r.line, err)
			return false
		}

		r.addr = addr

		return true
	}

	r.err = r.scanner.Err()

	return false
}

// Address returns the address read by the last call to Next.
func (r *Reader) Address() uint64 {
	return r.addr
}

// Line returns the line number of the last address read, counting from 1.
func (r *Reader) Line() int {
	return r.line
}

// Err returns the first error met while reading the trace.
func (r *Reader) Err() error {
	return r.err
}

// ReadAll reads every address of the trace.
func ReadAll(r io.Reader) ([]uint64, error) {
	addrs := []uint64{}

	reader := NewReader(r)
	for reader.Next() {
		addrs = append(addrs, reader.Address())
	}

	return addrs, reader.Err()
}
