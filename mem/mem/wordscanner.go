package mem

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// A WordScanner reads whitespace-separated integers one at a time.
type WordScanner struct {
	scanner *bufio.Scanner
	word    int64
	count   uint64
	err     error
}

// NewWordScanner creates a WordScanner that reads from r.
func NewWordScanner(r io.Reader) *WordScanner {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)

	return &WordScanner{scanner: s}
}

// Scan advances to the next word. It returns false at the end of the input or
// at the first token that is not an integer; Err tells the two apart.
func (s *WordScanner) Scan() bool {
	if s.err != nil {
		return false
	}

	if !s.scanner.Scan() {
		s.err = s.scanner.Err()
		return false
	}

	token := s.scanner.Text()
	word, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		s.err = fmt.Errorf("record %d: invalid integer %q", s.count, token)
		return false
	}

	s.word = word
	s.count++

	return true
}

// Word returns the word read by the last successful Scan.
func (s *WordScanner) Word() int64 {
	return s.word
}

// Count returns the number of words read so far.
func (s *WordScanner) Count() uint64 {
	return s.count
}

// Err returns the first error met, or nil if the input ended normally.
func (s *WordScanner) Err() error {
	return s.err
}
