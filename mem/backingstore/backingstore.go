// Package backingstore provides the storage that supplies page contents when a
// page fault happens.
package backingstore

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/mmusim/mem/mem"
)

// ErrPageNotInStore is returned when the store holds fewer records than
// required to serve a page. A simulation cannot continue after it.
var ErrPageNotInStore = errors.New("backing store does not hold the page")

// A Store returns the content of a page. The content of page N is the (N+1)-th
// record of the store.
type Store interface {
	Fetch(vpn uint64) (int64, error)
}

// FileStore is a Store backed by a text file of whitespace-separated integers.
// The file is read sequentially from the start on every fetch.
type FileStore struct {
	path string
}

// NewFileStore creates a store that reads the given file.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store reads.
func (s *FileStore) Path() string {
	return s.path
}

// Fetch reads vpn+1 records from the file and returns the last one.
func (s *FileStore) Fetch(vpn uint64) (int64, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, fmt.Errorf("backing store %s: %w", s.path, err)
	}
	defer f.Close()

	value, err := FetchFrom(f, vpn)
	if err != nil {
		return 0, fmt.Errorf("backing store %s: %w", s.path, err)
	}

	return value, nil
}

// FetchFrom consumes exactly vpn+1 records from r and returns the last one.
func FetchFrom(r io.Reader, vpn uint64) (int64, error) {
	scanner := mem.NewWordScanner(r)
	for scanner.Count() <= vpn {
		if scanner.Scan() {
			continue
		}

		if err := scanner.Err(); err != nil {
			return 0, err
		}

		return 0, fmt.Errorf("page %d, %d records available: %w",
			vpn, scanner.Count(), ErrPageNotInStore)
	}

	return scanner.Word(), nil
}

// SliceStore is a Store held in memory. Record i is the content of page i.
type SliceStore []int64

// Fetch returns record vpn.
func (s SliceStore) Fetch(vpn uint64) (int64, error) {
	if vpn >= uint64(len(s)) {
		return 0, fmt.Errorf("page %d, %d records available: %w",
			vpn, len(s), ErrPageNotInStore)
	}

	return s[vpn], nil
}
