// Package mem provides the word-addressed physical memory of the simulator and
// the loader of memory images.
package mem

import (
	"fmt"
	"os"
)

// Storage is the physical memory. It is a flat array of words, addressed from
// zero. Its size is fixed when it is created.
type Storage struct {
	words []int64
}

// NewStorage creates a zero-filled storage of the given number of words.
func NewStorage(numWords uint64) *Storage {
	return &Storage{
		words: make([]int64, numWords),
	}
}

// NewStorageWithWords creates a storage that holds the given words. The
// storage takes ownership of the slice.
func NewStorageWithWords(words []int64) *Storage {
	return &Storage{
		words: words,
	}
}

// LoadStorageFile creates a storage from a memory image file. The image is a
// whitespace-separated list of integers, one per word.
func LoadStorageFile(path string) (*Storage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	words := []int64{}
	scanner := NewWordScanner(f)
	for scanner.Scan() {
		words = append(words, scanner.Word())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("memory image %s: %w", path, err)
	}

	return NewStorageWithWords(words), nil
}

// Size returns the number of words in the storage.
func (s *Storage) Size() uint64 {
	return uint64(len(s.words))
}

// NumFrames returns how many whole frames of 1<<log2PageSize words the storage
// holds.
func (s *Storage) NumFrames(log2PageSize uint64) uint64 {
	return s.Size() >> log2PageSize
}

// Read returns the word at the address. The bool return value is false if the
// address is beyond the storage.
func (s *Storage) Read(addr uint64) (int64, bool) {
	if addr >= s.Size() {
		return 0, false
	}

	return s.words[addr], true
}

// Write stores the word at the address. It returns false and changes nothing
// if the address is beyond the storage.
func (s *Storage) Write(addr uint64, value int64) bool {
	if addr >= s.Size() {
		return false
	}

	s.words[addr] = value

	return true
}
