package backingstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FetchFrom", func() {
	It("should return record page+1", func() {
		r := strings.NewReader("111 222\n333\n")

		value, err := FetchFrom(r, 1)

		Expect(err).ToNot(HaveOccurred())
		Expect(value).To(Equal(int64(222)))
	})

	It("should read negative records", func() {
		value, err := FetchFrom(strings.NewReader("-5 -6"), 0)

		Expect(err).ToNot(HaveOccurred())
		Expect(value).To(Equal(int64(-5)))
	})

	It("should fail when the store is too short", func() {
		_, err := FetchFrom(strings.NewReader("111 222"), 2)

		Expect(errors.Is(err, ErrPageNotInStore)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("page 2, 2 records available"))
	})

	It("should fail on a malformed record", func() {
		_, err := FetchFrom(strings.NewReader("111 abc 333"), 2)

		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, ErrPageNotInStore)).To(BeFalse())
	})

	It("should not read beyond the requested record", func() {
		value, err := FetchFrom(strings.NewReader("111 222 abc"), 1)

		Expect(err).ToNot(HaveOccurred())
		Expect(value).To(Equal(int64(222)))
	})
})

var _ = Describe("FileStore", func() {
	var (
		path string
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "backing_store.txt")
		err := os.WriteFile(path, []byte("111\n222\n"), 0o644)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should read the file from the start on every fetch", func() {
		s := NewFileStore(path)

		v1, err := s.Fetch(1)
		Expect(err).ToNot(HaveOccurred())
		v0, err := s.Fetch(0)
		Expect(err).ToNot(HaveOccurred())

		Expect(v1).To(Equal(int64(222)))
		Expect(v0).To(Equal(int64(111)))
		Expect(s.Path()).To(Equal(path))
	})

	It("should name the file in errors", func() {
		s := NewFileStore(path)

		_, err := s.Fetch(5)

		Expect(errors.Is(err, ErrPageNotInStore)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring(path))
	})

	It("should fail when the file is missing", func() {
		s := NewFileStore(path + ".missing")

		_, err := s.Fetch(0)

		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})
})

var _ = Describe("SliceStore", func() {
	It("should return record page", func() {
		s := SliceStore{111, 222}

		value, err := s.Fetch(1)

		Expect(err).ToNot(HaveOccurred())
		Expect(value).To(Equal(int64(222)))
	})

	It("should fail beyond its records", func() {
		_, err := SliceStore{111}.Fetch(1)

		Expect(errors.Is(err, ErrPageNotInStore)).To(BeTrue())
	})
})
