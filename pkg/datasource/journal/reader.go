package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/exp/mmap"
)

var ErrEof = errors.New("EOF")

// Reader random-accesses the fixed-width tick records of one journal
// file through a memory mapping. Indexing is record-based, the record
// width is sizeof(BinaryTick).
type Reader struct {
	path   string
	mapped *mmap.ReaderAt
}

const recordSize = int64(unsafe.Sizeof(BinaryTick{}))

func NewReader(path string) *Reader {
	return &Reader{path: path}
}

func (r *Reader) Open() error {
	mapped, err := mmap.Open(r.path)
	if err != nil {
		return fmt.Errorf("unable to open journal %q: %w", r.path, err)
	}
	if int64(mapped.Len())%recordSize != 0 {
		_ = mapped.Close()
		return fmt.Errorf("journal %q is truncated mid-record", r.path)
	}
	r.mapped = mapped
	return nil
}

func (r *Reader) Close() {
	if r.mapped != nil {
		_ = r.mapped.Close()
	}
}

func (r *Reader) Len() int64 {
	return int64(r.mapped.Len()) / recordSize
}

func (r *Reader) Read(index int64, record *BinaryTick) error {
	buffer := make([]byte, recordSize)
	n, err := r.mapped.ReadAt(buffer, index*recordSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("unable to read record %d: %w", index, err)
	}
	if int64(n) < recordSize {
		return ErrEof
	}

	*record = *(*BinaryTick)(unsafe.Pointer(&buffer[0])) // BinaryTick carries no padding
	return nil
}

// EntryCount reports the record count without mapping the file.
func EntryCount(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("unable to stat journal %q: %w", path, err)
	}
	if info.Size()%recordSize != 0 {
		return 0, fmt.Errorf("journal %q is truncated mid-record", path)
	}
	return info.Size() / recordSize, nil
}
