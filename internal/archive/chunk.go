package archive

import (
	"compress/zlib"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/quillaja/cloudsim/internal/errs"
)

// EncodeChunk writes frames as one zlib-compressed gob.
func EncodeChunk(w io.Writer, frames []Frame, level int) error {
	zw, err := zlib.NewWriterLevel(w, level)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(zw).Encode(frames); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// DecodeChunk reads frames written by EncodeChunk.
func DecodeChunk(r io.Reader) ([]Frame, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var frames []Frame
	if err := gob.NewDecoder(zr).Decode(&frames); err != nil {
		return nil, err
	}
	return frames, nil
}

// Chunker buckets frames in memory and dumps each full bucket to a numbered
// chunk file in Dir. It is not safe for concurrent use.
type Chunker struct {
	Dir   string
	Size  int // frames per chunk
	Level int // zlib compression level

	pending []Frame
	written []string
}

// NewChunker returns a chunker writing size frames per chunk into dir.
func NewChunker(dir string, size int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size %d: %w", size, errs.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Chunker{Dir: dir, Size: size, Level: zlib.DefaultCompression}, nil
}

// Add buckets f, dumping the bucket once it is full.
func (c *Chunker) Add(f Frame) error {
	c.pending = append(c.pending, f)
	if len(c.pending) < c.Size {
		return nil
	}
	return c.Flush()
}

// Flush dumps whatever is bucketed. The file is named after the last frame
// it holds.
func (c *Chunker) Flush() error {
	if len(c.pending) == 0 {
		return nil
	}
	last := c.pending[len(c.pending)-1].Frame
	name := filepath.Join(c.Dir, fmt.Sprintf("%010d.chunk", last))
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := EncodeChunk(file, c.pending, c.Level); err != nil {
		file.Close()
		os.Remove(name)
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	c.written = append(c.written, name)
	c.pending = c.pending[:0]
	return nil
}

// Written returns the chunk files dumped so far.
func (c *Chunker) Written() []string { return c.written }

// ReadChunks loads every chunk file in dir, returning frames in file order.
func ReadChunks(dir string) ([]Frame, error) {
	names, err := filepath.Glob(filepath.Join(dir, "*.chunk"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var frames []Frame
	for _, name := range names {
		file, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		fs, err := DecodeChunk(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", name, err)
		}
		frames = append(frames, fs...)
	}
	return frames, nil
}
