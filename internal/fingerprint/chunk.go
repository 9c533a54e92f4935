package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ChunkSize is the reference chunk length: 2 MiB. Changing it changes every
// file digest.
const ChunkSize = 2 << 20

// Chunk is one contiguous slice of file content.
type Chunk struct {
	Index  int
	Offset int64
	Data   []byte
}

// ChunkReader yields a stream's chunks in strictly increasing offset order.
// Chunks never overlap and together cover the declared size; only the last
// one may be shorter than the chunk size. A zero-length stream yields a
// single empty chunk.
type ChunkReader struct {
	r         io.Reader
	size      int64
	chunkSize int

	offset int64
	index  int
	done   bool
}

// NewChunkReader returns a reader over exactly size bytes of r.
func NewChunkReader(r io.Reader, size int64, chunkSize int) *ChunkReader {
	if chunkSize <= 0 {
		chunkSize = ChunkSize
	}
	return &ChunkReader{r: r, size: size, chunkSize: chunkSize}
}

// ChunkCount returns how many chunks a stream of size bytes produces.
func ChunkCount(size int64, chunkSize int) int {
	if chunkSize <= 0 {
		chunkSize = ChunkSize
	}
	if size <= 0 {
		return 1
	}
	return int((size + int64(chunkSize) - 1) / int64(chunkSize))
}

// Next reads the next chunk into buf, growing it when it is too small, and
// returns io.EOF once every chunk has been produced. The returned Data aliases
// buf, so callers that keep a chunk past the next call must pass a different
// buffer.
func (c *ChunkReader) Next(ctx context.Context, buf []byte) (Chunk, error) {
	if c.done {
		return Chunk{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}
	if c.size < 0 {
		return Chunk{}, fmt.Errorf("%w: negative content size %d", ErrIO, c.size)
	}

	n := c.size - c.offset
	if n > int64(c.chunkSize) {
		n = int64(c.chunkSize)
	}
	if int64(cap(buf)) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]

	if n > 0 {
		if c.r == nil {
			return Chunk{}, fmt.Errorf("%w: no content stream", ErrIO)
		}
		read, err := io.ReadFull(c.r, buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = fmt.Errorf("stream ended after %d of %d bytes: %w", c.offset+int64(read), c.size, io.ErrUnexpectedEOF)
			}
			return Chunk{}, ioError(fmt.Sprintf("read chunk %d at offset %d", c.index, c.offset), err)
		}
	}

	chunk := Chunk{Index: c.index, Offset: c.offset, Data: buf}
	c.offset += n
	c.index++
	if c.offset >= c.size {
		c.done = true
	}
	return chunk, nil
}
