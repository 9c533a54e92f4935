package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"
)

// Progress reports file fingerprinting progress after each leaf is hashed.
type Progress struct {
	Chunk      int
	Chunks     int
	BytesRead  int64
	TotalBytes int64
}

// Engine computes fingerprints. The zero value is not usable; construct one
// with New. An Engine holds no per-call state and is safe for concurrent use.
type Engine struct {
	chunkSize          int
	workers            int
	legacyLeadingChunk bool
	logger             *slog.Logger
	progress           func(Progress)

	// alloc provides chunk buffers; tests swap it to count allocations.
	alloc func(n int) []byte
}

// Option configures an Engine.
type Option func(*Engine)

// WithChunkSize overrides the 2 MiB reference chunk size. Digests computed
// with a different size are not comparable with reference digests.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithWorkers hashes up to n chunks concurrently. Reads stay sequential and
// leaves are reassembled in offset order, so the digest does not depend on n.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLegacyLeadingChunk reproduces digests issued by the earlier web
// client, whose reader hashed the first chunk of a non-empty file twice.
func WithLegacyLeadingChunk(enabled bool) Option {
	return func(e *Engine) {
		e.legacyLeadingChunk = enabled
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after every leaf is hashed.
func WithProgress(fn func(Progress)) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// New creates an Engine using the reference chunk size and a single worker.
func New(opts ...Option) *Engine {
	e := &Engine{
		chunkSize: ChunkSize,
		workers:   1,
		logger:    slog.New(discardHandler{}),
		alloc:     func(n int) []byte { return make([]byte, n) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ChunkSize returns the configured chunk size.
func (e *Engine) ChunkSize() int {
	return e.chunkSize
}

// Fingerprint returns the lowercase hex digest of in. Text is hashed directly;
// file content is chunked and reduced to a Merkle root. Any read failure
// aborts the call with an ErrIO error and no partial result.
func (e *Engine) Fingerprint(ctx context.Context, in Input) (string, error) {
	d, err := e.Digest(ctx, in)
	if err != nil {
		return "", err
	}
	return d.Hex(), nil
}

// Digest is Fingerprint without the hex rendering.
func (e *Engine) Digest(ctx context.Context, in Input) (Digest, error) {
	switch in.Kind {
	case KindText:
		return TextDigest(in.text)
	case KindFile:
		return e.fileDigest(ctx, in)
	default:
		return Digest{}, fmt.Errorf("fingerprint: unsupported input kind %s", in.Kind)
	}
}

// FingerprintFile opens path, fingerprints it and closes it again.
func (e *Engine) FingerprintFile(ctx context.Context, path string) (string, error) {
	in, err := Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()
	return e.Fingerprint(ctx, in)
}

// FingerprintTimeout wraps Fingerprint with a deadline so slow storage cannot
// block the caller indefinitely. A timeout <= 0 disables the deadline.
func (e *Engine) FingerprintTimeout(ctx context.Context, in Input, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		return e.Fingerprint(ctx, in)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.Fingerprint(ctx, in)
}

// TextDigest hashes the UTF-8 bytes of content.
func TextDigest(content string) (Digest, error) {
	if !utf8.ValidString(content) {
		return Digest{}, encodingError("text is not valid UTF-8", nil)
	}
	return Sum([]byte(content)), nil
}

// fileDigest returns as soon as ctx ends, even while a read is pending. The
// input's handle is closed on the way out to unblock that read; readers
// without a closer are left to finish on their own.
func (e *Engine) fileDigest(ctx context.Context, in Input) (Digest, error) {
	type result struct {
		root Digest
		err  error
	}
	done := make(chan result, 1)
	go func() {
		root, err := e.readTree(ctx, in)
		done <- result{root: root, err: err}
	}()

	select {
	case r := <-done:
		return r.root, r.err
	case <-ctx.Done():
		if in.closer != nil {
			_ = in.closer.Close()
		}
		e.logger.Debug("file fingerprint abandoned",
			slog.String("name", in.name),
			slog.String("reason", ctx.Err().Error()),
		)
		return Digest{}, ctx.Err()
	}
}

func (e *Engine) readTree(ctx context.Context, in Input) (Digest, error) {
	start := time.Now()
	reader := NewChunkReader(in.r, in.size, e.chunkSize)
	chunks := ChunkCount(in.size, e.chunkSize)

	var (
		leaves []Digest
		err    error
	)
	if e.workers > 1 && chunks > 1 {
		leaves, err = e.parallelLeaves(ctx, reader, in.size, chunks)
	} else {
		leaves, err = e.sequentialLeaves(ctx, reader, in.size, chunks)
	}
	if err != nil {
		return Digest{}, err
	}
	if e.legacyLeadingChunk && in.size > 0 {
		leaves = append([]Digest{leaves[0]}, leaves...)
	}

	root := Reduce(leaves)
	e.logger.Debug("file fingerprint computed",
		slog.String("name", in.name),
		slog.Int64("bytes", in.size),
		slog.Int("chunks", chunks),
		slog.Int("workers", e.workers),
		slog.Bool("legacy_leading_chunk", e.legacyLeadingChunk),
		slog.Duration("elapsed", time.Since(start)),
	)
	return root, nil
}

func (e *Engine) sequentialLeaves(ctx context.Context, reader *ChunkReader, size int64, chunks int) ([]Digest, error) {
	leaves := make([]Digest, 0, chunks)
	var buf []byte
	if size > 0 {
		buf = e.alloc(int(min(int64(e.chunkSize), size)))
	}
	var read int64
	for {
		chunk, err := reader.Next(ctx, buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, Sum(chunk.Data))
		read += int64(len(chunk.Data))
		e.report(Progress{Chunk: chunk.Index + 1, Chunks: chunks, BytesRead: read, TotalBytes: size})
	}
	return leaves, nil
}

// parallelLeaves keeps reads in offset order while hashing up to e.workers
// chunks at once. Each in-flight chunk owns one buffer from a fixed pool.
func (e *Engine) parallelLeaves(ctx context.Context, reader *ChunkReader, size int64, chunks int) ([]Digest, error) {
	leaves := make([]Digest, chunks)
	pool := min(e.workers, chunks)
	free := make(chan []byte, pool)
	for i := 0; i < pool; i++ {
		free <- e.alloc(e.chunkSize)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
		read int64
	)
	for {
		var buf []byte
		select {
		case buf = <-free:
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		}
		chunk, err := reader.Next(ctx, buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func(c Chunk) {
			defer wg.Done()
			leaves[c.Index] = Sum(c.Data)
			mu.Lock()
			done++
			read += int64(len(c.Data))
			e.report(Progress{Chunk: done, Chunks: chunks, BytesRead: read, TotalBytes: size})
			mu.Unlock()
			free <- c.Data[:cap(c.Data)]
		}(chunk)
	}
	wg.Wait()
	return leaves, nil
}

func (e *Engine) report(p Progress) {
	if e.progress != nil {
		e.progress(p)
	}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
