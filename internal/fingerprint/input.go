package fingerprint

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Kind identifies which fingerprint path an Input takes.
type Kind int

const (
	KindText Kind = iota + 1
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Input is the content to fingerprint: either a text string or a byte stream
// with a known total length. It must not change while a fingerprint is being
// computed.
type Input struct {
	Kind Kind

	text string

	name   string
	r      io.Reader
	size   int64
	closer io.Closer
}

// Text returns a text input. The empty string is valid.
func Text(content string) Input {
	return Input{Kind: KindText, text: content}
}

// Reader returns a file input reading exactly size bytes from r.
func Reader(name string, r io.Reader, size int64) Input {
	return Input{Kind: KindFile, name: name, r: r, size: size}
}

// Open returns a file input backed by the file at path. Callers must Close
// the input once the fingerprint has been computed.
func Open(path string) (Input, error) {
	file, err := os.Open(path)
	if err != nil {
		return Input{}, ioError("open "+path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return Input{}, ioError("stat "+path, err)
	}
	if info.IsDir() {
		_ = file.Close()
		return Input{}, fmt.Errorf("%w: %s is a directory", ErrIO, path)
	}
	return Input{
		Kind:   KindFile,
		name:   filepath.Base(path),
		r:      file,
		size:   info.Size(),
		closer: file,
	}, nil
}

// Spool copies r into a temporary file and returns a file input over it, for
// streams such as stdin whose length is unknown up front. Memory use stays at
// one chunk regardless of the stream's size. Close removes the temporary file.
func Spool(name string, r io.Reader) (Input, error) {
	file, err := os.CreateTemp("", "worldip-spool-*")
	if err != nil {
		return Input{}, ioError("create spool file", err)
	}
	spool := &spoolFile{File: file}
	size, err := io.Copy(file, r)
	if err != nil {
		_ = spool.Close()
		return Input{}, ioError("spool "+name, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		_ = spool.Close()
		return Input{}, ioError("rewind spool for "+name, err)
	}
	return Input{Kind: KindFile, name: name, r: file, size: size, closer: spool}, nil
}

// spoolFile deletes its backing file once closed. Close is safe to call more
// than once.
type spoolFile struct {
	*os.File
	once sync.Once
	err  error
}

func (s *spoolFile) Close() error {
	s.once.Do(func() {
		closeErr := s.File.Close()
		removeErr := os.Remove(s.File.Name())
		s.err = errors.Join(closeErr, removeErr)
	})
	return s.err
}

// Close releases the file handle held by inputs created with Open or Spool.
func (in Input) Close() error {
	if in.closer == nil {
		return nil
	}
	return in.closer.Close()
}

// Name returns the file name of a file input, or "" for text.
func (in Input) Name() string {
	return in.name
}

// Size returns the byte length of the content. For text it is the UTF-8
// length.
func (in Input) Size() int64 {
	if in.Kind == KindText {
		return int64(len(in.text))
	}
	return in.size
}

// Format returns the dotted, lowercased file extension of a file input
// (".pdf"), or "" when there is none.
func (in Input) Format() string {
	if in.Kind != KindFile {
		return ""
	}
	return strings.ToLower(filepath.Ext(in.name))
}
