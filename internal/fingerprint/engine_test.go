package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func fingerprintBytes(t *testing.T, e *Engine, data []byte) string {
	t.Helper()
	got, err := e.Fingerprint(context.Background(), Reader("data.bin", bytes.NewReader(data), int64(len(data))))
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	return got
}

func TestTextFingerprint(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", emptySHA256},
		{"hello", "hello", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{"non-ascii", "héllo wörld", "a1003f7d04a4115711d0b48a2eaf1359ce565d2d2a6fd65098dfcffadeeef59f"},
	}
	e := New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.Fingerprint(context.Background(), Text(tc.text))
			if err != nil {
				t.Fatalf("Fingerprint: %v", err)
			}
			if got != tc.want {
				t.Fatalf("fingerprint = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestTextFingerprintRejectsInvalidUTF8(t *testing.T) {
	_, err := New().Fingerprint(context.Background(), Text("bad \xff byte"))
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestTextFingerprintsAreDistinct(t *testing.T) {
	e := New()
	seen := make(map[string]string)
	inputs := []string{"", " ", "a", "A", "a ", "a\n", "a\r\n", "ab", "ba"}
	for i := 0; i < 500; i++ {
		inputs = append(inputs, fmt.Sprintf("work-%d", i))
	}
	for _, in := range inputs {
		got, err := e.Fingerprint(context.Background(), Text(in))
		if err != nil {
			t.Fatalf("Fingerprint(%q): %v", in, err)
		}
		if prev, ok := seen[got]; ok {
			t.Fatalf("collision between %q and %q", prev, in)
		}
		seen[got] = in
	}
}

func TestFileExactlyOneChunkIsLeafHash(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, ChunkSize)
	got := fingerprintBytes(t, New(), data)
	const want = "7995dfceebfb9fa8972d361d53d899f6e268ecd6d823b5737198041fabc02e20"
	if got != want {
		t.Fatalf("fingerprint = %s, want %s", got, want)
	}
	if leafHex := Sum(data).Hex(); got != leafHex {
		t.Fatalf("single chunk root %s differs from leaf %s", got, leafHex)
	}
}

func TestFileOneByteOverChunkBoundary(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, ChunkSize+1)
	got := fingerprintBytes(t, New(), data)
	const want = "085f1eed966c5a055ca6f795d74b25b3b6ed34f8e3591daabe2277c9010aa9a9"
	if got != want {
		t.Fatalf("fingerprint = %s, want %s", got, want)
	}
}

func TestFileThreeChunkReferenceVector(t *testing.T) {
	c0 := bytes.Repeat([]byte{0x00}, ChunkSize)
	c1 := bytes.Repeat([]byte{0x01}, ChunkSize)
	c2 := bytes.Repeat([]byte{0x02}, 1024)
	data := bytes.Join([][]byte{c0, c1, c2}, nil)

	const (
		h0    = "5647f05ec18958947d32874eeb788fa396a05d0bab7c1b71f112ceb7e9b31eee"
		h1    = "6d75695d93deb1bf5805617cfba166466cf60dc0a99a8014fa58893f358f33b8"
		h2    = "14d6fc848712815bc1b5fe1ced1b8980eea1e0db781a946dac5aded9769d1984"
		left  = "239063e4e845ed507406c8318d58330a692ba0e0035ca67ecb481eab613d74e2"
		right = "b62f6d2c8c318a9fe0841006469aab1d2eecc4e3ede2cbd9943d959d89d291b1"
		root  = "847f179123d364c7b47dd611904a1583f93fa1ae61293549b741b04afcd862ae"
	)
	for name, pair := range map[string][2]string{
		"h0": {Sum(c0).Hex(), h0},
		"h1": {Sum(c1).Hex(), h1},
		"h2": {Sum(c2).Hex(), h2},
	} {
		if pair[0] != pair[1] {
			t.Fatalf("%s = %s, want %s", name, pair[0], pair[1])
		}
	}
	if got := combine(Sum(c0), Sum(c1)).Hex(); got != left {
		t.Fatalf("SHA256(h0||h1) = %s, want %s", got, left)
	}
	if got := combine(Sum(c2), Sum(c2)).Hex(); got != right {
		t.Fatalf("SHA256(h2||h2) = %s, want %s", got, right)
	}
	if got := fingerprintBytes(t, New(), data); got != root {
		t.Fatalf("root = %s, want %s", got, root)
	}
}

func TestFileSmallChunkSizeVector(t *testing.T) {
	got := fingerprintBytes(t, New(WithChunkSize(4)), []byte("aaaabbbbcc"))
	const want = "b2aeb5b7ba6988860a541b4f0caa389249f8ae3d960836ac3608a4e6444f8bc1"
	if got != want {
		t.Fatalf("fingerprint = %s, want %s", got, want)
	}
}

func TestFileZeroLengthIsHashOfEmptyChunk(t *testing.T) {
	got := fingerprintBytes(t, New(), nil)
	if got != emptySHA256 {
		t.Fatalf("fingerprint = %s, want %s", got, emptySHA256)
	}

	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fromDisk, err := New().FingerprintFile(context.Background(), path)
	if err != nil {
		t.Fatalf("FingerprintFile: %v", err)
	}
	if fromDisk != got {
		t.Fatalf("zero-length file fingerprint differs between paths: %s vs %s", fromDisk, got)
	}
}

func TestFileRoundTripAndMutation(t *testing.T) {
	e := New(WithChunkSize(1024))
	data := make([]byte, 5*1024+17)
	for i := range data {
		data[i] = byte(i * 31)
	}
	dir := t.TempDir()
	original := filepath.Join(dir, "work.bin")
	if err := os.WriteFile(original, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	registered, err := e.FingerprintFile(context.Background(), original)
	if err != nil {
		t.Fatalf("FingerprintFile: %v", err)
	}

	copyPath := filepath.Join(dir, "copy.bin")
	if err := os.WriteFile(copyPath, append([]byte(nil), data...), 0o644); err != nil {
		t.Fatalf("write copy: %v", err)
	}
	again, err := e.FingerprintFile(context.Background(), copyPath)
	if err != nil {
		t.Fatalf("FingerprintFile copy: %v", err)
	}
	if !Matches(again, registered) {
		t.Fatalf("unmodified copy should verify: %s vs %s", again, registered)
	}

	for _, pos := range []int{0, 1023, 1024, len(data) - 1} {
		mutated := append([]byte(nil), data...)
		mutated[pos] ^= 0x01
		if got := fingerprintBytes(t, e, mutated); Matches(got, registered) {
			t.Fatalf("flipping byte %d did not change the fingerprint", pos)
		}
	}
}

func TestFileFingerprintIsDeterministicAcrossWorkers(t *testing.T) {
	data := make([]byte, 37*512+3)
	for i := range data {
		data[i] = byte(i % 251)
	}
	want := fingerprintBytes(t, New(WithChunkSize(512)), data)
	for _, workers := range []int{1, 2, 3, 8, 64} {
		for run := 0; run < 3; run++ {
			got := fingerprintBytes(t, New(WithChunkSize(512), WithWorkers(workers)), data)
			if got != want {
				t.Fatalf("workers=%d run=%d: %s, want %s", workers, run, got, want)
			}
		}
	}
}

func TestTextAndFilePathsAreIndependent(t *testing.T) {
	e := New(WithChunkSize(4))
	text, err := e.Fingerprint(context.Background(), Text("aaaabbbbcc"))
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	file := fingerprintBytes(t, e, []byte("aaaabbbbcc"))
	// The text path never chunks, so multi-chunk content diverges. Content
	// that fits in a single chunk coincides only because a one-leaf tree is
	// its own root.
	if text == file {
		t.Fatal("multi-chunk file and text digests unexpectedly agree")
	}
}

func TestLegacyLeadingChunk(t *testing.T) {
	legacy := New(WithLegacyLeadingChunk(true))
	const wantHello = "1d25c19a1a3fb65c78d018561057362916c14bfd36b75aa8cb0f4d696293b183"
	if got := fingerprintBytes(t, legacy, []byte("hello")); got != wantHello {
		t.Fatalf("legacy hello = %s, want %s", got, wantHello)
	}

	data := bytes.Join([][]byte{
		bytes.Repeat([]byte{0x00}, ChunkSize),
		bytes.Repeat([]byte{0x01}, ChunkSize),
		bytes.Repeat([]byte{0x02}, 1024),
	}, nil)
	const wantThree = "20580ddbfb3eb7f15ea18689642a180067394302be724d7e0e707a58d65811bb"
	if got := fingerprintBytes(t, legacy, data); got != wantThree {
		t.Fatalf("legacy three-chunk = %s, want %s", got, wantThree)
	}

	if got := fingerprintBytes(t, legacy, nil); got != emptySHA256 {
		t.Fatalf("legacy empty file = %s, want %s", got, emptySHA256)
	}
}

func TestFileReadFailureAbortsCall(t *testing.T) {
	boom := errors.New("device unplugged")
	in := Reader("flaky.bin", &failingReader{after: 2500, err: boom}, 4096)
	for _, workers := range []int{1, 4} {
		got, err := New(WithChunkSize(1024), WithWorkers(workers)).Fingerprint(context.Background(), in)
		if !errors.Is(err, ErrIO) || !errors.Is(err, boom) {
			t.Fatalf("workers=%d: expected ErrIO wrapping %v, got %v", workers, boom, err)
		}
		if got != "" {
			t.Fatalf("workers=%d: expected no partial result, got %q", workers, got)
		}
		in.r = &failingReader{after: 2500, err: boom}
	}
}

func TestFileCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := bytes.Repeat([]byte{1}, 4096)
	_, err := New(WithChunkSize(1024)).Fingerprint(ctx, Reader("x", bytes.NewReader(data), int64(len(data))))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := New().FingerprintFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrIO wrapping ErrNotExist, got %v", err)
	}
}

func TestLargeFileHoldsBoundedChunks(t *testing.T) {
	const (
		chunkSize = 1024
		chunks    = 200
	)
	size := int64(chunkSize*chunks - 7)

	for _, workers := range []int{1, 4} {
		var (
			mu     sync.Mutex
			allocs int
		)
		e := New(WithChunkSize(chunkSize), WithWorkers(workers))
		e.alloc = func(n int) []byte {
			mu.Lock()
			allocs++
			mu.Unlock()
			return make([]byte, n)
		}

		src := &patternReader{size: size}
		var progress []Progress
		e.progress = func(p Progress) { progress = append(progress, p) }

		if _, err := e.Fingerprint(context.Background(), Reader("big.bin", src, size)); err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if allocs > workers {
			t.Fatalf("workers=%d: allocated %d chunk buffers", workers, allocs)
		}
		if src.maxRead > chunkSize {
			t.Fatalf("workers=%d: single read of %d bytes exceeds chunk size", workers, src.maxRead)
		}
		if src.served != size {
			t.Fatalf("workers=%d: served %d bytes, want %d", workers, src.served, size)
		}
		if len(progress) != chunks {
			t.Fatalf("workers=%d: %d progress events, want %d", workers, len(progress), chunks)
		}
		if last := progress[len(progress)-1]; last.BytesRead != size || last.Chunk != chunks {
			t.Fatalf("workers=%d: final progress %+v", workers, last)
		}
	}
}

func TestFingerprintTimeoutInterruptsBlockedRead(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	in := Reader("slow", stallingReader{release: release}, 10)

	start := time.Now()
	_, err := New().FingerprintTimeout(context.Background(), in, 50*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout took %s to fire", elapsed)
	}
}

func TestCancelClosesInputHandle(t *testing.T) {
	pr, pw := io.Pipe()
	in := Input{Kind: KindFile, name: "pipe", r: pr, size: 10, closer: pr}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := New().Fingerprint(ctx, in)
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not interrupt the pending read")
	}
	if _, err := pw.Write([]byte("x")); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected the read side to be closed, write returned %v", err)
	}
}

func TestFingerprintTimeoutDisabled(t *testing.T) {
	in := Reader("small", strings.NewReader("hello"), 5)
	got, err := New().FingerprintTimeout(context.Background(), in, 0)
	if err != nil {
		t.Fatalf("FingerprintTimeout: %v", err)
	}
	if want := Sum([]byte("hello")).Hex(); got != want {
		t.Fatalf("digest = %s, want %s", got, want)
	}
}

// patternReader serves size deterministic bytes without backing storage.
type patternReader struct {
	size    int64
	served  int64
	maxRead int
}

func (p *patternReader) Read(b []byte) (int, error) {
	if p.served >= p.size {
		return 0, io.EOF
	}
	if len(b) > p.maxRead {
		p.maxRead = len(b)
	}
	n := int64(len(b))
	if remaining := p.size - p.served; n > remaining {
		n = remaining
	}
	for i := int64(0); i < n; i++ {
		b[i] = byte((p.served + i) % 251)
	}
	p.served += n
	return int(n), nil
}

// stallingReader blocks every read until release is closed.
type stallingReader struct {
	release <-chan struct{}
}

func (r stallingReader) Read([]byte) (int, error) {
	<-r.release
	return 0, errors.New("released")
}

func TestSpoolRemovesFileOnClose(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)

	in, err := Spool("stdin", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Spool: %v", err)
	}
	if in.Name() != "stdin" || in.Size() != 5 {
		t.Fatalf("unexpected metadata: name=%q size=%d", in.Name(), in.Size())
	}
	got, err := New().Fingerprint(context.Background(), in)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if want := Sum([]byte("hello")).Hex(); got != want {
		t.Fatalf("digest = %s, want %s", got, want)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("spool file left behind: %v", entries)
	}
}

func TestSpoolReadFailure(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	_, err := Spool("stdin", &failingReader{after: 4, err: errors.New("stdin closed")})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestInputMetadata(t *testing.T) {
	in := Reader("Thesis.PDF", strings.NewReader("x"), 1)
	if in.Format() != ".pdf" {
		t.Fatalf("format = %q", in.Format())
	}
	if in.Name() != "Thesis.PDF" || in.Size() != 1 {
		t.Fatalf("unexpected metadata: %q %d", in.Name(), in.Size())
	}
	if Text("héllo").Size() != 6 {
		t.Fatalf("text size should count UTF-8 bytes")
	}
	if Text("x").Format() != "" {
		t.Fatal("text input has no format")
	}
}
