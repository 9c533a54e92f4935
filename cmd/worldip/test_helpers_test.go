package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"worldip/internal/ownership"
	"worldip/internal/registry"
)

const (
	aliceAddr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bobAddr   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

// fakeBackend is an in-memory registry speaking the backend's JSON envelope.
type fakeBackend struct {
	mu       sync.Mutex
	server   *httptest.Server
	certs    map[string]*registry.Certificate
	users    map[string]registry.User
	creates  []registry.CreateRequest
	requests []string
	nextID   int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		certs:  make(map[string]*registry.Certificate),
		users:  make(map[string]registry.User),
		nextID: 1,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /certificates/create", b.create)
	mux.HandleFunc("POST /certificates/update", b.update)
	mux.HandleFunc("GET /certificates/user/{addr}", b.listByUser)
	mux.HandleFunc("GET /certificates/{id}", b.get)
	mux.HandleFunc("GET /users/isUser/{addr}", b.isUser)
	mux.HandleFunc("POST /users/register", b.registerUser)
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) URL() string { return b.server.URL }

func (b *fakeBackend) create(w http.ResponseWriter, r *http.Request) {
	var req registry.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}
	b.mu.Lock()
	id := strconv.Itoa(b.nextID)
	b.nextID++
	b.creates = append(b.creates, req)
	b.certs[id] = &registry.Certificate{
		ID:              registry.CertificateID(id),
		FileHash:        req.FileHash,
		MetadataURI:     req.MetadataURI,
		Description:     req.Description,
		FileFormat:      req.FileFormat,
		Owners:          req.Owners,
		Timestamp:       time.Now().Unix(),
		TransactionHash: "0xtx" + id,
	}
	b.mu.Unlock()
	writeEnvelope(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Certificate created",
		"transaction":   "0xtx" + id,
		"certificateId": id,
	})
}

func (b *fakeBackend) update(w http.ResponseWriter, r *http.Request) {
	var req registry.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cert, ok := b.certs[req.CertificateID.String()]
	if !ok {
		writeEnvelope(w, http.StatusNotFound, map[string]any{"success": false, "message": "Certificate not found"})
		return
	}
	rev := registry.Revision{
		FileHash:        req.UpdatedFileHash,
		Description:     req.UpdatedDescription,
		Timestamp:       time.Now().Unix(),
		TransactionHash: "0xupd",
	}
	cert.Updates = append(cert.Updates, rev)
	cert.Description = req.UpdatedDescription
	writeEnvelope(w, http.StatusOK, map[string]any{
		"success":     true,
		"transaction": "0xupd",
		"updateEntry": rev,
	})
}

func (b *fakeBackend) listByUser(w http.ResponseWriter, r *http.Request) {
	addr, err := ownership.ParseAddress(r.PathValue("addr"))
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int, 0)
	for i := 1; i < b.nextID; i++ {
		if cert, ok := b.certs[strconv.Itoa(i)]; ok && cert.Owners.Contains(addr) {
			ids = append(ids, i)
		}
	}
	writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": ids})
}

func (b *fakeBackend) get(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cert, ok := b.certs[r.PathValue("id")]
	if !ok {
		writeEnvelope(w, http.StatusNotFound, map[string]any{"success": false, "message": "Certificate not found"})
		return
	}
	writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": cert})
}

func (b *fakeBackend) isUser(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	_, ok := b.users[strings.ToLower(r.PathValue("addr"))]
	b.mu.Unlock()
	writeEnvelope(w, http.StatusOK, map[string]any{"success": ok})
}

func (b *fakeBackend) registerUser(w http.ResponseWriter, r *http.Request) {
	var user registry.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeEnvelope(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}
	b.mu.Lock()
	b.users[strings.ToLower(user.UserAddress)] = user
	b.mu.Unlock()
	writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "transaction": "0xuser"})
}

func (b *fakeBackend) user(addr string) (registry.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	user, ok := b.users[strings.ToLower(addr)]
	return user, ok
}

func (b *fakeBackend) createRequests() []registry.CreateRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]registry.CreateRequest(nil), b.creates...)
}

func (b *fakeBackend) requestCount(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, req := range b.requests {
		if strings.HasPrefix(req, prefix) {
			n++
		}
	}
	return n
}

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type cliTestEnv struct {
	backend    *fakeBackend
	configPath string
	baseDir    string
	stateDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	env := setupOfflineCLITestEnv(t)
	env.backend = newFakeBackend(t)
	writeTestConfig(t, env.configPath, env.backend.URL(), env.stateDir)
	return env
}

// setupOfflineCLITestEnv writes a config without a registry URL.
func setupOfflineCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("WORLDIP_API_URL", "")
	t.Setenv("WORLDIP_API_TOKEN", "")
	t.Setenv("WORLDIP_STATE_DIR", "")

	env := &cliTestEnv{
		configPath: filepath.Join(base, "config.toml"),
		baseDir:    base,
		stateDir:   filepath.Join(base, "state"),
	}
	writeTestConfig(t, env.configPath, "", env.stateDir)
	return env
}

func writeTestConfig(t *testing.T, path, baseURL, stateDir string) {
	t.Helper()
	content := fmt.Sprintf(
		"[api]\nbase_url = %q\ntimeout_seconds = 5\n\n[paths]\nstate_dir = %q\n\n[logging]\nlevel = \"error\"\n",
		baseURL,
		stateDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// runCLI executes the CLI against env's config and returns stdout, stderr
// and the exit status.
func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, int) {
	t.Helper()
	return runCLIWithStdin(t, env, strings.NewReader(""), args...)
}

// runCLIWithStdin is runCLI with stdin served from r.
func runCLIWithStdin(t *testing.T, env *cliTestEnv, stdin io.Reader, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	flags := []string{"--config", env.configPath}
	code := run(context.Background(), append(flags, args...), stdin, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// mustRunCLI fails the test unless the command exits 0.
func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, errOut, code := runCLI(t, env, args...)
	if code != 0 {
		t.Fatalf("worldip %s: exit %d\nstdout: %s\nstderr: %s", strings.Join(args, " "), code, out, errOut)
	}
	return out
}

func requireExit(t *testing.T, got, want int, stderr string) {
	t.Helper()
	if got != want {
		t.Fatalf("exit code = %d, want %d (stderr: %s)", got, want, stderr)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func login(t *testing.T, env *cliTestEnv, addr string) {
	t.Helper()
	mustRunCLI(t, env, "login", "--address", addr)
}
