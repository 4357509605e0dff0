package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stucon/stucon/internal/catalog"
)

// fakeAPI is a minimal catalog backend.
type fakeAPI struct {
	mu      sync.Mutex
	uploads []string // query strings
	auth    []string // Authorization headers seen on explore calls
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/user/login":
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret1" {
			_, _ = io.WriteString(w, `{"valid": false}`)
			return
		}
		_, _ = io.WriteString(w, `{"valid": true, "login_session_token": "tok-1"}`)
	case "/api/user/logout":
		w.WriteHeader(http.StatusOK)
	case "/api/explore/schemes":
		f.mu.Lock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"schemes": ["2018", "2022"]}`)
	case "/api/explore/branches":
		_, _ = io.WriteString(w, `[{"branch_id": "CS", "branch_name": "Computer Science"}]`)
	case "/api/explore/subjects":
		_, _ = io.WriteString(w, `[{"subject_id": "CS501", "subject_name": "Compilers"}]`)
	case "/api/explore/documents":
		if r.URL.Query().Get("scheme") == "1999" {
			_, _ = io.WriteString(w, `{"docArr": [], "total": 0}`)
			return
		}
		_, _ = io.WriteString(w, `{"docArr": [{"material_id": "9", "title": "Compiler notes", "type": "pdf", "semester": 5}], "total": 1}`)
	case "/api/file/metadata":
		if r.URL.Query().Get("material-id") != "9" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"material_id": "9", "title": "Compiler notes", "type": "pdf", "semester": 5}`)
	case "/api/download":
		_, _ = io.WriteString(w, "%PDF-1.4 compiler notes")
	case "/api/upload":
		f.mu.Lock()
		f.uploads = append(f.uploads, r.URL.RawQuery)
		f.mu.Unlock()
		_, _ = io.Copy(io.Discard, r.Body)
	default:
		http.NotFound(w, r)
	}
}

type harness struct {
	api     *fakeAPI
	url     string
	cfgPath string
	dir     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := "api:\n  base_url: " + srv.URL + "\n  rate_every: 0s\n" +
		"session:\n  path: " + filepath.Join(dir, "session.db") + "\n" +
		"logging:\n  file: " + filepath.Join(dir, "stucon.log") + "\n" +
		"download_dir: " + filepath.Join(dir, "downloads") + "\n"
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	return &harness{api: api, url: srv.URL, cfgPath: cfgPath, dir: dir}
}

// run executes one stucon invocation and returns its stdout.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	cmd := a.rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", h.cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	a.teardown()
	return out.String(), err
}

func TestLoginPersistsSession(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "login", "--email", "asha@college.edu", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as asha@college.edu")

	// the next invocation sends the stored token
	_, err = h.run(t, "schemes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer tok-1"}, h.api.auth)
}

func TestLoginRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "login", "--email", "asha@college.edu", "--password", "wrong-1")
	require.ErrorIs(t, err, catalog.ErrInvalidCredentials)
	assert.Equal(t, "invalid email or password", userMessage(err))
}

func TestLoginValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "login", "--email", "asha")
	require.Error(t, err)
	assert.Equal(t, "Please fill in all fields", err.Error())
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "login", "--email", "asha@college.edu", "--password", "secret1")
	require.NoError(t, err)

	out, err := h.run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = h.run(t, "schemes")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, h.api.auth)
}

func TestListCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "schemes")
	require.NoError(t, err)
	assert.Contains(t, out, "2018")
	assert.Contains(t, out, "2022")

	out, err = h.run(t, "branches", "--scheme", "2022")
	require.NoError(t, err)
	assert.Contains(t, out, "Computer Science")

	out, err = h.run(t, "subjects", "--scheme", "2022", "--branch", "CS", "--sem", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Compilers")

	_, err = h.run(t, "subjects", "--scheme", "2022")
	assert.True(t, catalog.IsValidation(err), "got %v", err)
}

func TestDocs(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "docs", "--scheme", "2022")
	require.NoError(t, err)
	assert.Contains(t, out, "Compiler notes")
	assert.Contains(t, out, "1 documents found, page 1 of 1")

	out, err = h.run(t, "docs", "--scheme", "1999")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents found")

	_, err = h.run(t, "docs", "--page", "0")
	assert.Error(t, err)
}

func TestShow(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "show", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "Compiler notes")
	assert.Contains(t, out, "PDF")

	_, err = h.run(t, "show", "404")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Equal(t, "document not found", userMessage(err))
}

func TestGet(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "get", "9")
	require.NoError(t, err)
	want := filepath.Join(h.dir, "downloads", "Compiler_notes.pdf")
	assert.Contains(t, out, want)

	b, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 compiler notes", string(b))

	explicit := filepath.Join(h.dir, "copy.pdf")
	_, err = h.run(t, "get", "9", "-o", explicit)
	require.NoError(t, err)
	assert.FileExists(t, explicit)
}

func TestUploadRequiresLogin(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "upload", "notes.pdf", "--title", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestUpload(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "login", "--email", "asha@college.edu", "--password", "secret1")
	require.NoError(t, err)

	file := filepath.Join(h.dir, "unit1.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"), 0o644))

	out, err := h.run(t, "upload", file,
		"--title", "Unit 1", "--scheme", "2022", "--branch", "CS", "--sem", "5", "--subject", "CS501")
	require.NoError(t, err)
	assert.Contains(t, out, "Document uploaded successfully!")

	require.Len(t, h.api.uploads, 1)
	q := h.api.uploads[0]
	for _, part := range []string{"user_id=1", "scheme_id=2022", "subject_id=CS501", "sem=5", "file_type=PDF", "title=Unit+1"} {
		assert.True(t, strings.Contains(q, part), "query %q missing %q", q, part)
	}
}

func TestUploadRejectsWrongType(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "login", "--email", "asha@college.edu", "--password", "secret1")
	require.NoError(t, err)

	file := filepath.Join(h.dir, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("plain"), 0o644))
	_, err = h.run(t, "upload", file,
		"--title", "Unit 1", "--scheme", "2022", "--branch", "CS", "--sem", "5", "--subject", "CS501")
	require.Error(t, err)
	assert.Equal(t, "Please upload a PDF, DOC, or DOCX file", err.Error())
	assert.Empty(t, h.api.uploads)
}

func TestAPIFlagOverridesConfig(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "--api", "http://127.0.0.1:1", "schemes")
	var ne *catalog.NetworkError
	require.True(t, errors.As(err, &ne), "got %v", err)
	assert.Contains(t, userMessage(err), "backend API not available")
}
