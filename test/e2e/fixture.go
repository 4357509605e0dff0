package e2e

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"

	"github.com/stucon/stucon/internal/session"
)

// fakeCatalog serves a fixed catalog and remembers the document queries it saw.
type fakeCatalog struct {
	mu      sync.Mutex
	queries []string
}

func (f *fakeCatalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/explore/schemes":
		_, _ = io.WriteString(w, `[{"scheme_id": "2022", "scheme_name": "Scheme 2022"}]`)
	case "/api/explore/branches":
		_, _ = io.WriteString(w, `[{"branch_id": "CS", "branch_name": "Computer Science"}]`)
	case "/api/explore/subjects":
		_, _ = io.WriteString(w, `[]`)
	case "/api/explore/documents":
		f.mu.Lock()
		f.queries = append(f.queries, r.URL.RawQuery)
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"docArr": [{"material_id": "1", "title": "Fixture Notes One", "type": "pdf", "semester": 3}], "total": 1}`)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeCatalog) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func startCatalog() (*httptest.Server, *fakeCatalog) {
	cat := &fakeCatalog{}
	return httptest.NewServer(cat), cat
}

// seedHome writes ~/.stucon/config.yaml pointing at apiURL and stores a
// logged-in session so the TUI opens on the browser.
func seedHome(homeDir, apiURL string) error {
	dataDir := filepath.Join(homeDir, ".stucon")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	cfg := fmt.Sprintf("api:\n  base_url: %s\n  rate_every: 0s\ndownload_dir: %s\n",
		apiURL, filepath.Join(homeDir, "downloads"))
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(cfg), 0600); err != nil {
		return err
	}

	st, err := session.Open(filepath.Join(dataDir, "session.db"), 0)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SetSession("fixture-token", "fixture@college.edu")
}
