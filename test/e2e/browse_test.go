package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
	"github.com/creack/pty"

	"github.com/stucon/stucon/internal/session"
)

// buildStucon builds the stucon binary for testing.
// Returns the path to the binary and a cleanup function.
func buildStucon(t *testing.T) (string, func()) {
	t.Helper()
	dir := t.TempDir()
	binPath := filepath.Join(dir, "stucon")

	rootDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	// Assume we are in test/e2e, go up 2 levels
	rootDir = filepath.Join(rootDir, "..", "..")

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/stucon")
	cmd.Dir = rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}

	return binPath, func() { os.RemoveAll(dir) }
}

func TestE2E_BrowseAndPersistFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and drives the binary")
	}
	binPath, cleanup := buildStucon(t)
	defer cleanup()

	srv, cat := startCatalog()
	defer srv.Close()

	// Clean home directory so the test never touches real data
	homeDir := t.TempDir()
	if err := seedHome(homeDir, srv.URL); err != nil {
		t.Fatalf("failed to seed home: %v", err)
	}

	cmd := exec.Command(binPath)
	cmd.Env = append(os.Environ(), "HOME="+homeDir)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		t.Fatalf("failed to start pty: %v", err)
	}
	defer func() {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
	}()

	if err := pty.Setsize(ptmx, &pty.Winsize{Cols: 120, Rows: 40}); err != nil {
		t.Fatalf("failed to set pty size: %v", err)
	}

	var outputBuf bytes.Buffer
	console, err := expect.NewConsole(
		expect.WithStdin(ptmx),
		expect.WithStdout(&outputBuf),
		expect.WithDefaultTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("failed to create console: %v", err)
	}
	defer console.Close()

	// 1. Startup chain finishes with the unfiltered first page
	if _, err := console.ExpectString("Fixture Notes One"); err != nil {
		if logs, err := os.ReadFile(filepath.Join(homeDir, ".stucon", "logs", "stucon.log")); err == nil {
			t.Logf("stucon.log:\n%s", logs)
		}
		t.Fatalf("startup failed: document not shown: %v\nScreen:\n%s", err, outputBuf.String())
	}
	if _, err := console.ExpectString("documents found"); err != nil {
		t.Fatalf("status bar not shown: %v\nScreen:\n%s", err, outputBuf.String())
	}

	// 2. Focus the scheme control and pick the first scheme
	time.Sleep(300 * time.Millisecond)
	if _, err := console.Send("l"); err != nil {
		t.Fatalf("failed to send l: %v", err)
	}
	if _, err := console.Send("j"); err != nil {
		t.Fatalf("failed to send j: %v", err)
	}
	if _, err := console.ExpectString("Scheme 2022"); err != nil {
		t.Fatalf("scheme not selected: %v\nScreen:\n%s", err, outputBuf.String())
	}

	// 3. Quit
	time.Sleep(300 * time.Millisecond)
	if _, err := console.Send("q"); err != nil {
		t.Fatalf("failed to send q: %v", err)
	}

	done := make(chan error)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("process did not exit after 'q'")
	}

	queries := cat.seen()
	if len(queries) < 2 || !strings.Contains(queries[len(queries)-1], "scheme=2022") {
		t.Errorf("document queries = %v, want a final query scoped to scheme 2022", queries)
	}

	// The selection survives the session
	st, err := session.Open(filepath.Join(homeDir, ".stucon", "session.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	prefs, err := st.FilterPreferences()
	if err != nil {
		t.Fatal(err)
	}
	if prefs.Scheme != "2022" {
		t.Errorf("persisted scheme = %q, want 2022", prefs.Scheme)
	}
}
