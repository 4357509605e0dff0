package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stucon/stucon/internal/trace"
)

func TestDebugOverlayNilRing(t *testing.T) {
	result := debugOverlay(nil, 80, 24)
	if result != "" {
		t.Errorf("debugOverlay(nil) should return empty string, got %q", result)
	}
}

func TestDebugOverlayRendersStats(t *testing.T) {
	ring := trace.NewRing(64)
	ring.Record(trace.Event{Kind: trace.KindRequest, Time: time.Now()})
	ring.Record(trace.Event{Kind: trace.KindRequest, Time: time.Now()})
	ring.Record(trace.Event{Kind: trace.KindApplied, Time: time.Now()})
	ring.Record(trace.Event{Kind: trace.KindStale, Time: time.Now()})
	ring.Record(trace.Event{Kind: trace.KindPrefs, Time: time.Now()})

	result := debugOverlay(ring, 80, 40)

	if !strings.Contains(result, "Catalog Stats") {
		t.Error("overlay should contain 'Catalog Stats' header")
	}
	if !strings.Contains(result, "2 issued, 1 applied, 0 failed") {
		t.Errorf("overlay should show request stats, got:\n%s", result)
	}
	if !strings.Contains(result, "1 stale, 0 page no-ops") {
		t.Errorf("overlay should show discard stats, got:\n%s", result)
	}
	if !strings.Contains(result, "5 / 64 events") {
		t.Errorf("overlay should show buffer stats, got:\n%s", result)
	}
}

func TestDebugOverlayRecentEvents(t *testing.T) {
	ring := trace.NewRing(64)
	ring.Record(trace.Event{Kind: trace.KindApplied, Time: time.Now(), Op: "documents", Gen: 7, Count: 20})
	ring.Record(trace.Event{Kind: trace.KindFailed, Time: time.Now(), Op: "schemes", Gen: 1, Err: "timeout"})
	ring.Record(trace.Event{Kind: trace.KindPrefs, Time: time.Now(), Msg: "2022/CS"})

	result := debugOverlay(ring, 80, 40)

	if !strings.Contains(result, "Recent Events") {
		t.Error("overlay should contain 'Recent Events' header")
	}
	if !strings.Contains(result, "documents#7") || !strings.Contains(result, "n=20") {
		t.Errorf("overlay should show op, generation and count, got:\n%s", result)
	}
	if !strings.Contains(result, "ERR:timeout") {
		t.Errorf("overlay should show error, got:\n%s", result)
	}
	if !strings.Contains(result, "2022/CS") {
		t.Errorf("overlay should show event message, got:\n%s", result)
	}
}

func TestDebugOverlayTruncation(t *testing.T) {
	ring := trace.NewRing(64)
	for i := 0; i < 30; i++ {
		ring.Record(trace.Event{Kind: trace.KindRequest, Time: time.Now()})
	}

	result := debugOverlay(ring, 80, 10)
	if result == "" {
		t.Error("overlay should still render with small height")
	}

	// height=10 leaves 6 content lines plus border and padding
	lines := strings.Count(result, "\n")
	if lines > 20 {
		t.Errorf("overlay should be truncated, got %d lines", lines)
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0ms"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{3 * time.Minute, "3m"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.d); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestDebugToggle(t *testing.T) {
	a, _ := loggedIn(t, newFakeBackend())
	a.width = 80
	a.height = 24

	if a.showDebug {
		t.Error("debug should be hidden initially")
	}

	model, _ := a.Update(runes("?"))
	updated := model.(App)
	if !updated.showDebug {
		t.Error("? should show debug overlay")
	}

	view := updated.View()
	if !strings.Contains(view, "[DEBUG]") {
		t.Errorf("debug view should contain '[DEBUG]', got:\n%s", view)
	}
	if !strings.Contains(view, "catalog.applied") {
		t.Errorf("debug view should list controller events, got:\n%s", view)
	}

	// other keys are swallowed while the overlay is up
	model, cmd := updated.Update(runes("n"))
	updated = model.(App)
	if cmd != nil {
		t.Error("keys should not reach the browser while debug is shown")
	}

	model, _ = updated.Update(runes("?"))
	updated = model.(App)
	if updated.showDebug {
		t.Error("second ? should hide debug overlay")
	}
}

func TestDebugOverlayShowsFailures(t *testing.T) {
	b := newFakeBackend()
	b.docsErr = errors.New("boom")
	a, _ := loggedIn(t, b)
	a.width = 100
	a.height = 40

	model, _ := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	view := model.(App).View()
	if !strings.Contains(view, "ERR:boom") {
		t.Errorf("failed document load should appear in the overlay:\n%s", view)
	}
}
