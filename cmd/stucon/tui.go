package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stucon/stucon/internal/logging"
	"github.com/stucon/stucon/internal/trace"
	"github.com/stucon/stucon/internal/ui"
)

// traceRingSize bounds the events kept for the debug overlay.
const traceRingSize = 256

func (a *app) runTUI(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.New(ctx, ui.Config{
		Backend:     a.client,
		Session:     a.store,
		Ring:        trace.NewRing(traceRingSize),
		PageSize:    a.cfg.UI.PageSize,
		DownloadDir: a.cfg.DownloadDir,
		UserID:      a.cfg.API.UserID,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		logging.Error("tui exited", "error", err)
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
