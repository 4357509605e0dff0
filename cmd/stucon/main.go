// Command stucon is a terminal client for the StuCon study-material catalog.
//
// Usage:
//
//	stucon                    Browse documents in the TUI
//	stucon login              Log in and store the session
//	stucon docs --scheme 2022 List documents matching a filter
//	stucon get <id>           Download one document
//
// Run 'stucon <command> -h' for command-specific help.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stucon/stucon/internal/catalog"
	"github.com/stucon/stucon/internal/config"
	"github.com/stucon/stucon/internal/logging"
	"github.com/stucon/stucon/internal/session"
)

// app holds what every command needs once flags are parsed.
type app struct {
	cfgPath string
	api     string
	verbose bool

	cfg    *config.Config
	client *catalog.Client
	store  *session.Store
}

// rootCmd builds the command tree. Call teardown once it has executed.
func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stucon",
		Short: "Browse, download and upload study material",
		Long: `stucon is a terminal client for the StuCon document catalog.

Run without arguments to open the interactive browser. Filters chosen there
are remembered between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ~/.stucon/config.yaml)")
	root.PersistentFlags().StringVar(&a.api, "api", "", "catalog API base URL (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		a.loginCmd(),
		a.signupCmd(),
		a.logoutCmd(),
		a.schemesCmd(),
		a.branchesCmd(),
		a.subjectsCmd(),
		a.docsCmd(),
		a.showCmd(),
		a.getCmd(),
		a.uploadCmd(),
	)
	return root
}

// setup loads configuration, starts logging and opens the session store and
// catalog client.
func (a *app) setup(cmd *cobra.Command) error {
	for _, p := range []string{".env", filepath.Join(config.DataDir(), ".env")} {
		if err := config.LoadEnvFile(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.api != "" {
		cfg.API.BaseURL = a.api
	}
	a.cfg = cfg

	if a.verbose && cmd.Name() != "stucon" {
		logging.InitWriter(cmd.ErrOrStderr(), "debug")
	} else if err := logging.Init(logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}); err != nil {
		return err
	}

	if dir := filepath.Dir(cfg.Session.Path); cfg.Session.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	a.store, err = session.Open(cfg.Session.Path, cfg.Session.TTL)
	if err != nil {
		return err
	}

	a.client, err = catalog.New(catalog.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateEvery: cfg.API.RateEvery,
	})
	if err != nil {
		return err
	}
	if s, err := a.store.Session(); err == nil && s.Token != "" {
		a.client.SetToken(s.Token)
	}

	logging.Debug("configured", "api", cfg.API.BaseURL, "session", cfg.Session.Path)
	return nil
}

func (a *app) teardown() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	logging.Close()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := a.rootCmd().ExecuteContext(ctx)
	a.teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "stucon:", userMessage(err))
		stop()
		os.Exit(1)
	}
}

// userMessage turns catalog errors into one line for the terminal.
func userMessage(err error) string {
	var ne *catalog.NetworkError
	switch {
	case errors.Is(err, catalog.ErrInvalidCredentials):
		return "invalid email or password"
	case errors.Is(err, catalog.ErrNotFound):
		return "document not found"
	case errors.As(err, &ne) && ne.Timeout():
		return "the catalog did not answer in time"
	case errors.As(err, &ne):
		return "backend API not available: " + ne.Err.Error()
	}
	return err.Error()
}
