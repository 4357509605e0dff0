package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/stucon/stucon/internal/catalog"
	"github.com/stucon/stucon/internal/forms"
	"github.com/stucon/stucon/internal/logging"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := forms.LoginForm{Email: email, Password: password}
			if err := form.Validate(); err != nil {
				return err
			}
			token, err := a.client.Login(cmd.Context(), form.Email, form.Password)
			if err != nil {
				return err
			}
			if err := a.store.SetSession(token, form.Email); err != nil {
				return err
			}
			logging.Info("logged in", "email", form.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", form.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", os.Getenv("STUCON_PASSWORD"), "account password (default $STUCON_PASSWORD)")
	return cmd
}

func (a *app) signupCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := forms.SignupForm{Name: name, Email: email, Password: password, Confirm: password}
			if err := form.Validate(); err != nil {
				return err
			}
			token, err := a.client.Signup(cmd.Context(), form.Name, form.Email, form.Password)
			if err != nil {
				return err
			}
			if err := a.store.SetSession(token, form.Email); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account created successfully!")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", os.Getenv("STUCON_PASSWORD"), "password, at least 6 characters")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget saved filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store.Session()
			if err != nil {
				return err
			}
			if s.Token != "" {
				if err := a.client.Logout(cmd.Context(), s.Email, s.Token); err != nil {
					logging.Warn("backend logout failed", "error", err)
				}
			}
			if err := a.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func printOptions(w io.Writer, opts []catalog.Option) {
	if len(opts) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	for _, o := range opts {
		fmt.Fprintf(w, "%-12s %s\n", o.ID, o.Name)
	}
}

func (a *app) schemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "List schemes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.client.ListSchemes(cmd.Context())
			if err != nil {
				return err
			}
			printOptions(cmd.OutOrStdout(), opts)
			return nil
		},
	}
}

func (a *app) branchesCmd() *cobra.Command {
	var scheme string
	cmd := &cobra.Command{
		Use:   "branches",
		Short: "List branches, optionally within a scheme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.client.ListBranches(cmd.Context(), scheme)
			if err != nil {
				return err
			}
			printOptions(cmd.OutOrStdout(), opts)
			return nil
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", "", "scheme id")
	return cmd
}

func (a *app) subjectsCmd() *cobra.Command {
	var scheme, branch string
	var sem int
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "List subjects for a scheme, branch and semester",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.client.ListSubjects(cmd.Context(), scheme, branch, sem)
			if err != nil {
				return err
			}
			printOptions(cmd.OutOrStdout(), opts)
			return nil
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", "", "scheme id")
	cmd.Flags().StringVar(&branch, "branch", "", "branch id")
	cmd.Flags().IntVar(&sem, "sem", 0, "semester (1-8)")
	return cmd
}

func (a *app) docsCmd() *cobra.Command {
	var q catalog.Query
	var page int
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List documents matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 1 {
				return fmt.Errorf("--page must be at least 1, got %d", page)
			}
			q.Limit = a.cfg.UI.PageSize
			q.Offset = (page - 1) * q.Limit
			res, err := a.client.SearchDocuments(cmd.Context(), q)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(res.Items) == 0 {
				fmt.Fprintln(out, "No documents found")
				return nil
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "TITLE", "TYPE", "SUBJECT", "SEM", "BY", "DOWNLOADS")
			for _, d := range res.Items {
				sem := ""
				if d.Semester > 0 {
					sem = strconv.Itoa(d.Semester)
				}
				t.Row(d.ID, d.Title, d.Type, d.Subject, sem, d.Publisher, humanize.Comma(int64(d.Downloads)))
			}
			fmt.Fprintln(out, t.String())

			pages := (res.Total + q.Limit - 1) / q.Limit
			fmt.Fprintf(out, "%d documents found, page %d of %d\n", res.Total, page, max(pages, 1))
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Scheme, "scheme", "", "scheme id")
	cmd.Flags().StringVar(&q.Branch, "branch", "", "branch id")
	cmd.Flags().IntVar(&q.Semester, "sem", 0, "semester (1-8)")
	cmd.Flags().StringVar(&q.Subject, "subject", "", "subject id")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one document's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client.GetDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			row := func(label, value string) {
				if value != "" {
					fmt.Fprintf(out, "%-10s %s\n", label+":", value)
				}
			}
			row("Title", d.Title)
			row("Type", d.Type)
			row("Publisher", d.Publisher)
			row("Scheme", d.Scheme)
			row("Branch", d.Branch)
			if d.Semester > 0 {
				row("Semester", strconv.Itoa(d.Semester))
			}
			row("Subject", d.Subject)
			if !d.Uploaded.IsZero() {
				row("Uploaded", d.Uploaded.Format("2 Jan 2006"))
			}
			row("Downloads", humanize.Comma(int64(d.Downloads)))
			return nil
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Download a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			path := output
			if path == "" {
				d, err := a.client.GetDocument(cmd.Context(), id)
				if err != nil {
					return err
				}
				path = filepath.Join(a.cfg.DownloadDir, d.FileName())
			}
			n, err := a.client.DownloadTo(cmd.Context(), id, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", humanize.Bytes(uint64(n)), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default: download dir + document title)")
	return cmd
}

func (a *app) uploadCmd() *cobra.Command {
	var form forms.UploadForm
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a PDF, DOC or DOCX document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.store.IsAuthenticated() {
				return errors.New("not logged in; run 'stucon login' first")
			}
			form.Path = args[0]
			file, err := form.Validate()
			if err != nil {
				return err
			}

			f, err := os.Open(file.Path)
			if err != nil {
				return err
			}
			defer f.Close()

			err = a.client.Upload(cmd.Context(), catalog.UploadRequest{
				UserID:    a.cfg.API.UserID,
				SchemeID:  form.Scheme,
				BranchID:  form.Branch,
				SubjectID: form.Subject,
				Semester:  form.Semester,
				Title:     form.Title,
				FileType:  file.FileType,
				Size:      file.Size,
				Body:      f,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Document uploaded successfully!")
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Title, "title", "", "document title")
	cmd.Flags().StringVar(&form.Scheme, "scheme", "", "scheme id")
	cmd.Flags().StringVar(&form.Branch, "branch", "", "branch id")
	cmd.Flags().IntVar(&form.Semester, "sem", 0, "semester (1-8)")
	cmd.Flags().StringVar(&form.Subject, "subject", "", "subject id")
	return cmd
}
