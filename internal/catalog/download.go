package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DownloadTo streams document id into path. The file is written to a
// temporary name in the same directory and renamed once complete, so a
// failed download never leaves a partial file behind.
func (c *Client) DownloadTo(ctx context.Context, id, path string) (int64, error) {
	rc, err := c.Download(ctx, id)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create download directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".stucon-*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, rc)
	if err != nil {
		tmp.Close()
		return n, &NetworkError{Op: "download", Err: fmt.Errorf("read body: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, fmt.Errorf("move download into place: %w", err)
	}
	return n, nil
}
