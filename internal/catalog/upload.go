package catalog

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Upload sends one document as a raw octet-stream body. Metadata travels in
// the query string.
func (c *Client) Upload(ctx context.Context, req UploadRequest) error {
	const op = "upload"
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"user", req.UserID},
		{"scheme", req.SchemeID},
		{"branch", req.BranchID},
		{"subject", req.SubjectID},
		{"title", req.Title},
		{"file type", req.FileType},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	if req.Semester < 1 || req.Semester > 8 {
		missing = append(missing, "semester")
	}
	if req.Body == nil {
		missing = append(missing, "file")
	}
	if len(missing) > 0 {
		return &ValidationError{Op: op, Missing: missing}
	}

	q := url.Values{}
	q.Set("user_id", req.UserID)
	q.Set("scheme_id", req.SchemeID)
	q.Set("branch_id", req.BranchID)
	q.Set("subject_id", req.SubjectID)
	q.Set("sem", strconv.Itoa(req.Semester))
	q.Set("title", req.Title)
	q.Set("file_type", req.FileType)

	body := req.Body
	if req.Size > 0 {
		body = io.LimitReader(body, req.Size)
	}

	resp, cancel, err := c.do(ctx, op, http.MethodPut, "/api/upload", q, body, "application/octet-stream", false)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
	return nil
}
