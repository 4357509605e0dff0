package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// flexString accepts a JSON string or number (ids arrive both ways).
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// first returns the first non-empty value.
func first(vals ...flexString) string {
	for _, v := range vals {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

// wireOption covers every spelling seen for schemes, branches and subjects.
// encoding/json matches keys case-insensitively, so "branchID" also catches
// "branchid" and "BranchId".
type wireOption struct {
	BranchID        flexString `json:"branch_id"`
	BranchIDCamel   flexString `json:"branchID"`
	BranchName      flexString `json:"branch_name"`
	BranchNameCamel flexString `json:"branchName"`

	SubjectID        flexString `json:"subject_id"`
	SubjectIDCamel   flexString `json:"subjectID"`
	SubjectName      flexString `json:"subject_name"`
	SubjectNameCamel flexString `json:"subjectName"`

	SchemeID        flexString `json:"scheme_id"`
	SchemeIDCamel   flexString `json:"schemeID"`
	SchemeName      flexString `json:"scheme_name"`
	SchemeNameCamel flexString `json:"schemeName"`

	ID   flexString `json:"id"`
	Name flexString `json:"name"`
}

// option picks the id and name for the given kind ("scheme", "branch" or
// "subject") first, so a subject row that also carries branch_id is not
// mistaken for a branch.
func (w wireOption) option(kind string) Option {
	var id, name string
	switch kind {
	case "branch":
		id = first(w.BranchID, w.BranchIDCamel)
		name = first(w.BranchName, w.BranchNameCamel)
	case "subject":
		id = first(w.SubjectID, w.SubjectIDCamel)
		name = first(w.SubjectName, w.SubjectNameCamel)
	case "scheme":
		id = first(w.SchemeID, w.SchemeIDCamel)
		name = first(w.SchemeName, w.SchemeNameCamel)
	}
	if id == "" {
		id = first(w.ID)
	}
	if name == "" {
		name = first(w.Name)
	}
	if name == "" {
		name = id
	}
	if id == "" {
		id = name
	}
	return Option{ID: id, Name: name}
}

type wireDocument struct {
	DocumentID      flexString `json:"document_id"`
	MaterialID      flexString `json:"material_id"`
	MaterialIDCamel flexString `json:"materialID"`
	ID              flexString `json:"id"`

	Title     flexString `json:"title"`
	Type      flexString `json:"type"`
	FileType  flexString `json:"file_type"`
	FileTypeC flexString `json:"fileType"`
	Publisher flexString `json:"publisher"`

	Scheme      flexString `json:"scheme"`
	Branch      flexString `json:"branch"`
	BranchID    flexString `json:"branch_id"`
	BranchName  flexString `json:"branch_name"`
	Sem         flexString `json:"sem"`
	Semester    flexString `json:"semester"`
	Subject     flexString `json:"subject"`
	SubjectID   flexString `json:"subject_id"`
	SubjectName flexString `json:"subject_name"`

	CreatedAt  flexString `json:"created_at"`
	UploadDate flexString `json:"uploadDate"`
	Downloads  flexString `json:"downloads"`
}

func (w wireDocument) document() Document {
	d := Document{
		ID:        first(w.DocumentID, w.MaterialID, w.MaterialIDCamel, w.ID),
		Title:     first(w.Title),
		Type:      strings.ToUpper(first(w.Type, w.FileType, w.FileTypeC)),
		Publisher: first(w.Publisher),
		Scheme:    first(w.Scheme),
		BranchID:  first(w.BranchID, w.Branch),
		Branch:    first(w.BranchName, w.Branch, w.BranchID),
		SubjectID: first(w.SubjectID, w.Subject),
		Subject:   first(w.SubjectName, w.Subject, w.SubjectID),
		Uploaded:  parseTime(first(w.CreatedAt, w.UploadDate)),
	}
	d.Semester, _ = strconv.Atoi(first(w.Semester, w.Sem))
	d.Downloads, _ = strconv.Atoi(first(w.Downloads))
	return d
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// envelope holds every list wrapper the backend uses.
type envelope struct {
	StrArr     json.RawMessage `json:"strArr"`
	Schemes    json.RawMessage `json:"schemes"`
	BranchArr  json.RawMessage `json:"branchArr"`
	SubjectArr json.RawMessage `json:"subjectArr"`
	DocArr     json.RawMessage `json:"docArr"`
	Items      json.RawMessage `json:"items"`
	Data       json.RawMessage `json:"data"`
	Total      *int            `json:"total"`
}

// unwrapList returns the array inside body and the total, if one was sent.
// A bare array is returned as-is. A null or empty envelope yields an empty list.
func unwrapList(body []byte) (json.RawMessage, *int, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return json.RawMessage("[]"), nil, nil
	}
	if body[0] == '[' {
		return body, nil, nil
	}
	if body[0] != '{' {
		return nil, nil, fmt.Errorf("unexpected response shape starting with %q", body[0])
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, err
	}
	for _, raw := range []json.RawMessage{env.StrArr, env.Schemes, env.BranchArr, env.SubjectArr, env.DocArr, env.Items, env.Data} {
		if len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return raw, env.Total, nil
		}
	}
	return json.RawMessage("[]"), env.Total, nil
}

// decodeOptions parses a list of strings or option objects of the given kind.
func decodeOptions(body []byte, kind string) ([]Option, error) {
	raw, _, err := unwrapList(body)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	opts := make([]Option, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] != '{' {
			var s flexString
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, err
			}
			if v := first(s); v != "" {
				opts = append(opts, Option{ID: v, Name: v})
			}
			continue
		}
		var w wireOption
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, err
		}
		if o := w.option(kind); o.ID != "" {
			opts = append(opts, o)
		}
	}
	return opts, nil
}

// decodePage parses a document list. When the backend sends no total, the
// window is assumed to be the last one: offset + len(items).
func decodePage(body []byte, offset int) (Page, error) {
	raw, total, err := unwrapList(body)
	if err != nil {
		return Page{}, err
	}

	var wire []wireDocument
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Page{}, err
	}

	page := Page{Items: make([]Document, 0, len(wire))}
	for _, w := range wire {
		page.Items = append(page.Items, w.document())
	}
	if total != nil {
		page.Total = *total
	} else {
		page.Total = offset + len(page.Items)
	}
	return page, nil
}

// decodeDocument parses single-document metadata. A null body means not found.
func decodeDocument(body []byte) (Document, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return Document{}, ErrNotFound
	}
	var w wireDocument
	if err := json.Unmarshal(body, &w); err != nil {
		return Document{}, err
	}
	d := w.document()
	if d.ID == "" && d.Title == "" {
		return Document{}, ErrNotFound
	}
	return d, nil
}
