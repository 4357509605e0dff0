// Package forms validates the login, signup and upload forms before anything
// is sent to the backend.
package forms

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

// MaxUploadSize is the largest accepted upload.
const MaxUploadSize = 10 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Error is a form problem with a user-facing message.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

const msgFillAll = "Please fill in all fields"

// messages maps "Field.tag" to what the user sees.
var messages = map[string]string{
	"Email.contains":    "Please enter a valid email address",
	"Password.min":      "Password must be at least 6 characters long",
	"Confirm.eqfield":   "Passwords do not match",
	"Title.required":    "Please enter a document title",
	"Scheme.required":   "Please select a scheme",
	"Branch.required":   "Please select a branch",
	"Semester.required": "Please select a semester",
	"Semester.min":      "Please select a semester",
	"Semester.max":      "Please select a semester",
	"Subject.required":  "Please select a subject",
	"Path.required":     "Please select a file to upload",
}

// check runs struct validation. With fillAll set, any missing field is
// reported as one "fill in all fields" message before other problems.
func check(form any, fillAll bool) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate form: %w", err)
	}

	if fillAll {
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return &Error{Field: fe.Field(), Message: msgFillAll}
			}
		}
	}

	fe := verrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return &Error{Field: fe.Field(), Message: msg}
	}
	return &Error{Field: fe.Field(), Message: fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))}
}

// LoginForm is the login screen.
type LoginForm struct {
	Email    string `validate:"required,contains=@"`
	Password string `validate:"required"`
}

// Validate trims the email and checks the form.
func (f *LoginForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	return check(f, true)
}

// SignupForm is the account creation screen.
type SignupForm struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,contains=@"`
	Password string `validate:"required,min=6"`
	Confirm  string `validate:"required,eqfield=Password"`
}

// Validate trims name and email and checks the form.
func (f *SignupForm) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	return check(f, true)
}

// UploadForm is the document upload screen.
type UploadForm struct {
	Title    string `validate:"required"`
	Scheme   string `validate:"required"`
	Branch   string `validate:"required"`
	Semester int    `validate:"required,min=1,max=8"`
	Subject  string `validate:"required"`
	Path     string `validate:"required"`
}

// UploadFile is a checked upload candidate.
type UploadFile struct {
	Path     string
	FileType string // "PDF", "DOC" or "DOCX"
	Size     int64
	MIME     string
}

// accepted lists the detected types (or their parents) allowed per extension.
var accepted = map[string][]string{
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
}

// Validate checks the fields in screen order, then the file: extension,
// size and sniffed content type.
func (f *UploadForm) Validate() (UploadFile, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Path = strings.TrimSpace(f.Path)
	if err := check(f, false); err != nil {
		return UploadFile{}, err
	}

	ext := strings.ToLower(filepath.Ext(f.Path))
	allowed, ok := accepted[ext]
	if !ok {
		return UploadFile{}, &Error{Field: "Path", Message: "Please upload a PDF, DOC, or DOCX file"}
	}

	info, err := os.Stat(f.Path)
	if err != nil {
		return UploadFile{}, &Error{Field: "Path", Message: fmt.Sprintf("Cannot read file: %v", err)}
	}
	if info.IsDir() {
		return UploadFile{}, &Error{Field: "Path", Message: "Please select a file to upload"}
	}
	if info.Size() > MaxUploadSize {
		return UploadFile{}, &Error{Field: "Path", Message: "File size must be less than 10MB"}
	}

	mtype, err := mimetype.DetectFile(f.Path)
	if err != nil {
		return UploadFile{}, &Error{Field: "Path", Message: fmt.Sprintf("Cannot read file: %v", err)}
	}
	if !matches(mtype, allowed) {
		return UploadFile{}, &Error{
			Field:   "Path",
			Message: fmt.Sprintf("File content (%s) does not match its %s extension", mtype.String(), ext),
		}
	}

	return UploadFile{
		Path:     f.Path,
		FileType: strings.ToUpper(strings.TrimPrefix(ext, ".")),
		Size:     info.Size(),
		MIME:     mtype.String(),
	}, nil
}

func matches(mtype *mimetype.MIME, allowed []string) bool {
	for m := mtype; m != nil; m = m.Parent() {
		for _, a := range allowed {
			if m.Is(a) {
				return true
			}
		}
	}
	return false
}
