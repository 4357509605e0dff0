package forms

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, err error) string {
	t.Helper()
	var fe *Error
	require.ErrorAs(t, err, &fe)
	return fe.Message
}

func TestLoginForm(t *testing.T) {
	tests := []struct {
		name string
		form LoginForm
		want string
	}{
		{"empty", LoginForm{}, "Please fill in all fields"},
		{"missing password", LoginForm{Email: "a@b.c"}, "Please fill in all fields"},
		{"bad email", LoginForm{Email: "ab.c", Password: "x"}, "Please enter a valid email address"},
		{"ok", LoginForm{Email: "  a@b.c ", Password: "x"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				assert.Equal(t, "a@b.c", tt.form.Email)
				return
			}
			assert.Equal(t, tt.want, message(t, err))
		})
	}
}

func TestSignupForm(t *testing.T) {
	tests := []struct {
		name string
		form SignupForm
		want string
	}{
		{"missing name", SignupForm{Email: "a@b.c", Password: "secret1", Confirm: "secret1"}, "Please fill in all fields"},
		{"bad email", SignupForm{Name: "Ana", Email: "nope", Password: "secret1", Confirm: "secret1"}, "Please enter a valid email address"},
		{"short password", SignupForm{Name: "Ana", Email: "a@b.c", Password: "abc", Confirm: "abc"}, "Password must be at least 6 characters long"},
		{"mismatch", SignupForm{Name: "Ana", Email: "a@b.c", Password: "secret1", Confirm: "secret2"}, "Passwords do not match"},
		{"ok", SignupForm{Name: "Ana", Email: "a@b.c", Password: "secret1", Confirm: "secret1"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, message(t, err))
		})
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeDocx(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range []string{"[Content_Types].xml", "word/document.xml"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("<xml/>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func validUpload(path string) UploadForm {
	return UploadForm{Title: "Notes", Scheme: "2022", Branch: "CS", Semester: 5, Subject: "CS501", Path: path}
}

func TestUploadFieldOrder(t *testing.T) {
	tests := []struct {
		name string
		form UploadForm
		want string
	}{
		{"title first", UploadForm{}, "Please enter a document title"},
		{"scheme", UploadForm{Title: "t"}, "Please select a scheme"},
		{"branch", UploadForm{Title: "t", Scheme: "2022"}, "Please select a branch"},
		{"semester", UploadForm{Title: "t", Scheme: "2022", Branch: "CS"}, "Please select a semester"},
		{"semester range", UploadForm{Title: "t", Scheme: "2022", Branch: "CS", Semester: 9}, "Please select a semester"},
		{"subject", UploadForm{Title: "t", Scheme: "2022", Branch: "CS", Semester: 1}, "Please select a subject"},
		{"file", UploadForm{Title: "t", Scheme: "2022", Branch: "CS", Semester: 1, Subject: "X"}, "Please select a file to upload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.form.Validate()
			assert.Equal(t, tt.want, message(t, err))
		})
	}
}

func TestUploadPDF(t *testing.T) {
	path := writeFile(t, "notes.PDF", []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	form := validUpload(path)
	got, err := form.Validate()
	require.NoError(t, err)
	assert.Equal(t, "PDF", got.FileType)
	assert.Equal(t, "application/pdf", got.MIME)
	assert.Positive(t, got.Size)
}

func TestUploadDocx(t *testing.T) {
	form := validUpload(writeDocx(t))
	got, err := form.Validate()
	require.NoError(t, err)
	assert.Equal(t, "DOCX", got.FileType)
}

func TestUploadRejectsExtension(t *testing.T) {
	form := validUpload(writeFile(t, "notes.txt", []byte("hello")))
	_, err := form.Validate()
	assert.Equal(t, "Please upload a PDF, DOC, or DOCX file", message(t, err))
}

func TestUploadRejectsMismatchedContent(t *testing.T) {
	form := validUpload(writeFile(t, "notes.pdf", []byte("just some text")))
	_, err := form.Validate()
	assert.Contains(t, message(t, err), "does not match")
}

func TestUploadRejectsLargeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.pdf")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte("%PDF-1.4\n"))
	require.NoError(t, err)
	require.NoError(t, f.Truncate(MaxUploadSize+1))
	require.NoError(t, f.Close())

	form := validUpload(path)
	_, err = form.Validate()
	assert.Equal(t, "File size must be less than 10MB", message(t, err))
}

func TestUploadMissingFile(t *testing.T) {
	form := validUpload(filepath.Join(t.TempDir(), "gone.pdf"))
	_, err := form.Validate()
	assert.Contains(t, message(t, err), "Cannot read file")
}
