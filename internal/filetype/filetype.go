package filetype

import (
	"fmt"
	"strings"
)

// Type is a canonical, lower-cased file extension accepted by the service.
type Type string

const (
	JPG  Type = "jpg"
	JPEG Type = "jpeg"
	PNG  Type = "png"
	GIF  Type = "gif"
	PDF  Type = "pdf"
	TXT  Type = "txt"
	DOC  Type = "doc"
	DOCX Type = "docx"
	XLS  Type = "xls"
	XLSX Type = "xlsx"
	PPT  Type = "ppt"
	PPTX Type = "pptx"
)

// allowed is the fixed allow-list of recognized file types. Order matters
// only for user-facing error messages.
var allowed = []Type{JPG, JPEG, PNG, GIF, PDF, TXT, DOC, DOCX, XLS, XLSX, PPT, PPTX}

// InvalidTypeError reports a filename whose extension is outside the
// allow-list. It carries the allow-list so callers can show it to the user.
type InvalidTypeError struct {
	Ext string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid file type %q, allowed file types: %s", e.Ext, AllowedList())
}

// AllowedList returns the allow-list as a comma-separated string for display.
func AllowedList() string {
	parts := make([]string, len(allowed))
	for i, t := range allowed {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// Classify derives the file type from a filename: the lower-cased token
// after the final '.'. It never trusts a client-declared type; callers must
// re-run it on every save. The derived token must be in the allow-list.
func Classify(fileName string) (Type, error) {
	name := strings.ToLower(fileName)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	t := Type(name)
	for _, a := range allowed {
		if t == a {
			return t, nil
		}
	}
	return "", &InvalidTypeError{Ext: name}
}

// IsImage reports whether the type is one of the raster image formats that
// go through orientation correction and thumbnailing.
func (t Type) IsImage() bool {
	switch t {
	case JPG, JPEG, PNG, GIF:
		return true
	}
	return false
}

// MIME returns the media type to serve files of this type with.
func (t Type) MIME() string {
	switch t {
	case JPG, JPEG:
		return "image/jpeg"
	case PNG:
		return "image/png"
	case GIF:
		return "image/gif"
	case PDF:
		return "application/pdf"
	case TXT:
		return "text/plain"
	case DOC:
		return "application/msword"
	case DOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case XLS:
		return "application/vnd.ms-excel"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PPT:
		return "application/vnd.ms-powerpoint"
	case PPTX:
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	}
	return "application/octet-stream"
}
