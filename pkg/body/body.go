// Package body serializes POST payloads: raw bytes, URL-encoded forms, and
// multipart/form-data with plain fields and file parts.
package body

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/wirehttp/go-wirehttp/pkg/errors"
)

// DefaultBoundary is the fixed multipart boundary token used when the caller
// does not supply one.
const DefaultBoundary = "----wirehttp-7a45c3d2e81b9f06"

// Field is one plain form field.
type Field struct {
	Name  string
	Value string
}

// File is a file-like multipart part.
type File struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
}

// Form is a structured POST payload. Fields and files are emitted in the
// order given.
type Form struct {
	Fields []Field
	Files  []File
}

// AddField appends a plain field.
func (f *Form) AddField(name, value string) {
	f.Fields = append(f.Fields, Field{Name: name, Value: value})
}

// AddFile appends a file part.
func (f *Form) AddFile(fieldName, fileName, contentType string, data []byte) {
	f.Files = append(f.Files, File{
		FieldName:   fieldName,
		FileName:    fileName,
		ContentType: contentType,
		Data:        data,
	})
}

// Empty reports whether the form has no fields and no files.
func (f *Form) Empty() bool {
	return f == nil || (len(f.Fields) == 0 && len(f.Files) == 0)
}

// EncodeURL renders the plain fields as application/x-www-form-urlencoded,
// preserving field order. File parts cannot be carried in this encoding and
// are rejected.
func (f *Form) EncodeURL() ([]byte, error) {
	if len(f.Files) > 0 {
		return nil, errors.NewValidationError("file parts require multipart encoding")
	}
	var sb strings.Builder
	for i, fld := range f.Fields {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(fld.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(fld.Value))
	}
	return []byte(sb.String()), nil
}

// EncodeMultipart renders fields and files as multipart/form-data framed by
// boundary ("" selects DefaultBoundary). It returns the body and the
// Content-Type header value carrying the boundary parameter.
func (f *Form) EncodeMultipart(boundary string) ([]byte, string, error) {
	if boundary == "" {
		boundary = DefaultBoundary
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, "", errors.NewValidationError("invalid multipart boundary: " + err.Error())
	}

	for _, fld := range f.Fields {
		if err := w.WriteField(fld.Name, fld.Value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.Files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition",
			`form-data; name="`+escapeQuotes(file.FieldName)+`"; filename="`+escapeQuotes(file.FileName)+`"`)
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		hdr.Set("Content-Type", contentType)

		part, err := w.CreatePart(hdr)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
