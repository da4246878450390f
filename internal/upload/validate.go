package upload

import (
	"fmt"
	"mime"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/gabriel-vasile/mimetype"
)

const MaxFileSize int64 = 25 << 20

var allowedMimeTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
	"image/webp": {},
	"image/heic": {},
	"image/heif": {},
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.ms-excel":                                                  {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.ms-powerpoint":                                             {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"application/vnd.oasis.opendocument.text":                                   {},
	"application/vnd.oasis.opendocument.spreadsheet":                            {},
	"text/plain":                   {},
	"text/csv":                     {},
	"application/zip":              {},
	"application/x-zip-compressed": {},
	"application/x-7z-compressed":  {},
	"application/vnd.rar":          {},
	"application/x-rar-compressed": {},
	"application/gzip":             {},
	"application/x-tar":            {},
}

// File is one user-selected attachment.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

func (f File) Size() int64 { return int64(len(f.Data)) }

// Validator holds the pre-transfer rules. The zero value is not usable; use
// NewValidator.
type Validator struct {
	maxSize int64
}

func NewValidator(maxSize int64) Validator {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	return Validator{maxSize: maxSize}
}

func (v Validator) MaxSize() int64 { return v.maxSize }

// CheckFile rejects oversized or disallowed attachments and returns the
// file with its mime type resolved.
func (v Validator) CheckFile(f File) (File, error) {
	if f.Size() == 0 {
		return f, fmt.Errorf("%s: %w", f.Name, domain.ErrEmptyMessage)
	}
	if f.Size() > v.maxSize {
		return f, fmt.Errorf("%s is %d bytes, limit %d: %w", f.Name, f.Size(), v.maxSize, domain.ErrFileTooLarge)
	}

	f.MimeType = resolveMime(f.MimeType, f.Data)
	if !mimeAllowed(f.MimeType) {
		return f, fmt.Errorf("%s (%s): %w", f.Name, f.MimeType, domain.ErrMimeNotAllowed)
	}
	return f, nil
}

// CheckDeclared applies the same rules to metadata alone, for a receiver
// that sees the declaration before any bytes.
func (v Validator) CheckDeclared(name, mimeType string, size int64, voice bool) error {
	if size <= 0 {
		return fmt.Errorf("%s: size %d: %w", name, size, domain.ErrInvalidInput)
	}
	if size > v.maxSize {
		return fmt.Errorf("%s is %d bytes, limit %d: %w", name, size, v.maxSize, domain.ErrFileTooLarge)
	}
	if voice {
		return nil
	}
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil || !mimeAllowed(mt) {
		return fmt.Errorf("%s (%s): %w", name, mimeType, domain.ErrMimeNotAllowed)
	}
	return nil
}

// CheckVoice only applies the size ceiling.
func (v Validator) CheckVoice(c Clip) (Clip, error) {
	if len(c.Data) == 0 {
		return c, domain.ErrNothingRecorded
	}
	if int64(len(c.Data)) > v.maxSize {
		return c, fmt.Errorf("voice clip is %d bytes, limit %d: %w", len(c.Data), v.maxSize, domain.ErrFileTooLarge)
	}
	c.MimeType = resolveMime(c.MimeType, c.Data)
	return c, nil
}

func resolveMime(declared string, data []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(mimetype.Detect(data).String())
	return mt
}

func mimeAllowed(mt string) bool {
	_, ok := allowedMimeTypes[mt]
	return ok
}
