package recorder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/gabriel-vasile/mimetype"
)

// FileMicrophone plays back an audio file as if it were being recorded.
type FileMicrophone struct {
	Path string
}

func (m FileMicrophone) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mt, err := mimetype.DetectFile(m.Path)
	if err != nil {
		return nil, mapOpenErr(err)
	}
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, mapOpenErr(err)
	}
	return &fileStream{f: f, mime: mt.String(), drained: make(chan struct{})}, nil
}

func mapOpenErr(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
	}
	return err
}

// fileStream plays the whole file out before Close takes effect, so a
// Stop right after Start still yields the complete clip.
type fileStream struct {
	f       *os.File
	mime    string
	once    sync.Once
	drained chan struct{}
}

func (s *fileStream) Read(p []byte) (int, error) {
	n, err := s.f.Read(p)
	if err != nil {
		s.once.Do(func() { close(s.drained) })
	}
	return n, err
}

func (s *fileStream) Close() error {
	<-s.drained
	return s.f.Close()
}

func (s *fileStream) MimeType() string { return s.mime }
