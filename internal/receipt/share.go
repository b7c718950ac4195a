package receipt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrHandOff is returned when sharing is available but handing the document
// off failed. The document stays on disk and the order is not cleared.
var ErrHandOff = errors.New("receipt could not be handed off")

// ShareOptions describe the document being shared.
type ShareOptions struct {
	Title    string
	MimeType string
}

// Sharer hands a finished document to whatever the terminal uses to show,
// print or send it.
type Sharer interface {
	Available() bool
	Share(ctx context.Context, path string, opts ShareOptions) error
}

// Unavailable is the Sharer for terminals without a hand-off target.
type Unavailable struct{}

func (Unavailable) Available() bool { return false }

func (Unavailable) Share(ctx context.Context, path string, opts ShareOptions) error {
	return ErrHandOff
}

// OutboxSharer copies documents into a directory watched by the print or mail
// spooler.
type OutboxSharer struct {
	dir string
}

func NewOutboxSharer(dir string) *OutboxSharer {
	return &OutboxSharer{dir: dir}
}

func (s *OutboxSharer) Available() bool {
	if s.dir == "" {
		return false
	}
	fi, err := os.Stat(s.dir)
	return err == nil && fi.IsDir()
}

func (s *OutboxSharer) Share(ctx context.Context, path string, opts ShareOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandOff, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(filepath.Join(s.dir, filepath.Base(path)), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandOff, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("%w: %v", ErrHandOff, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrHandOff, err)
	}
	return nil
}
