package scan

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// ErrNoFrame is returned by a FrameSource that has nothing to show yet.
var ErrNoFrame = errors.New("scan: no frame available")

// FrameSource yields the latest captured image.
type FrameSource interface {
	Frame(ctx context.Context) ([]byte, error)
	Close() error
}

// Opener opens the frame source for a scanning session.
type Opener func(ctx context.Context) (FrameSource, error)

// FileSource reads a snapshot file that a capture tool keeps overwriting.
type FileSource struct {
	Path string
}

func (f *FileSource) Frame(context.Context) ([]byte, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(b) == 0) {
		return nil, ErrNoFrame
	}
	return b, err
}

func (f *FileSource) Close() error { return nil }
