package camera

import (
	"context"
	"fmt"
	"os"
)

// FileCamera serves a fixed JPEG from disk as capture output. It stands in
// for a hardware camera during local development and CLI runs.
type FileCamera struct {
	path string
}

// NewFileCamera creates a FileCamera reading from path. An empty path
// yields a camera that always reports ErrUnavailable.
func NewFileCamera(path string) *FileCamera {
	return &FileCamera{path: path}
}

// Capture reads the configured image file.
func (c *FileCamera) Capture(_ context.Context) ([]byte, error) {
	if c.path == "" {
		return nil, ErrUnavailable
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read capture image: %w", err)
	}
	return data, nil
}
