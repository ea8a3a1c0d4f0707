package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"puzzled/internal/logging"
	"puzzled/internal/types"
)

// FS stores fragments as files below a root directory,
// one directory per session.
type FS struct {
	root  string
	codec Codec
}

// NewFS creates the root directory if needed.
func NewFS(root string, codec Codec) (*FS, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: create image root: %w", types.ErrStorage, err)
	}
	return &FS{root: root, codec: codec}, nil
}

// Root returns the directory fragments are written under.
func (s *FS) Root() string { return s.root }

// ContentType implements Store.
func (s *FS) ContentType() string { return s.codec.ContentType }

func (s *FS) filePath(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)+s.codec.Ext), nil
}

// Put encodes img and writes it atomically.
func (s *FS) Put(ctx context.Context, name string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.filePath(name)
	if err != nil {
		return err
	}
	data, err := s.codec.EncodeBytes(img)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", types.ErrStorage, name, err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("%w: %w", types.ErrStorage, err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: write %s: %w", types.ErrStorage, name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: write %s: %w", types.ErrStorage, name, err)
	}
	return nil
}

// Raw returns the stored bytes.
func (s *FS) Raw(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.filePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("image %s: %w", name, types.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: read %s: %w", types.ErrStorage, name, err)
	}
	return data, nil
}

// Get decodes the stored image.
func (s *FS) Get(ctx context.Context, name string) (image.Image, error) {
	data, err := s.Raw(ctx, name)
	if err != nil {
		return nil, err
	}
	img, _, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrStorage, name, err)
	}
	return img, nil
}

// DeleteTree removes every fragment of a session. Missing sessions are not an error.
func (s *FS) DeleteTree(ctx context.Context, session string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sess, err := cleanSession(session)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.root, sess)
	if err := os.RemoveAll(dir); err != nil {
		logging.StoreError("failed to remove %s: %v", dir, err)
		return fmt.Errorf("%w: remove session %s: %w", types.ErrStorage, session, err)
	}
	logging.Store("removed fragment tree %s", dir)
	return nil
}
