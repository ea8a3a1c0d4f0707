package imagestore

import (
	"context"
	"fmt"
	"image"
	"path"
	"strings"

	"puzzled/internal/types"
)

// Store holds encoded fragment images. Names are slash separated and the
// first element is always the owning session id.
type Store interface {
	Put(ctx context.Context, name string, img image.Image) error
	Get(ctx context.Context, name string) (image.Image, error)
	Raw(ctx context.Context, name string) ([]byte, error)
	DeleteTree(ctx context.Context, session string) error
	ContentType() string
}

// FragmentName builds the storage name of a fragment: <session>/<asset>_<id>.
func FragmentName(session, asset string, id int) string {
	return fmt.Sprintf("%s/%s_%d", session, asset, id)
}

// cleanName rejects names that could escape their session directory.
func cleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: invalid image name %q", types.ErrPrecondition, name)
	}
	clean := path.Clean(name)
	if clean != name || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: invalid image name %q", types.ErrPrecondition, name)
	}
	return clean, nil
}

func cleanSession(session string) (string, error) {
	if session == "" || strings.ContainsAny(session, "/\\") || session == "." || session == ".." {
		return "", fmt.Errorf("%w: invalid session %q", types.ErrPrecondition, session)
	}
	return session, nil
}
