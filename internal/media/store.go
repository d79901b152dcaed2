// Package media stores uploaded recipe images on disk under the
// configured media root and hands back the web path they are served
// from.
package media

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"

	// register the decoders DecodeConfig relies on
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
)

var ErrNotImage = errors.New("not a valid image")

const maxImageBytes = 10 * 1024 * 1024

type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "recipes"), 0o755); err != nil {
		return nil, err
	}

	return &Store{root: root}, nil
}

// SaveRecipeImage validates the bytes by decoding the image header and
// writes them under a random name. Returns the path the router serves
// the file from.
func (s *Store) SaveRecipeImage(data []byte) (string, error) {
	if len(data) == 0 || len(data) > maxImageBytes {
		return "", ErrNotImage
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))

	if err != nil {
		return "", ErrNotImage
	}

	name := uuid.NewString() + "." + ext(format)
	dst := filepath.Join(s.root, "recipes", name)

	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", err
	}

	return "/media/recipes/" + name, nil
}

func ext(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	default:
		return format
	}
}
