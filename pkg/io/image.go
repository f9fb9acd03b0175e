package io

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// MaxImageSize bounds the payload accepted by LoadImage.
const MaxImageSize = 32 << 20

// DecodeImage reads the format and pixel size of an encoded image. The bytes
// are kept as they are; nothing is re-encoded.
func DecodeImage(data []byte) (*tree.Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "unsupported image")
	}
	return &tree.Image{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// LoadImage reads and decodes the image file at path.
func LoadImage(path string) (*tree.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxImageSize {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "image %s exceeds %d bytes", path, MaxImageSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeImage(data)
}
