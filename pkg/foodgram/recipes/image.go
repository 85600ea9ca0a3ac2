package recipes

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// imageSubdir is the directory under the media root holding recipe images
const imageSubdir = "recipes"

// ErrInvalidImage is returned for payloads that are not a decodable image
var ErrInvalidImage = errors.New("upload a valid image")

// ImageStore decodes base64 images and writes them under the media directory
type ImageStore struct {
	Dir      string
	MaxWidth int
}

// extensions maps data URI media types to stored file extensions
var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/gif":  ".gif",
}

// decodeDataURI splits "data:image/png;base64,AAAA" into the media type and
// raw bytes. A bare base64 string is accepted with an empty media type.
func decodeDataURI(s string) (string, []byte, error) {
	mediaType := ""
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return "", nil, ErrInvalidImage
		}
		mediaType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", nil, ErrInvalidImage
	}
	return mediaType, data, nil
}

// Save stores the image and returns its path relative to the media root.
// Images wider than MaxWidth are scaled down.
func (s ImageStore) Save(dataURI string) (string, error) {
	mediaType, data, err := decodeDataURI(dataURI)
	if err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrInvalidImage
	}
	if s.MaxWidth > 0 && img.Bounds().Dx() > s.MaxWidth {
		img = imaging.Resize(img, s.MaxWidth, 0, imaging.Lanczos)
	}

	ext, ok := extensions[mediaType]
	if !ok {
		ext = ".jpg"
	}

	dir := filepath.Join(s.Dir, imageSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	name := uuid.NewString() + ext
	if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return path.Join(imageSubdir, name), nil
}

// Remove deletes a stored image. Missing files are ignored.
func (s ImageStore) Remove(rel string) {
	if rel == "" {
		return
	}
	_ = os.Remove(filepath.Join(s.Dir, filepath.FromSlash(rel)))
}
