// Package artifact decides how a review artifact is presented to a judge
// and loads screenshot files for the visual path.
//
// Classification is by file extension only. A text artifact that happens
// to end in ".png" is treated as a screenshot path; there is no override.
package artifact

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/timvw/judge-patrol/internal/model"
)

var imagePattern = regexp.MustCompile(`(?i)\.(png|jpg|jpeg)$`)

// Classify returns ModalityVisual for strings ending in .png, .jpg or .jpeg
// (any case) and ModalityTextual for everything else.
func Classify(artifact string) model.Modality {
	if imagePattern.MatchString(artifact) {
		return model.ModalityVisual
	}
	return model.ModalityTextual
}

// Image is a screenshot loaded from disk.
type Image struct {
	Path      string
	MediaType string
	Data      []byte
}

// Load reads the screenshot at path. The media type follows the extension.
func Load(path string) (*Image, error) {
	mediaType, err := MediaType(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read screenshot %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("screenshot %s is empty", path)
	}
	return &Image{Path: path, MediaType: mediaType, Data: data}, nil
}

// MediaType maps a screenshot extension to its MIME type.
func MediaType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png", nil
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	default:
		return "", fmt.Errorf("unsupported image extension %q", filepath.Ext(path))
	}
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data: URL.
func (i *Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + i.Base64()
}
