package storage

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// PublicPrefix is the URL path uploaded files are served under.
const PublicPrefix = "uploads"

var ErrEmptyUpload = errors.New("empty upload")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// Uploads writes uploaded files into a single local directory.
type Uploads struct {
	dir string
}

// NewUploads creates dir if needed.
func NewUploads(dir string) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &Uploads{dir: dir}, nil
}

// Dir returns the directory files are written to.
func (u *Uploads) Dir() string {
	return u.dir
}

// Save writes data under a fresh name and returns its public path
// ("uploads/<file>") and its location on disk.
func (u *Uploads) Save(data []byte) (publicPath, diskPath string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmptyUpload
	}

	name := uuid.New().String() + Extension(data)
	diskPath = filepath.Join(u.dir, name)

	if err := os.WriteFile(diskPath, data, 0644); err != nil {
		os.Remove(diskPath)
		return "", "", fmt.Errorf("failed to write file %s: %w", diskPath, err)
	}

	log.Debugf("Stored upload %s (%d bytes)", diskPath, len(data))
	return path.Join(PublicPrefix, name), diskPath, nil
}

// Extension picks a file extension from the sniffed content type.
// Unrecognised content gets ".jpg".
func Extension(data []byte) string {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if ext, ok := extensions[http.DetectContentType(head)]; ok {
		return ext
	}
	return ".jpg"
}
