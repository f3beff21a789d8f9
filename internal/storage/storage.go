package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront/internal/apperr"
)

// Store persists an uploaded file and returns the URL clients should use for it.
type Store interface {
	Save(ctx context.Context, field, filename string, r io.Reader) (string, error)
}

const maxNameAttempts = 100

// LocalStore writes into Dir; the router serves it under /uploads.
type LocalStore struct {
	Dir string
	now func() time.Time
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{Dir: dir, now: time.Now}
}

func (s *LocalStore) Save(_ context.Context, field, filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	f, name, err := s.create(field, filename)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return "/uploads/" + name, nil
}

// create opens a new file named <field>-<unixmillis><ext>, adding a -N suffix
// when another upload already took that name.
func (s *LocalStore) create(field, filename string) (*os.File, string, error) {
	base := fmt.Sprintf("%s-%d", field, s.now().UnixMilli())
	ext := strings.ToLower(filepath.Ext(filename))
	for n := 0; n < maxNameAttempts; n++ {
		name := base + ext
		if n > 0 {
			name = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free upload name for %s", base)
}

// objectName is used by remote stores where millisecond names could collide.
func objectName(field, filename string) string {
	return field + "-" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

// SaveImage stores the optional multipart image in field. No file is not an error.
func SaveImage(c *gin.Context, store Store, field string, maxBytes int64) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", apperr.Unprocessable("File too large", gin.H{"field": field, "maxBytes": maxBytes})
	}
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		return "", apperr.Unprocessable("Only images are allowed", gin.H{"field": field})
	}

	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return store.Save(c.Request.Context(), field, fh.Filename, f)
}
