package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/fathima-sithara/chat-backend/internal/config"
	"github.com/google/uuid"
)

// FileStore persists uploaded bytes under name and returns the URL clients use to fetch them.
type FileStore interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.UploadsConf) (FileStore, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.Dir, cfg.URLPrefix)
	case "s3":
		return NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown uploads driver %q", cfg.Driver)
	}
}

// ObjectName returns a collision free name that keeps the extension of original.
func ObjectName(prefix, original string) string {
	ext := strings.ToLower(filepath.Ext(path.Base(original)))
	if len(ext) > 10 {
		ext = ""
	}
	return prefix + "-" + uuid.NewString() + ext
}
