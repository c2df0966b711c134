// Package storage persists deposit proof screenshots. The store is treated as
// an opaque blob sink that hands back a reference URL; the local-disk
// implementation keeps the timestamp-prefixed naming clients already link to.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	"github.com/royal-empire/club_service/internal/infrastructure/config"
)

// ProofStore stores proof blobs and returns reference URLs.
type ProofStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
}

// DiskProofStore writes proofs under a local directory, one file per upload.
type DiskProofStore struct {
	dir     string
	baseURL string
	maxSize int64
	logger  *zap.Logger
}

// NewDiskProofStore creates the upload directory if needed.
func NewDiskProofStore(cfg config.UploadsConfig, logger *zap.Logger) (*DiskProofStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &DiskProofStore{
		dir:     cfg.Dir,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		maxSize: cfg.MaxSize,
		logger:  logger,
	}, nil
}

// Save writes the blob under a timestamp-prefixed name and returns its URL.
func (s *DiskProofStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitizeName(originalName))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create proof file: %w", err)
	}
	defer f.Close()

	limited := io.LimitReader(r, s.maxSize+1)
	n, err := io.Copy(f, limited)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write proof file: %w", err)
	}
	if n > s.maxSize {
		os.Remove(path)
		return "", domainerrors.ValidationError("screenshot", fmt.Sprintf("proof file exceeds %d bytes", s.maxSize))
	}

	s.logger.Debug("Proof stored", zap.String("file", name), zap.Int64("bytes", n))
	return s.baseURL + "/" + name, nil
}

// sanitizeName strips path separators and control characters from an
// uploaded filename.
func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 32 || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." {
		name = "proof"
	}
	return name
}
