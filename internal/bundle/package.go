package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/openexpoota/ota/internal/api"
	"github.com/openexpoota/ota/internal/validate"
)

const archiveFileName = "update.zip"

// Package is a built update archive living in a temporary directory.
type Package struct {
	ArchivePath string
	Size        int64
	BundlePath  string
	AssetPaths  []string
	Metadata    api.UpdateMetadata

	dir string
}

// Cleanup removes the package's temporary directory.
func (p *Package) Cleanup() error {
	if p == nil || p.dir == "" {
		return nil
	}
	return os.RemoveAll(p.dir)
}

// Package exports projectRoot and builds an update archive in a fresh
// temporary directory. On failure the directory is removed before returning;
// on success the caller owns it and must call Cleanup.
func (p *Packager) Package(ctx context.Context, projectRoot string, meta api.UpdateMetadata) (pkg *Package, err error) {
	if err := validate.Struct(meta); err != nil {
		return nil, fmt.Errorf("invalid update metadata: %w", err)
	}

	dir, err := os.MkdirTemp("", "openexpoota-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.RemoveAll(dir))
		}
	}()

	res, err := p.CreateBundle(ctx, projectRoot, filepath.Join(dir, "files"))
	if err != nil {
		return nil, err
	}

	archivePath := filepath.Join(dir, archiveFileName)
	size, err := CreateArchive(archivePath, res.BundlePath, res.AssetPaths, meta)
	if err != nil {
		return nil, err
	}
	p.Logger.Debug("archive created",
		zap.String("path", archivePath),
		zap.Int64("size", size),
		zap.Int("assets", len(res.AssetPaths)))

	return &Package{
		ArchivePath: archivePath,
		Size:        size,
		BundlePath:  res.BundlePath,
		AssetPaths:  res.AssetPaths,
		Metadata:    meta,
		dir:         dir,
	}, nil
}
