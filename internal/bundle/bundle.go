// Package bundle turns an Expo project into an uploadable update archive.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

const (
	bundlePattern = "**/*.js"
	assetPattern  = "**/*.{png,jpg,jpeg,gif,svg,ttf,otf,woff,woff2}"

	// preferredBundleDir is where Expo writes platform bundles.
	preferredBundleDir = "_expo/static/js/"

	// BundleFileName is the canonical name of the bundle inside the output
	// directory and the archive.
	BundleFileName = "bundle.js"
)

// ErrNoBundle is returned when the export tree holds no JavaScript file.
var ErrNoBundle = errors.New("no JS bundle found in export output")

// Result lists the files collected from an export.
type Result struct {
	BundlePath string
	AssetPaths []string
}

// Packager collects the output of an Exporter.
type Packager struct {
	Exporter Exporter
	Logger   *zap.Logger
}

// NewPackager returns a packager using exp, or the Expo CLI when exp is nil.
func NewPackager(exp Exporter, logger *zap.Logger) *Packager {
	if exp == nil {
		exp = &ExpoExporter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Packager{Exporter: exp, Logger: logger}
}

// CreateBundle exports projectRoot and copies the canonical bundle (as
// bundle.js) and every asset into outputDir. Assets are stored flat by file
// name, so a later asset silently replaces an earlier one with the same name.
func (p *Packager) CreateBundle(ctx context.Context, projectRoot, outputDir string) (*Result, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	distDir, err := p.Exporter.Export(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	p.Logger.Debug("export finished", zap.String("dist", distDir))

	distFS := os.DirFS(distDir)

	bundleRel, err := SelectBundle(distFS)
	if err != nil {
		return nil, err
	}
	p.Logger.Debug("selected bundle", zap.String("file", bundleRel))

	bundlePath := filepath.Join(outputDir, BundleFileName)
	if err := copyFile(filepath.Join(distDir, filepath.FromSlash(bundleRel)), bundlePath); err != nil {
		return nil, fmt.Errorf("copy bundle: %w", err)
	}

	assets, err := doublestar.Glob(distFS, assetPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("find assets: %w", err)
	}
	sort.Strings(assets)

	var assetPaths []string
	seen := make(map[string]bool)
	for _, rel := range assets {
		name := path.Base(rel)
		dst := filepath.Join(outputDir, name)
		if err := copyFile(filepath.Join(distDir, filepath.FromSlash(rel)), dst); err != nil {
			return nil, fmt.Errorf("copy asset %s: %w", rel, err)
		}
		if seen[name] {
			p.Logger.Debug("asset name collision, keeping the last copy", zap.String("asset", rel))
			continue
		}
		seen[name] = true
		assetPaths = append(assetPaths, dst)
	}

	return &Result{BundlePath: bundlePath, AssetPaths: assetPaths}, nil
}

// SelectBundle picks the canonical bundle from an export tree. Files under
// _expo/static/js/ win over any other .js file; among the candidates the
// largest file is chosen, ties going to the lexically smallest path.
func SelectBundle(fsys fs.FS) (string, error) {
	matches, err := doublestar.Glob(fsys, bundlePattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("find bundles: %w", err)
	}
	if len(matches) == 0 {
		return "", ErrNoBundle
	}

	var preferred []string
	for _, m := range matches {
		if strings.HasPrefix(m, preferredBundleDir) {
			preferred = append(preferred, m)
		}
	}
	if len(preferred) > 0 {
		matches = preferred
	}

	best, bestSize := "", int64(-1)
	for _, m := range matches {
		st, err := fs.Stat(fsys, m)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", m, err)
		}
		if st.Size() > bestSize || (st.Size() == bestSize && m < best) {
			best, bestSize = m, st.Size()
		}
	}
	return best, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
