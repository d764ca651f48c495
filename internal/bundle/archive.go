package bundle

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/openexpoota/ota/internal/api"
)

const (
	MetadataFileName = "metadata.json"
	AssetsDir        = "assets"
)

// WriteArchive writes a ZIP holding bundle.js, one assets/<name> entry per
// distinct asset file name and metadata.json.
func WriteArchive(w io.Writer, bundlePath string, assetPaths []string, meta api.UpdateMetadata) error {
	zw := zip.NewWriter(w)
	now := time.Now()

	if err := addFile(zw, BundleFileName, bundlePath, now); err != nil {
		return fmt.Errorf("add bundle: %w", err)
	}

	// Keep the last path for each name, in order of first appearance.
	var names []string
	byName := make(map[string]string)
	for _, p := range assetPaths {
		name := filepath.Base(p)
		if _, ok := byName[name]; !ok {
			names = append(names, name)
		}
		byName[name] = p
	}
	for _, name := range names {
		if err := addFile(zw, AssetsDir+"/"+name, byName[name], now); err != nil {
			return fmt.Errorf("add asset %s: %w", name, err)
		}
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: MetadataFileName, Method: zip.Deflate, Modified: now})
	if err != nil {
		return fmt.Errorf("add metadata: %w", err)
	}
	if _, err := mw.Write(data); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, name, src string, modified time.Time) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// CreateArchive writes the archive to path and returns its size in bytes.
func CreateArchive(path, bundlePath string, assetPaths []string, meta api.UpdateMetadata) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	if err := WriteArchive(f, bundlePath, assetPaths, meta); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close archive: %w", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat archive: %w", err)
	}
	return st.Size(), nil
}

// ReadMetadata returns the metadata.json stored in an archive.
func ReadMetadata(archivePath string) (api.UpdateMetadata, error) {
	var meta api.UpdateMetadata

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return meta, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	f, err := zr.Open(MetadataFileName)
	if err != nil {
		return meta, fmt.Errorf("open %s: %w", MetadataFileName, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		return meta, fmt.Errorf("decode %s: %w", MetadataFileName, err)
	}
	return meta, nil
}
