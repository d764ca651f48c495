package bundle

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openexpoota/ota/internal/api"
)

// fakeExport writes files (relative path -> content) under <root>/dist.
func fakeExport(files map[string]string) ExporterFunc {
	return func(ctx context.Context, projectRoot string) (string, error) {
		dist := filepath.Join(projectRoot, "dist")
		for name, content := range files {
			p := filepath.Join(dist, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
				return "", err
			}
			if err := os.WriteFile(p, []byte(content), 0644); err != nil {
				return "", err
			}
		}
		return dist, nil
	}
}

func zipEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	out := make(map[string]string)
	for _, f := range zr.File {
		_, dup := out[f.Name]
		require.False(t, dup, "duplicate entry %s", f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(b)
	}
	return out
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var testMeta = api.UpdateMetadata{
	Version:        "1.0.0",
	Channel:        "development",
	RuntimeVersion: "1.0.0",
	Platforms:      []string{"ios", "android"},
}

func TestSelectBundle(t *testing.T) {
	testCases := []struct {
		name string
		fs   fstest.MapFS
		want string
	}{
		{
			name: "single",
			fs:   fstest.MapFS{"index.js": {Data: []byte("x")}},
			want: "index.js",
		},
		{
			name: "largest wins",
			fs: fstest.MapFS{
				"a.js":     {Data: []byte("x")},
				"sub/b.js": {Data: []byte("xxxx")},
			},
			want: "sub/b.js",
		},
		{
			name: "expo static dir preferred over larger file",
			fs: fstest.MapFS{
				"vendor.js":                      {Data: []byte(strings.Repeat("x", 100))},
				"_expo/static/js/ios/index-1.js": {Data: []byte("xx")},
				"_expo/static/js/web/index-2.js": {Data: []byte("xxx")},
				"_expo/static/js/android/readme": {Data: []byte("not js")},
			},
			want: "_expo/static/js/web/index-2.js",
		},
		{
			name: "tie goes to lexically smallest",
			fs: fstest.MapFS{
				"b.js": {Data: []byte("xx")},
				"a.js": {Data: []byte("xx")},
			},
			want: "a.js",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SelectBundle(tc.fs)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSelectBundle_None(t *testing.T) {
	_, err := SelectBundle(fstest.MapFS{"icon.png": {Data: []byte("png")}})
	assert.ErrorIs(t, err, ErrNoBundle)
}

func TestCreateBundle(t *testing.T) {
	project := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	p := NewPackager(fakeExport(map[string]string{
		"_expo/static/js/ios/index-abc.js": "console.log('app')",
		"assets/icon.png":                  "icon",
		"assets/fonts/Inter.ttf":           "font",
		"metadata.json":                    "{}",
		"assets/raw-hash":                  "no extension",
	}), nil)

	res, err := p.CreateBundle(context.Background(), project, out)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "bundle.js"), res.BundlePath)
	b, err := os.ReadFile(res.BundlePath)
	require.NoError(t, err)
	assert.Equal(t, "console.log('app')", string(b))

	assert.ElementsMatch(t, []string{
		filepath.Join(out, "Inter.ttf"),
		filepath.Join(out, "icon.png"),
	}, res.AssetPaths)
}

func TestCreateBundle_AssetCollisionKeepsOneName(t *testing.T) {
	p := NewPackager(fakeExport(map[string]string{
		"index.js":         "js",
		"a/logo.png":       "first",
		"b/logo.png":       "second",
		"c/other/logo.png": "third",
	}), nil)

	out := t.TempDir()
	res, err := p.CreateBundle(context.Background(), t.TempDir(), out)
	require.NoError(t, err)
	require.Len(t, res.AssetPaths, 1)

	b, err := os.ReadFile(res.AssetPaths[0])
	require.NoError(t, err)
	assert.Equal(t, "third", string(b))
}

func TestCreateBundle_ExportError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPackager(ExporterFunc(func(context.Context, string) (string, error) {
		return "", boom
	}), nil)

	_, err := p.CreateBundle(context.Background(), t.TempDir(), t.TempDir())
	assert.ErrorIs(t, err, boom)
}

func TestPackage_ArchiveLayout(t *testing.T) {
	p := NewPackager(fakeExport(map[string]string{
		"_expo/static/js/ios/index-abc.js": "bundle",
		"assets/one.png":                   "1",
		"assets/two.jpg":                   "2",
	}), nil)

	pkg, err := p.Package(context.Background(), t.TempDir(), testMeta)
	require.NoError(t, err)
	defer pkg.Cleanup()

	entries := zipEntries(t, pkg.ArchivePath)
	assert.Equal(t, []string{"assets/one.png", "assets/two.jpg", "bundle.js", "metadata.json"}, keys(entries))
	assert.Equal(t, "bundle", entries["bundle.js"])
	assert.Equal(t, "1", entries["assets/one.png"])
	assert.Contains(t, entries["metadata.json"], "\n  \"version\": \"1.0.0\"")
	assert.Positive(t, pkg.Size)

	meta, err := ReadMetadata(pkg.ArchivePath)
	require.NoError(t, err)
	assert.Equal(t, testMeta, meta)

	dir := filepath.Dir(pkg.ArchivePath)
	require.NoError(t, pkg.Cleanup())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPackage_InvalidMetadata(t *testing.T) {
	called := false
	p := NewPackager(ExporterFunc(func(context.Context, string) (string, error) {
		called = true
		return "", nil
	}), nil)

	bad := testMeta
	bad.Channel = "nightly"
	_, err := p.Package(context.Background(), t.TempDir(), bad)
	require.Error(t, err)
	assert.False(t, called)
}

func TestPackage_FailureRemovesTempDir(t *testing.T) {
	p := NewPackager(ExporterFunc(func(ctx context.Context, projectRoot string) (string, error) {
		dist := filepath.Join(projectRoot, "dist")
		require.NoError(t, os.MkdirAll(dist, 0755))
		return dist, nil
	}), nil)

	before, _ := filepath.Glob(filepath.Join(os.TempDir(), "openexpoota-*"))
	_, err := p.Package(context.Background(), t.TempDir(), testMeta)
	assert.ErrorIs(t, err, ErrNoBundle)
	after, _ := filepath.Glob(filepath.Join(os.TempDir(), "openexpoota-*"))
	assert.ElementsMatch(t, before, after)
}

func TestWriteArchive_MetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "bundle.js")
	require.NoError(t, os.WriteFile(bundlePath, []byte("js"), 0644))

	metas := []api.UpdateMetadata{
		testMeta,
		{Version: "2.0.0-beta.1", Channel: "production", RuntimeVersion: "exposdk:50", Platforms: []string{"web"}},
		{Version: "3", Channel: "staging", RuntimeVersion: "3", Platforms: []string{"ios", "android", "web"}},
	}
	for i, meta := range metas {
		archive := filepath.Join(dir, "a"+string(rune('0'+i))+".zip")
		_, err := CreateArchive(archive, bundlePath, nil, meta)
		require.NoError(t, err)

		got, err := ReadMetadata(archive)
		require.NoError(t, err)
		assert.Equal(t, meta, got)
	}
}

func TestExpoExporter(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	t.Run("success", func(t *testing.T) {
		root := t.TempDir()
		e := &ExpoExporter{Command: []string{"sh", "-c", "mkdir -p dist && echo exported"}}
		dist, err := e.Export(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "dist"), dist)
	})

	t.Run("tool failure is reported verbatim", func(t *testing.T) {
		e := &ExpoExporter{Command: []string{"sh", "-c", "echo 'expo: command not found' >&2; exit 127"}}
		_, err := e.Export(context.Background(), t.TempDir())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExportFailed)
		assert.Contains(t, err.Error(), "expo: command not found")
	})

	t.Run("missing dist", func(t *testing.T) {
		e := &ExpoExporter{Command: []string{"sh", "-c", "true"}}
		_, err := e.Export(context.Background(), t.TempDir())
		assert.ErrorIs(t, err, ErrExportFailed)
	})

	t.Run("cancel with a child holding the output open", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		e := &ExpoExporter{
			Command:   []string{"sh", "-c", "sleep 3 & sleep 3"},
			WaitDelay: 200 * time.Millisecond,
		}

		start := time.Now()
		_, err := e.Export(ctx, t.TempDir())
		assert.ErrorIs(t, err, ErrExportFailed)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
