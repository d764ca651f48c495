package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrExportFailed wraps any failure of the external build tool.
var ErrExportFailed = errors.New("failed to export Expo project")

// DefaultExportCommand produces a production export of an Expo project into
// <projectRoot>/dist.
var DefaultExportCommand = []string{"npx", "expo", "export", "--dump-sourcemap", "--dev", "false", "--clear"}

// DefaultWaitDelay bounds how long Export waits for the tool's output pipes
// to close after ctx is cancelled.
const DefaultWaitDelay = 5 * time.Second

// Exporter turns a project directory into an export tree of JavaScript
// bundles and assets and returns the tree's root.
type Exporter interface {
	Export(ctx context.Context, projectRoot string) (string, error)
}

// ExporterFunc adapts a function to the Exporter interface.
type ExporterFunc func(ctx context.Context, projectRoot string) (string, error)

func (f ExporterFunc) Export(ctx context.Context, projectRoot string) (string, error) {
	return f(ctx, projectRoot)
}

// ExpoExporter runs the Expo CLI as a child process with the project root as
// its working directory. It is never retried.
type ExpoExporter struct {
	// Command defaults to DefaultExportCommand.
	Command []string
	// OutputDir is the export tree relative to the project root ("dist").
	OutputDir string
	// Stdout and Stderr, when set, receive the tool's output as it runs.
	Stdout io.Writer
	Stderr io.Writer
	// WaitDelay defaults to DefaultWaitDelay. Processes spawned by the tool
	// may hold its output open after it is killed.
	WaitDelay time.Duration
}

var _ Exporter = (*ExpoExporter)(nil)

func (e *ExpoExporter) Export(ctx context.Context, projectRoot string) (string, error) {
	args := e.Command
	if len(args) == 0 {
		args = DefaultExportCommand
	}
	outDir := e.OutputDir
	if outDir == "" {
		outDir = "dist"
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = projectRoot
	cmd.WaitDelay = e.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	output := newTailBuffer(exportOutputLimit)
	cmd.Stdout = teeTo(output, e.Stdout)
	cmd.Stderr = teeTo(output, e.Stderr)

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s: %w\n%s", ErrExportFailed, strings.Join(args, " "), err, strings.TrimSpace(output.String()))
	}

	distDir := filepath.Join(projectRoot, outDir)
	st, err := os.Stat(distDir)
	if err != nil || !st.IsDir() {
		return "", fmt.Errorf("%w: export did not generate a %s directory", ErrExportFailed, outDir)
	}
	return distDir, nil
}

func teeTo(buf *tailBuffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
