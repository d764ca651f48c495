// Package ui renders command output: styled status lines, tables and
// machine-readable JSON or YAML.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mdp/qrterminal/v3"
	"gopkg.in/yaml.v3"
)

// Format selects how command results are written to stdout.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat returns the format named s. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// Printer writes results to Out and diagnostics to Err. In json and yaml
// mode status lines move to Err so that Out stays machine-readable.
type Printer struct {
	Out    io.Writer
	Err    io.Writer
	Format Format

	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	muted   lipgloss.Style
	bold    lipgloss.Style
}

// NewPrinter returns a printer. Colors are enabled only when out is a terminal.
func NewPrinter(out, errOut io.Writer, format Format) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		Out:     out,
		Err:     errOut,
		Format:  format,
		success: r.NewStyle().Foreground(Success),
		failure: r.NewStyle().Foreground(Error).Bold(true),
		warning: r.NewStyle().Foreground(Warning),
		info:    r.NewStyle().Foreground(Info),
		muted:   r.NewStyle().Foreground(Muted),
		bold:    r.NewStyle().Bold(true),
	}
}

// Text reports whether results should be rendered for humans.
func (p *Printer) Text() bool {
	return p.Format == "" || p.Format == FormatText
}

func (p *Printer) status() io.Writer {
	if p.Text() {
		return p.Out
	}
	return p.Err
}

func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintln(p.status(), p.success.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintln(p.status(), p.info.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Mutedf(format string, args ...any) {
	fmt.Fprintln(p.status(), p.muted.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.Err, p.warning.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.Err, p.failure.Render(fmt.Sprintf(format, args...)))
}

// Heading prints a bold line.
func (p *Printer) Heading(s string) {
	fmt.Fprintln(p.status(), p.bold.Render(s))
}

// Field prints an aligned "key: value" line.
func (p *Printer) Field(key, value string) {
	fmt.Fprintf(p.status(), "%s %s\n", p.muted.Render(fmt.Sprintf("%-16s", key+":")), value)
}

// Data encodes v to Out as JSON or YAML. It returns false in text mode, where
// the caller renders v itself.
func (p *Printer) Data(v any) (bool, error) {
	switch p.Format {
	case FormatJSON:
		enc := json.NewEncoder(p.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("encode json: %w", err)
		}
		return true, nil
	case FormatYAML:
		enc := yaml.NewEncoder(p.Out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return true, fmt.Errorf("encode yaml: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// QR draws text as a QR code on Out.
func (p *Printer) QR(text string) {
	qrterminal.GenerateHalfBlock(text, qrterminal.L, p.status())
}
