// Package project reads an Expo project's configuration to recover its display
// name and version.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

const (
	defaultName = "Unknown"
)

// ErrNoProject is returned when none of app.json, app.config.js or
// package.json describe the project.
var ErrNoProject = errors.New("could not find Expo configuration in the project")

// Info is what the CLI needs to know about a project.
type Info struct {
	Name string
	// Version is empty when the project does not declare one.
	Version string
	// RuntimeVersion is empty unless app.json pins it to a literal string.
	RuntimeVersion string
	// Source is the file the values came from.
	Source string
}

var (
	versionRe = regexp.MustCompile(`version['"]*:\s*['"](.*?)['"]`)
	nameRe    = regexp.MustCompile(`name['"]*:\s*['"](.*?)['"]`)
)

// Inspect looks for app.json (with an "expo" block), then app.config.js, then
// package.json in dir and returns the first match.
func Inspect(dir string) (*Info, error) {
	if info, err := fromAppJSON(dir); info != nil || err != nil {
		return info, err
	}
	if info, err := fromAppConfigJS(dir); info != nil || err != nil {
		return info, err
	}
	if info, err := fromPackageJSON(dir); info != nil || err != nil {
		return info, err
	}
	return nil, ErrNoProject
}

func readIfExists(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func fromAppJSON(dir string) (*Info, error) {
	path := filepath.Join(dir, "app.json")
	data, err := readIfExists(path)
	if err != nil || data == nil {
		return nil, err
	}

	var doc struct {
		Expo *struct {
			Name           string          `json:"name"`
			Version        string          `json:"version"`
			RuntimeVersion json.RawMessage `json:"runtimeVersion"`
		} `json:"expo"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	// app.json without an expo block belongs to a bare React Native project.
	if doc.Expo == nil {
		return nil, nil
	}

	info := &Info{
		Name:    orDefault(doc.Expo.Name, defaultName),
		Version: doc.Expo.Version,
		Source:  path,
	}
	// runtimeVersion may also be a {"policy": ...} object, which is resolved
	// by the build tool and not usable here.
	var rv string
	if json.Unmarshal(doc.Expo.RuntimeVersion, &rv) == nil {
		info.RuntimeVersion = rv
	}
	return info, nil
}

func fromAppConfigJS(dir string) (*Info, error) {
	path := filepath.Join(dir, "app.config.js")
	data, err := readIfExists(path)
	if err != nil || data == nil {
		return nil, err
	}

	info := &Info{Name: defaultName, Source: path}
	if m := versionRe.FindSubmatch(data); m != nil && len(m[1]) > 0 {
		info.Version = string(m[1])
	}
	if m := nameRe.FindSubmatch(data); m != nil && len(m[1]) > 0 {
		info.Name = string(m[1])
	}
	return info, nil
}

func fromPackageJSON(dir string) (*Info, error) {
	path := filepath.Join(dir, "package.json")
	data, err := readIfExists(path)
	if err != nil || data == nil {
		return nil, err
	}

	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &Info{
		Name:    orDefault(pkg.Name, defaultName),
		Version: pkg.Version,
		Source:  path,
	}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
