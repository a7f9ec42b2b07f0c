// Package sbtversion reads and writes the single-line version record kept at
// the root of a repository:
//
//	version in ThisBuild := "0.3.5"
package sbtversion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/emenda-labs/prmerge/core/version"
)

// DefaultFile is the version record file name used when none is configured.
const DefaultFile = "version.sbt"

var recordPattern = regexp.MustCompile(`^\s*version\s+in\s+ThisBuild\s*:=\s*"([^"]*)"\s*$`)

var errNoRecord = errors.New("no `version in ThisBuild := \"...\"` line found")

// Parse extracts the version from the contents of a version record. The first
// line that matches the record form wins; blank lines and comments are
// skipped.
func Parse(data []byte) (version.Version, error) {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		m := recordPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := version.Parse(m[1])
		if err != nil {
			return version.Version{}, fmt.Errorf("parsing version record: %w", err)
		}
		return v, nil
	}
	return version.Version{}, errNoRecord
}

// Replace rewrites the record line Parse would read so it holds v. Every
// other line, and the record line's own ending, is kept byte for byte.
func Replace(data []byte, v version.Version) ([]byte, error) {
	lines := strings.SplitAfter(string(data), "\n")
	for i, line := range lines {
		content := strings.TrimRight(line, "\r\n")
		if !recordPattern.MatchString(content) {
			continue
		}
		lines[i] = strings.TrimSuffix(string(Format(v)), "\n") + line[len(content):]
		return []byte(strings.Join(lines, "")), nil
	}
	return nil, errNoRecord
}

// Format renders the record line for v, including the trailing newline.
func Format(v version.Version) []byte {
	return []byte(fmt.Sprintf("version in ThisBuild := %q\n", v.String()))
}

// Read loads the version record named file from the repository at repoPath.
func Read(repoPath, file string) (version.Version, error) {
	path := filepath.Join(repoPath, file)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return version.Version{}, fmt.Errorf("no %s found at %s", file, path)
		}
		return version.Version{}, fmt.Errorf("failed to read %s: %w", file, err)
	}

	v, err := Parse(data)
	if err != nil {
		return version.Version{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Write stores v in the version record, rewriting only the record line and
// keeping the file's existing permissions. A missing file is created holding
// just the record line.
func Write(repoPath, file string, v version.Version) error {
	path := filepath.Join(repoPath, file)

	mode := os.FileMode(0o644)
	data := Format(v)

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		data, err = Replace(existing, v)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if info, err := os.Stat(path); err == nil {
			mode = info.Mode().Perm()
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	return nil
}
