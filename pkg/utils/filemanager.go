// =============================================================================
// CSV to XLSX Converter - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the converter, including:
//   - Staging output files beside their final paths
//   - Committing staged files into place once a conversion succeeds
//   - Discarding staged files when a conversion fails or is interrupted
//   - Finding the numbered part files of a split conversion
//   - Small file helpers (existence, size)
//
// STAGING STRATEGY:
//   - Every output is first written to a hidden file in the same directory,
//     named ".<final name>.<uuid>.tmp.xlsx"
//   - Commit renames each staged file over its final path
//   - Discard removes every staged file; final paths are never touched
//   - A failed run therefore leaves either no output or the previous file
//
// =============================================================================

package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// STAGER
// =============================================================================

// Stager hands out staging paths and moves them into place on Commit.
// A Stager is used for a single conversion attempt.
type Stager struct {
	// staged maps each staging path to its final path, in staging order.
	staged []stagedFile
}

type stagedFile struct {
	temp  string
	final string
}

// NewStager creates an empty Stager.
func NewStager() *Stager {
	return &Stager{}
}

// Stage returns a fresh staging path for finalPath. The staging file sits in
// the same directory so that Commit is a rename, and keeps the final
// extension so writers that check it accept the name.
func (s *Stager) Stage(finalPath string) string {
	dir, name := filepath.Split(finalPath)
	ext := filepath.Ext(name)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp%s", strings.TrimSuffix(name, ext), uuid.New().String()[:8], ext))
	s.staged = append(s.staged, stagedFile{temp: temp, final: finalPath})
	return temp
}

// Finals returns the final paths staged so far, in order.
func (s *Stager) Finals() []string {
	finals := make([]string, len(s.staged))
	for i, f := range s.staged {
		finals[i] = f.final
	}
	return finals
}

// Commit moves every staged file to its final path, replacing existing files.
//
// RETURNS:
//   - An error if any file cannot be moved. Files already moved stay in
//     place; the rest are removed.
func (s *Stager) Commit() error {
	for i, f := range s.staged {
		if err := moveFile(f.temp, f.final); err != nil {
			rest := &Stager{staged: s.staged[i:]}
			rest.Discard()
			s.staged = nil
			return fmt.Errorf("failed to move %s into place: %w", f.final, err)
		}
	}
	s.staged = nil
	return nil
}

// Discard removes every staged file. Missing files are ignored.
func (s *Stager) Discard() error {
	var errs []error
	for _, f := range s.staged {
		if err := os.Remove(f.temp); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	s.staged = nil
	return errors.Join(errs...)
}

// moveFile renames src to dst. If the rename fails (e.g., cross-device),
// it falls back to copy and delete.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	if err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetFileSize returns the size of a file in bytes.
func GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// TotalSize returns the combined size of the given files. Files that cannot
// be stat'ed count as zero.
func TotalSize(paths []string) int64 {
	var total int64
	for _, p := range paths {
		if n, err := GetFileSize(p); err == nil {
			total += n
		}
	}
	return total
}

// =============================================================================
// PART FILES
// =============================================================================

// FindParts lists the existing files named "<prefix>_P<n>.xlsx", ordered by
// n. prefix may include a directory.
func FindParts(prefix string) ([]string, error) {
	dir, base := filepath.Split(prefix)
	if dir == "" {
		dir = "."
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `_P([0-9]+)\.xlsx$`)
	type part struct {
		path  string
		index int
	}
	var parts []part
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		parts = append(parts, part{path: filepath.Join(filepath.Dir(prefix), e.Name()), index: n})
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].index < parts[j].index })
	paths := make([]string, len(parts))
	for i, p := range parts {
		paths[i] = p.path
	}
	return paths, nil
}
