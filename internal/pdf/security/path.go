// Package security guards the file system and document permissions used by
// a merge.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator keeps file access inside one configured directory
type PathValidator struct {
	configuredDirectory string
}

// NewPathValidator creates a new path validator for the given directory.
// The directory does not have to exist yet.
func NewPathValidator(configuredDirectory string) (*PathValidator, error) {
	if configuredDirectory == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	return &PathValidator{configuredDirectory: configuredDirectory}, nil
}

// GetConfiguredDirectory returns the configured directory path
func (v *PathValidator) GetConfiguredDirectory() string {
	return v.configuredDirectory
}

// ValidatePath checks if a path is within the configured directory
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if _, err := os.Stat(v.configuredDirectory); os.IsNotExist(err) {
		return nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	isWithin, err := v.IsPathWithinDirectory(absPath)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !isWithin {
		return fmt.Errorf("path is outside configured directory: %s", path)
	}
	return nil
}

// IsPathWithinDirectory checks if a path is within the configured directory,
// following symlinks on both sides
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	if _, err := os.Stat(v.configuredDirectory); os.IsNotExist(err) {
		return true, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	absDir, err := filepath.Abs(v.configuredDirectory)
	if err != nil {
		return false, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(absDir)

	realPath := cleanPath
	if info, err := os.Lstat(cleanPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if resolved, err := filepath.EvalSymlinks(cleanPath); err == nil {
			realPath = resolved
		}
	}
	realDir := cleanDir
	if resolved, err := filepath.EvalSymlinks(cleanDir); err == nil {
		realDir = resolved
	}

	within := func(p string) bool {
		return inside(p, cleanDir) || inside(p, realDir)
	}
	return within(cleanPath) && within(realPath), nil
}

func inside(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}

// NormalizePath returns an absolute path inside the configured directory.
// Relative paths are taken relative to it.
func (v *PathValidator) NormalizePath(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.configuredDirectory, path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := v.ValidatePath(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// ValidateInputFile normalizes path and checks that it names a readable
// regular file
func (v *PathValidator) ValidateInputFile(path string) (string, error) {
	normalized, err := v.NormalizePath(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(normalized)
	if err != nil {
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", path)
	}
	return normalized, nil
}

// ValidateOutputFile normalizes path and checks that a PDF can be written
// there: the name ends in .pdf, it is not a directory and its parent exists
func (v *PathValidator) ValidateOutputFile(path string) (string, error) {
	normalized, err := v.NormalizePath(path)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(normalized), ".pdf") {
		return "", fmt.Errorf("output file must have a .pdf extension: %s", path)
	}
	if info, err := os.Stat(normalized); err == nil && info.IsDir() {
		return "", fmt.Errorf("output path is a directory: %s", path)
	}
	parent := filepath.Dir(normalized)
	info, err := os.Stat(parent)
	if err != nil {
		return "", fmt.Errorf("output directory is not accessible: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("output parent is not a directory: %s", parent)
	}
	return normalized, nil
}
