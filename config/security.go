package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Input limits.
const (
	maxConfigSize = 10 << 20  // config files
	maxDataSize   = 256 << 20 // seed files
	maxDepth      = 100       // nesting of a decoded document
	maxEnvVarLen  = 10000
	maxPathLen    = 4096
)

var configExtensions = []string{".yaml", ".yml", ".json"}

// checkPath rejects overlong paths, relative paths that leave the working
// directory and extensions outside exts.
func checkPath(path string, exts []string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	if len(path) > maxPathLen {
		return fmt.Errorf("path too long: %d > %d", len(path), maxPathLen)
	}

	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("cannot resolve absolute path: %w", err)
		}
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot get working directory: %w", err)
		}
		if rel, err := filepath.Rel(cwd, abs); err != nil || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("path traversal not allowed: %s resolves outside working directory", path)
		}
	}

	if !slices.Contains(exts, strings.ToLower(filepath.Ext(path))) {
		return fmt.Errorf("only %s files allowed: %s", describeExts(exts), path)
	}
	return nil
}

func describeExts(exts []string) string {
	if slices.Equal(exts, configExtensions) {
		return "YAML or JSON config"
	}
	return strings.Join(exts, ", ")
}

// readChecked reads a regular file no larger than limit.
func readChecked(path string, exts []string, limit int64) ([]byte, error) {
	if err := checkPath(path, exts); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("file too large: %d bytes > %d", info.Size(), limit)
	}
	return os.ReadFile(path)
}

func safeReadFile(path string) ([]byte, error) {
	return readChecked(path, configExtensions, maxConfigSize)
}

// ReadSeedFile reads a JSON triple file under the same path rules as
// configuration files.
func ReadSeedFile(path string) ([]byte, error) {
	return readChecked(path, []string{".json"}, maxDataSize)
}

func safeWriteFile(path string, data []byte) error {
	if err := checkPath(path, configExtensions); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if len(data) > maxConfigSize {
		return fmt.Errorf("config data too large: %d bytes > %d", len(data), maxConfigSize)
	}
	return os.WriteFile(path, data, 0o600)
}

func validateEnvVar(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("environment variable %s too long: %d > %d", key, len(value), maxEnvVarLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("null byte in environment variable %s", key)
	}
	return nil
}

// validateDepth bounds the nesting of a decoded document.
func validateDepth(v any, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("nesting too deep: %d > %d", depth, maxDepth)
	}
	var children []any
	switch val := v.(type) {
	case map[string]any:
		for _, item := range val {
			children = append(children, item)
		}
	case []any:
		children = val
	}
	for _, item := range children {
		if err := validateDepth(item, depth+1); err != nil {
			return err
		}
	}
	return nil
}
