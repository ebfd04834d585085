package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir ensures the provided directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// ResolvePipeline finds a pipeline by path or by name inside dir. A bare
// name "gapminder" matches dir/gapminder.yaml or dir/gapminder.yml.
func ResolvePipeline(arg, dir string) (string, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return arg, nil
	}
	if strings.ContainsRune(arg, filepath.Separator) || filepath.Ext(arg) != "" {
		return "", fmt.Errorf("pipeline file %s: %w", arg, os.ErrNotExist)
	}
	for _, ext := range []string{".yaml", ".yml"} {
		candidate := filepath.Join(dir, arg+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.New("pipeline not found: " + arg + " (looked in " + dir + ")")
}
