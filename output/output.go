// Package output persists synthesis results to disk.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
)

// WriteAudio writes audio to base.ext and returns the path written.
func WriteAudio(base, ext string, audio []byte) (string, error) {
	path := base + "." + strings.TrimPrefix(ext, ".")
	if err := writeFile(path, audio); err != nil {
		return "", err
	}
	return path, nil
}

// WriteAlignment writes v as indented JSON to base.json.
func WriteAlignment(base string, v any) (string, error) {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode alignment: %w", err)
	}
	path := base + ".json"
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
