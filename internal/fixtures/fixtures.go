// Package fixtures persists extracted-text snapshots used as regression
// fixtures by the parser tests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteTextFixture writes raw text under baseDir, creating parents as needed.
// Always overwrites.
func WriteTextFixture(baseDir, filename, rawText string) (string, error) {
	path := filepath.Join(baseDir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create fixtures dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(rawText), 0o644); err != nil {
		return "", fmt.Errorf("write fixture: %w", err)
	}
	return path, nil
}
