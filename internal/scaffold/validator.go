package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/burrow/internal/config"
)

// CheckExisting fails if dir already holds a burrow.yml.
func CheckExisting(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, config.DefaultFileName)); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'burrow init --force' to reinitialize (this will overwrite existing configuration)", config.DefaultFileName)
	}
	return nil
}
