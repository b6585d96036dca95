package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/wavecal/internal/constants"
)

// GlobalDataPath returns the path to the global .wavecal directory.
// On Unix: ~/.wavecal
// On Windows: %USERPROFILE%\.wavecal
func GlobalDataPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DataDirName), nil
}

// LocalDataPath returns the path to the .wavecal directory under root.
func LocalDataPath(root string) string {
	return filepath.Join(root, constants.DataDirName)
}

// DatabasePath returns the run ledger location under root.
func DatabasePath(root string) string {
	return filepath.Join(LocalDataPath(root), constants.DatabaseFileName)
}

// EnsureDataDir creates the .wavecal directory under root if it doesn't exist.
func EnsureDataDir(root string) (string, error) {
	dir := LocalDataPath(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", constants.DataDirName, err)
	}
	return dir, nil
}
