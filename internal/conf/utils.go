package conf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns the configuration directories for the current operating system.
// If one of them already holds a config.yaml, only that path is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting home directory: %w", err)
	}

	var configPaths []string
	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			".",
			filepath.Join(homeDir, "AppData", "Roaming", "surveygen"),
		}
	default:
		configPaths = []string{
			".",
			filepath.Join(homeDir, ".config", "surveygen"),
			"/etc/surveygen",
		}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// UserConfigPath is where "init config" writes when no path is given.
func UserConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %w", err)
	}
	if runtime.GOOS == osWindows {
		return filepath.Join(homeDir, "AppData", "Roaming", "surveygen", "config.yaml"), nil
	}
	return filepath.Join(homeDir, ".config", "surveygen", "config.yaml"), nil
}

// moveFile moves a file from src to dst, working across devices
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("error opening source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("error creating destination file: %w", err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return fmt.Errorf("error copying file contents: %w", err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("error closing destination file: %w", err)
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("error removing source file after copy: %w", err)
	}

	return nil
}
