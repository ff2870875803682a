package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved file system locations used at runtime.
// Relative configured paths are anchored at the executable directory, never
// the current working directory.
type Paths struct {
	ExecutableDir string
	StagingDir    string
	LogFile       string
}

// GetPaths resolves the configured paths relative to the executable location
func GetPaths(cfg *Config) (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return resolvePaths(filepath.Dir(exe), cfg), nil
}

func resolvePaths(exeDir string, cfg *Config) *Paths {
	p := &Paths{ExecutableDir: exeDir}

	// An empty staging dir means the OS temp dir
	if cfg.Paths.StagingDir != "" {
		p.StagingDir = anchor(exeDir, cfg.Paths.StagingDir)
	}
	if cfg.Logging.Output != "console" && cfg.Logging.FilePath != "" {
		p.LogFile = anchor(exeDir, cfg.Logging.FilePath)
	}
	return p
}

func anchor(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// EnsureDirectories creates the staging and log directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	var directories []string
	if p.StagingDir != "" {
		directories = append(directories, p.StagingDir)
	}
	if p.LogFile != "" {
		directories = append(directories, filepath.Dir(p.LogFile))
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Default().Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}
