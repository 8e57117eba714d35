package scaffold

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dyluth/switchboard/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

const (
	// ConfigFile is the configuration file created by Initialize
	ConfigFile = "switchboard.yml"

	// DataDir holds local event history
	DataDir = ".switchboard"
)

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize creates switchboard.yml and the data directory in dir.
// If force is true, it will remove existing switchboard.yml and data directory
func Initialize(dir string, force bool, w io.Writer) error {
	if force {
		if err := handleForce(dir, w); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, DataDir), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", DataDir, err)
	}

	for _, file := range files {
		path := filepath.Join(dir, file.Path)
		if err := os.WriteFile(path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	// The generated configuration must load as-is
	if _, err := config.Load(filepath.Join(dir, ConfigFile)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", ConfigFile, err)
	}

	return nil
}

// handleForce removes existing files if --force was specified
func handleForce(dir string, w io.Writer) error {
	cfg := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(cfg); err == nil {
		fmt.Fprintf(w, "⚠️  Removing existing %s...\n", ConfigFile)
		if err := os.Remove(cfg); err != nil {
			return fmt.Errorf("failed to remove %s: %w", ConfigFile, err)
		}
	}

	data := filepath.Join(dir, DataDir)
	if info, err := os.Stat(data); err == nil && info.IsDir() {
		fmt.Fprintf(w, "⚠️  Removing existing %s/ directory...\n", DataDir)
		if err := os.RemoveAll(data); err != nil {
			return fmt.Errorf("failed to remove %s/ directory: %w", DataDir, err)
		}
	}

	return nil
}

// getTemplateFiles reads all template files
func getTemplateFiles() ([]FileInfo, error) {
	cfg, err := templatesFS.ReadFile("templates/switchboard.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s template: %w", ConfigFile, err)
	}

	ignore, err := templatesFS.ReadFile("templates/gitignore.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read .gitignore template: %w", err)
	}

	return []FileInfo{
		{Path: ConfigFile, Content: cfg, Permissions: 0600}, // holds the manager secret
		{Path: filepath.Join(DataDir, ".gitignore"), Content: ignore, Permissions: 0644},
	}, nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess(w io.Writer) {
	fmt.Fprintln(w, "\n✅ Successfully initialized switchboard!")
	fmt.Fprintln(w, "\nCreated:")
	fmt.Fprintf(w, "  ✓ %s\n", ConfigFile)
	fmt.Fprintf(w, "  ✓ %s/\n", DataDir)
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintf(w, "  1. Set manager.username and manager.secret in %s\n", ConfigFile)
	fmt.Fprintln(w, "  2. Run 'switchboard ping' to check the connection")
	fmt.Fprintln(w, "  3. Run 'switchboard watch' to follow live events")
}
