// Package scaffold writes a starter burrow.yml for `burrow init`.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/dyluth/burrow/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Options configure Initialize.
type Options struct {
	Dir     string // target directory, "" for the working directory
	Project string
	Port    int // Redis host port, 0 for 6379
	Force   bool
}

// Initialize renders burrow.yml into the target directory and validates it.
// Returns the path written.
func Initialize(opts Options) (string, error) {
	path := filepath.Join(opts.Dir, config.DefaultFileName)

	if opts.Force {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to remove %s: %w", config.DefaultFileName, err)
		}
	} else if err := CheckExisting(opts.Dir); err != nil {
		return "", err
	}

	content, err := Render(opts.Project, opts.Port)
	if err != nil {
		return "", err
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", opts.Dir, err)
		}
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("created %s is invalid: %w", config.DefaultFileName, err)
	}

	return path, nil
}

// Render produces the starter configuration for project.
func Render(project string, port int) ([]byte, error) {
	if port == 0 {
		port = 6379
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/burrow.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read burrow.yml template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct {
		Project string
		Port    int
	}{project, port}); err != nil {
		return nil, fmt.Errorf("failed to render burrow.yml: %w", err)
	}

	if _, err := config.Parse(buf.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PrintSuccess describes what was created and what to do next.
func PrintSuccess(w io.Writer, path string) {
	fmt.Fprintln(w, "\n✅ Successfully initialized Burrow project!")
	fmt.Fprintln(w, "\nCreated:")
	fmt.Fprintf(w, "  ✓ %s\n", path)
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintln(w, "  1. Run 'burrow db up' to start the asset database")
	fmt.Fprintln(w, "  2. Run 'burrow seed hero' to publish a demo asset")
	fmt.Fprintln(w, "  3. Run 'burrow ls hero' or 'burrow browse hero'")
}
