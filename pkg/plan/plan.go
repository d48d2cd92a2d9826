package plan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest lists the legacy files to import.
type Manifest struct {
	Sources []Source `yaml:"sources"`
}

type Source struct {
	File string `yaml:"file"`
	// Sheet restricts a workbook to one sheet; empty reads them all.
	Sheet string `yaml:"sheet"`
}

// Path returns the source file path, expanding ~ and resolving relative
// paths against base.
func (s Source) Path(base string) (string, error) {
	p := s.File
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[2:]), nil
	}
	if !filepath.IsAbs(p) && base != "" {
		p = filepath.Join(base, p)
	}
	return p, nil
}

// Load reads a manifest. Relative source paths are resolved against the
// manifest's directory.
func Load(path string) (*Manifest, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, "", fmt.Errorf("failed to parse yaml: %w", err)
	}
	if len(m.Sources) == 0 {
		return nil, "", fmt.Errorf("manifest has no sources")
	}
	for i, s := range m.Sources {
		if s.File == "" {
			return nil, "", fmt.Errorf("source %d has no file", i+1)
		}
	}
	return &m, filepath.Dir(path), nil
}

func (m *Manifest) Print(w io.Writer) {
	for i, s := range m.Sources {
		sheet := s.Sheet
		if sheet == "" {
			sheet = "*"
		}
		fmt.Fprintf(w, "[%d] file=%s sheet=%s\n", i+1, s.File, sheet)
	}
}
