// Package gallery discovers contract templates on disk and exposes them as
// parsed entries for the composer.
package gallery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"labz/internal/solidity"
)

// TemplateInfo is one discovered template with its parsed model. Contract may
// describe a partial model when the source is malformed; the entry is only
// dropped when no contract declaration was found at all.
type TemplateInfo struct {
	Name     string             `json:"name"`
	Path     string             `json:"path"`
	Source   string             `json:"source"`
	Contract *solidity.Contract `json:"contract"`
}

// Scanner walks a directory tree for Solidity templates.
type Scanner struct {
	ignored []string
}

// NewScanner creates a scanner with the usual ignored directories.
func NewScanner() *Scanner {
	return &Scanner{
		ignored: []string{".git", "node_modules", "artifacts", "cache", "out"},
	}
}

// ScanDir walks root and streams every parseable .sol template through the
// callback, preventing large memory buildup on big galleries. Files that do
// not contain a contract declaration are skipped, not fatal.
func (s *Scanner) ScanDir(root string, onTemplate func(*TemplateInfo)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			for _, ign := range s.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".sol") {
			return nil
		}

		info, err := s.loadTemplate(path)
		if err != nil {
			// Skip unreadable or contract-less files and keep scanning.
			return nil
		}

		onTemplate(info)
		return nil
	})
}

// List collects every template under root, sorted by walk order.
func (s *Scanner) List(root string) ([]*TemplateInfo, error) {
	var out []*TemplateInfo
	err := s.ScanDir(root, func(info *TemplateInfo) {
		out = append(out, info)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan template directory %s: %w", root, err)
	}
	return out, nil
}

// Load reads and parses a single template file.
func (s *Scanner) Load(path string) (*TemplateInfo, error) {
	info, err := s.loadTemplate(path)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Scanner) loadTemplate(path string) (*TemplateInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}

	source := string(data)
	contract, err := solidity.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}

	name := contract.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".sol")
	}

	return &TemplateInfo{
		Name:     name,
		Path:     path,
		Source:   source,
		Contract: contract,
	}, nil
}
