package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ridoystarlord/pgguard/schema"
)

// LoadSourceFile reads a source file from disk
func LoadSourceFile(path string) (*schema.SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to load source file: '%s' is a directory", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load source file: %w", err)
	}

	return &schema.SourceFile{FilePath: path, Content: content}, nil
}

// FindSourceFiles expands files and directories into the list of files the
// extractor understands. Directories are walked recursively, skipping
// hidden directories, vendor and testdata. Explicitly named files are
// always kept.
func FindSourceFiles(paths []string, includeTests bool) ([]string, error) {
	var files []string

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to find source files: %w", err)
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			name := d.Name()
			if d.IsDir() {
				if path != root && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
					return filepath.SkipDir
				}
				return nil
			}

			if !Supported(path) {
				return nil
			}
			if !includeTests && strings.HasSuffix(name, "_test.go") {
				return nil
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	return files, nil
}
