package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"liquidlint/internal/engine"
)

const templateExt = ".liquid"

// Каталоги, которые не содержат исходников темы.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// collectFiles expands args into template paths: files are taken as is,
// directories are walked for *.liquid. The result is sorted and unique.
func collectFiles(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		p = filepath.ToSlash(filepath.Clean(p))
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, arg := range args {
		if arg == "-" {
			add(arg)
			continue
		}
		st, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat path: %w", err)
		}
		if !st.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != arg && (skipDirs[name] || strings.HasPrefix(name, ".")) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), templateExt) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	slices.Sort(files)
	return files, nil
}

// readInputs loads every path; "-" reads stdin once.
func readInputs(paths []string, stdin io.Reader) ([]engine.Input, error) {
	inputs := make([]engine.Input, 0, len(paths))
	for _, p := range paths {
		var (
			data []byte
			err  error
		)
		if p == "-" {
			data, err = io.ReadAll(stdin)
			p = "<stdin>"
		} else {
			data, err = os.ReadFile(p)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		inputs = append(inputs, engine.Input{Path: p, Content: data})
	}
	return inputs, nil
}
