package cmd

import (
	"os"
	"path/filepath"
)

// collectFiles expands args (files, directories, globs) into a flat list
// of paths. Files named directly or matched by a glob are kept whatever
// their extension; directories are walked for *.c/*.h files.
func collectFiles(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				out = append(out, m)
				continue
			}
			walkErr := filepath.Walk(m, func(path string, fi os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if fi.IsDir() {
					return nil
				}
				ext := filepath.Ext(path)
				if ext == ".c" || ext == ".h" {
					out = append(out, path)
				}
				return nil
			})
			if walkErr != nil {
				return nil, walkErr
			}
		}
	}
	return out, nil
}
