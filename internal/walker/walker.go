// Package walker lists the readable text files of a source tree with the
// size and mtime metadata the indexer needs.
package walker

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileInfo holds metadata about a discovered source file.
type FileInfo struct {
	Path    string
	RelPath string
	Size    int64
	MtimeMs int64
}

// sniffLen is how many leading bytes are inspected for binary content.
const sniffLen = 8000

// Options configures a walk.
type Options struct {
	// ExcludedDirs are directory names skipped anywhere in the tree.
	ExcludedDirs []string
	// MaxFileSize is the largest file considered, in bytes.
	MaxFileSize int64
}

// Walk traverses the directory tree rooted at root and sends discovered
// text files on the returned channel. Directories in opts.ExcludedDirs and
// paths matched by the root's .gitignore are skipped, as are symlinks,
// empty files, oversized files, and files that sniff as binary.
func Walk(root string, opts Options) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- err
			return
		}

		excluded := make(map[string]bool, len(opts.ExcludedDirs))
		for _, d := range opts.ExcludedDirs {
			excluded[d] = true
		}

		// .gitignore is honored when present; its absence is not an error.
		ignore, _ := gitignore.CompileIgnoreFile(filepath.Join(absRoot, ".gitignore"))

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries, keep walking
			}

			rel, _ := filepath.Rel(absRoot, path)
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if path == absRoot {
					return nil
				}
				if excluded[d.Name()] {
					return filepath.SkipDir
				}
				if ignore != nil && ignore.MatchesPath(rel+"/") {
					return filepath.SkipDir
				}
				return nil
			}

			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}
			if ignore != nil && ignore.MatchesPath(rel) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Size() == 0 || (opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize) {
				return nil
			}
			if isBinary(path) {
				return nil
			}

			files <- FileInfo{
				Path:    path,
				RelPath: rel,
				Size:    info.Size(),
				MtimeMs: info.ModTime().UnixMilli(),
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

// isBinary sniffs the head of the file for NUL bytes. Unreadable files are
// treated as binary so the walk skips them.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := f.Read(buf)
	if n == 0 && err != nil {
		return true
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}
