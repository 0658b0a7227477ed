package repo

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// maxIndexedFileSize skips generated artifacts and binaries that would
// pollute retrieval.
const maxIndexedFileSize = 512 * 1024

// Indexer walks a repository tree and lists the files worth retrieving
// context from. The filesystem is abstracted for tests.
type Indexer struct {
	fs             afero.Fs
	ignorePatterns []string
}

// NewIndexer creates an Indexer over the OS filesystem.
func NewIndexer(ignorePatterns []string) *Indexer {
	return &Indexer{fs: afero.NewOsFs(), ignorePatterns: ignorePatterns}
}

// NewIndexerFs creates an Indexer over the given filesystem.
func NewIndexerFs(fsys afero.Fs, ignorePatterns []string) *Indexer {
	return &Indexer{fs: fsys, ignorePatterns: ignorePatterns}
}

// List returns the repo-relative paths of all indexable files under root,
// in walk order.
func (ix *Indexer) List(root string) ([]string, error) {
	var files []string

	err := afero.Walk(ix.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if ix.ignored(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if ix.ignored(rel) || info.Size() > maxIndexedFileSize {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", root, err)
	}

	return files, nil
}

// ReadFile reads one indexed file.
func (ix *Indexer) ReadFile(root, rel string) (string, error) {
	data, err := afero.ReadFile(ix.fs, filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ignored matches a repo-relative path against the ignore patterns.
// Patterns ending in "/" match directory prefixes; patterns containing
// glob metacharacters match the basename; anything else matches as a
// path substring.
func (ix *Indexer) ignored(rel string) bool {
	for _, pat := range ix.ignorePatterns {
		switch {
		case strings.HasSuffix(pat, "/"):
			if strings.HasPrefix(rel, pat) || strings.Contains(rel, "/"+pat) || rel == strings.TrimSuffix(pat, "/")+"/" {
				return true
			}
		case strings.ContainsAny(pat, "*?["):
			if ok, _ := path.Match(pat, path.Base(rel)); ok {
				return true
			}
		default:
			if strings.Contains(rel, pat) {
				return true
			}
		}
	}
	return false
}
