package flatfile

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/loamdb/loam/pkg/db"
)

// Source iterates the store's records. File paths are fixed up front in
// lexical order, so iteration is deterministic; values are read lazily, one
// file per Next call. Forward-only, restartable only by calling NewSource
// again.
type Source struct {
	paths []string
	pos   int
}

func (s *Store) NewSource() (*Source, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), suffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("flatfile: scan %s: %w", s.root, err)
	}
	sort.Strings(paths)
	return &Source{paths: paths}, nil
}

func (s *Source) Next() (db.Record, error) {
	if s.pos == len(s.paths) {
		return db.Record{}, io.EOF
	}
	path := s.paths[s.pos]
	s.pos++

	key, err := decodeName(filepath.Base(path))
	if err != nil {
		return db.Record{}, err
	}
	value, err := os.ReadFile(path)
	if err != nil {
		return db.Record{}, fmt.Errorf("flatfile: read record %q: %w", filepath.Base(path), err)
	}
	return db.Record{Key: key, Value: value}, nil
}
