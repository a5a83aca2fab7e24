// Package flatfile reads and writes the legacy flat-file store layout: one
// file per record, named by the unpadded uppercase base32 of the key with a
// .dat suffix, sharded into two-character prefix directories. Only the
// sequential iteration contract matters to consumers; the layout here
// exists so stores and test fixtures can be built.
package flatfile

import (
	"encoding/base32"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/loamdb/loam/pkg/db"
)

const suffix = ".dat"

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

type Store struct {
	root string
}

// Open opens an existing flat-file store rooted at path.
func Open(path string) (*Store, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("flatfile: open %s: %w", path, db.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("flatfile: open %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("flatfile: open %s: not a directory", path)
	}
	return &Store{root: path}, nil
}

// Create creates an empty store at path, or opens it when already present.
func Create(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("flatfile: create %s: %w", path, err)
	}
	return &Store{root: path}, nil
}

// Put writes one record. An existing record for the key is overwritten.
func (s *Store) Put(key, value []byte) error {
	if len(key) == 0 {
		return errors.New("flatfile: empty key")
	}

	name := encoding.EncodeToString(key) + suffix
	shard := filepath.Join(s.root, name[:2])
	if err := os.MkdirAll(shard, 0o755); err != nil {
		return fmt.Errorf("flatfile: put: %w", err)
	}
	if err := os.WriteFile(filepath.Join(shard, name), value, 0o644); err != nil {
		return fmt.Errorf("flatfile: put: %w", err)
	}
	return nil
}

// Len counts the records in the store.
func (s *Store) Len() (int, error) {
	var n int
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), suffix) {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("flatfile: len: %w", err)
	}
	return n, nil
}

// decodeName recovers the key from a record file name.
func decodeName(name string) ([]byte, error) {
	encoded, ok := strings.CutSuffix(name, suffix)
	if !ok {
		return nil, fmt.Errorf("flatfile: malformed record name %q", name)
	}
	key, err := encoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("flatfile: malformed record name %q: %w", name, err)
	}
	return key, nil
}
