package persist

import (
	"context"
	"os"
	"path/filepath"

	"github.com/EdoardoCarlesi/MetroCpp/treepb"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// LocalStore persists clean trees as files under a root directory,
// through grailbio/base/file's path-transparent abstraction -- the
// same one catalog.ReadHalos and snapindex.ReadFiles use, so a
// LocalStore's Root can later point at a non-local path (e.g. an S3
// prefix) without this package changing.
type LocalStore struct {
	Root string
}

// NewLocalStore returns a LocalStore rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{Root: dir}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.Root, key+".gob.gz")
}

// WriteCleanTree implements Store.
func (s *LocalStore) WriteCleanTree(ctx context.Context, key string, records []treepb.MergerTreeRecord) error {
	data, err := encode(records)
	if err != nil {
		return err
	}
	path := s.path(key)
	// file.Create doesn't create local parent directories; Root is a
	// plain directory tree for this store, so make sure it exists
	// before handing the write off to the abstraction.
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "persist: mkdir %s", filepath.Dir(path))
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "persist: create %s", path)
	}
	if _, err := out.Writer(ctx).Write(data); err != nil {
		out.Close(ctx)
		return errors.Wrapf(err, "persist: write %s", path)
	}
	if err := out.Close(ctx); err != nil {
		return errors.Wrapf(err, "persist: close %s", path)
	}
	return nil
}

// ReadCleanTree implements Store.
func (s *LocalStore) ReadCleanTree(ctx context.Context, key string) ([]treepb.MergerTreeRecord, error) {
	path := s.path(key)
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "persist: open %s", path)
	}
	defer in.Close(ctx)
	return decode(in.Reader(ctx))
}
