package ingest

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mannyrivera2010/go-quadingest/pkg/quadstore"
)

var (
	defaultDeletionPatterns = []string{"*deleted.nt", "*deleted.nq"}
	defaultAdditionPatterns = []string{"*.nt", "*.nq"}
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(defaultDeletionPatterns, defaultAdditionPatterns)
	require.NoError(t, err)
	return c
}

// writeFiles creates a change-set directory holding the given files.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func ntQuad(s, p, o string) quadstore.Quad {
	return quadstore.Quad{
		Subject:   "<http://example.org/" + s + ">",
		Predicate: "<http://example.org/" + p + ">",
		Object:    "<http://example.org/" + o + ">",
	}
}

func ntLine(s, p, o string) string {
	return ntQuad(s, p, o).String() + "\n"
}

type appendCall struct {
	version uint64
	changes []quadstore.Change
	err     error // error yielded by the delta, if any
}

// fakeStore records what the driver does with a store handle.
type fakeStore struct {
	appendErr error
	closeErr  error
	appends   []appendCall
	closes    int
}

func (f *fakeStore) Append(_ context.Context, version uint64, delta iter.Seq2[quadstore.Change, error]) (int, error) {
	call := appendCall{version: version}
	for c, err := range delta {
		if err != nil {
			call.err = err
			f.appends = append(f.appends, call)
			return 0, err
		}
		call.changes = append(call.changes, c)
	}
	f.appends = append(f.appends, call)
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	return len(call.changes), nil
}

func (f *fakeStore) Close() error {
	f.closes++
	return f.closeErr
}

func (f *fakeStore) opener() Opener {
	return func(context.Context, quadstore.OpenOptions) (Appender, error) {
		return f, nil
	}
}
