// Package ingest turns a directory of change files into one version of a
// versioned quad store.
package ingest

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"

	"github.com/mannyrivera2010/go-quadingest/pkg/quadstore"
)

// Classification is the result of scanning a change-set directory.
// The two lists are disjoint. Their order is the directory listing order,
// which callers must not rely on.
type Classification struct {
	Additions []string
	Deletions []string
}

// Len is the number of classified files.
func (c *Classification) Len() int {
	return len(c.Additions) + len(c.Deletions)
}

// Classifier sorts file names into deletion and addition batches by glob
// pattern. Deletion patterns are tried first since they are the more
// specific case of the data file suffix.
type Classifier struct {
	deletion []string
	addition []string
}

// NewClassifier validates the patterns and returns a Classifier.
func NewClassifier(deletionPatterns, additionPatterns []string) (*Classifier, error) {
	for _, p := range append(append([]string(nil), deletionPatterns...), additionPatterns...) {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Newf("invalid file pattern %q", p)
		}
	}
	return &Classifier{deletion: deletionPatterns, addition: additionPatterns}, nil
}

// Polarity reports how a file name is classified. ok is false for names that
// match no pattern.
func (c *Classifier) Polarity(name string) (polarity quadstore.ChangeType, ok bool) {
	if matchAny(c.deletion, name) {
		return quadstore.Deletion, true
	}
	if matchAny(c.addition, name) {
		return quadstore.Addition, true
	}
	return 0, false
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Classify lists dir and classifies its entries. Subdirectories and names
// matching no pattern are skipped.
func (c *Classifier) Classify(dir string) (*Classification, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DirectoryAccessError{Path: dir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}

	cls := c.ClassifyNames(names)
	for i, name := range cls.Additions {
		cls.Additions[i] = filepath.Join(dir, name)
	}
	for i, name := range cls.Deletions {
		cls.Deletions[i] = filepath.Join(dir, name)
	}
	return cls, nil
}

// ClassifyNames classifies bare file names, keeping their relative order.
func (c *Classifier) ClassifyNames(names []string) *Classification {
	cls := &Classification{}
	for _, name := range names {
		polarity, ok := c.Polarity(name)
		if !ok {
			continue
		}
		if polarity == quadstore.Deletion {
			cls.Deletions = append(cls.Deletions, name)
		} else {
			cls.Additions = append(cls.Additions, name)
		}
	}
	return cls
}
