package quadstore

import (
	"context"
	"iter"

	"github.com/cockroachdb/errors"
)

var (
	// ErrVersionExists is returned by Append when the version is already committed.
	ErrVersionExists = errors.New("version already exists")
	// ErrVersionOutOfSequence is returned by Append when the version is lower
	// than the latest committed version.
	ErrVersionOutOfSequence = errors.New("version out of sequence")
	// ErrVersionNotFound is returned when a committed version is looked up and missing.
	ErrVersionNotFound = errors.New("version not found")
	// ErrReadOnly is returned by write operations on a store opened read-only.
	ErrReadOnly = errors.New("store is read-only")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// OpenOptions provides configuration for opening a store.
type OpenOptions struct {
	// Path to the directory holding the store's files.
	Path string
	// ReadOnly opens an existing store without taking the write lock.
	ReadOnly bool
	// SyncWrites makes every commit durable before it returns.
	SyncWrites bool
}

// Store defines the public API of a versioned delta store.
// Implementations must be safe for concurrent use from multiple goroutines.
type Store interface {
	// Append stores the delta for one version. The delta is consumed lazily,
	// in order. Append is all-or-nothing: if the delta yields an error, the
	// context is cancelled or the write fails, nothing of the version is
	// visible afterwards and the error is returned. An empty delta commits an
	// empty version. It returns the number of entries stored.
	Append(ctx context.Context, version uint64, delta iter.Seq2[Change, error]) (int, error)

	// Version returns the record of a committed version.
	Version(ctx context.Context, version uint64) (*VersionInfo, error)

	// Latest returns the record of the highest committed version, or
	// ErrVersionNotFound when the store is empty.
	Latest(ctx context.Context) (*VersionInfo, error)

	// Log returns committed versions, newest first. A limit <= 0 returns all.
	Log(ctx context.Context, limit int) ([]*VersionInfo, error)

	// Changes streams the entries of a committed version in append order.
	Changes(ctx context.Context, version uint64) iter.Seq2[Change, error]

	// Close releases the store. It is idempotent.
	Close() error
}

// Open is the main entry point to the quadstore library.
func Open(ctx context.Context, opts OpenOptions) (Store, error) {
	if opts.Path == "" {
		return nil, errors.New("store path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store, err := openBadger(opts)
	if err != nil {
		return nil, err
	}
	return store, nil
}
