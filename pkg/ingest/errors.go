package ingest

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// DirectoryAccessError reports a change-set directory that is missing or unreadable.
type DirectoryAccessError struct {
	Path string
	Err  error
}

func (e *DirectoryAccessError) Error() string {
	return fmt.Sprintf("cannot read change-set directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryAccessError) Unwrap() error { return e.Err }

// IngestParseError reports a malformed serialization in one change file.
type IngestParseError struct {
	File string
	Err  error
}

func (e *IngestParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *IngestParseError) Unwrap() error { return e.Err }

// StoreOpenError reports a store that could not be opened: bad path, held
// lock or corrupt files.
type StoreOpenError struct {
	StorePath string
	Err       error
}

func (e *StoreOpenError) Error() string {
	return fmt.Sprintf("open store %s: %v", e.StorePath, e.Err)
}

func (e *StoreOpenError) Unwrap() error { return e.Err }

// StoreAppendError reports a store that rejected the delta of a version.
type StoreAppendError struct {
	StorePath string
	Version   uint64
	Err       error
}

func (e *StoreAppendError) Error() string {
	return fmt.Sprintf("append version %d to store %s: %v", e.Version, e.StorePath, e.Err)
}

func (e *StoreAppendError) Unwrap() error { return e.Err }

// ArgumentError reports invalid command-line input.
type ArgumentError struct {
	Arg   string
	Value string
	Err   error
}

func (e *ArgumentError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Arg, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Arg, e.Value, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// Exit codes, one per error kind.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitArgument        = 2
	ExitDirectoryAccess = 3
	ExitParse           = 4
	ExitStoreOpen       = 5
	ExitStoreAppend     = 6
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		argErr    *ArgumentError
		dirErr    *DirectoryAccessError
		parseErr  *IngestParseError
		openErr   *StoreOpenError
		appendErr *StoreAppendError
	)
	switch {
	case errors.As(err, &argErr):
		return ExitArgument
	case errors.As(err, &dirErr):
		return ExitDirectoryAccess
	case errors.As(err, &parseErr):
		return ExitParse
	case errors.As(err, &openErr):
		return ExitStoreOpen
	case errors.As(err, &appendErr):
		return ExitStoreAppend
	default:
		return ExitFailure
	}
}
