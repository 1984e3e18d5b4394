package ingest

import (
	"context"
	"iter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mannyrivera2010/go-quadingest/pkg/logger"
	"github.com/mannyrivera2010/go-quadingest/pkg/quadstore"
)

// Appender is the part of a store the driver needs.
type Appender interface {
	Append(ctx context.Context, version uint64, delta iter.Seq2[quadstore.Change, error]) (int, error)
	Close() error
}

// Opener acquires a store handle.
type Opener func(ctx context.Context, opts quadstore.OpenOptions) (Appender, error)

// OpenQuadstore opens the BadgerDB-backed quadstore.
func OpenQuadstore(ctx context.Context, opts quadstore.OpenOptions) (Appender, error) {
	return quadstore.Open(ctx, opts)
}

// Options configures a Driver. Classifier is required; the rest have defaults.
type Options struct {
	Classifier *Classifier
	Open       Opener
	// Streaming hands the store a lazy delta. When false the whole delta is
	// built first and a parse error means Append is never called.
	Streaming  bool
	SyncWrites bool
	Logger     *zap.SugaredLogger
	Metrics    *Metrics
	Now        func() time.Time
}

// Driver runs one ingest: open the store, read the version, append it,
// close the store.
type Driver struct {
	classifier *Classifier
	reader     *Reader
	open       Opener
	streaming  bool
	syncWrites bool
	logger     *zap.SugaredLogger
	metrics    *Metrics
	now        func() time.Time
}

func NewDriver(opts Options) *Driver {
	d := &Driver{
		classifier: opts.Classifier,
		open:       opts.Open,
		streaming:  opts.Streaming,
		syncWrites: opts.SyncWrites,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		now:        opts.Now,
	}
	if d.open == nil {
		d.open = OpenQuadstore
	}
	if d.logger == nil {
		d.logger = zap.NewNop().Sugar()
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.reader = NewReader(d.logger.Named("reader"), d.metrics)
	return d
}

// Ingest appends the change files in baseDir to the store at storePath as
// version. The store handle is closed exactly once on every path. Nothing is
// retried: any failure is returned as one of DirectoryAccessError,
// IngestParseError, StoreOpenError or StoreAppendError.
func (d *Driver) Ingest(ctx context.Context, storePath string, version uint64, baseDir string) (rep *Report, err error) {
	log := d.logger.With(
		logger.FieldRunID, uuid.NewString(),
		logger.FieldVersion, version,
		logger.FieldStorePath, storePath)
	defer func() {
		if err != nil {
			d.metrics.failed(err)
			log.Debugw("Ingest failed", logger.FieldError, err)
		}
	}()

	store, err := d.open(ctx, quadstore.OpenOptions{Path: storePath, SyncWrites: d.syncWrites})
	if err != nil {
		return nil, errors.WithHint(&StoreOpenError{StorePath: storePath, Err: err},
			"check that no other process holds the store and that the path is a store directory")
	}
	closed := false
	release := func() {
		if closed {
			return
		}
		closed = true
		if cerr := store.Close(); cerr != nil {
			log.Warnw("Closing store failed", logger.FieldError, cerr)
		}
	}
	defer release()

	start := d.now()

	cls, err := d.classifier.Classify(baseDir)
	if err != nil {
		return nil, err
	}
	log.Infow("Classified change files",
		logger.FieldDir, baseDir,
		"deletion_files", len(cls.Deletions),
		"addition_files", len(cls.Additions))

	var delta iter.Seq2[quadstore.Change, error]
	if d.streaming {
		delta = d.reader.Stream(ctx, cls)
	} else {
		changes, err := d.reader.ReadVersion(ctx, cls)
		if err != nil {
			return nil, err
		}
		delta = sliceDelta(changes)
	}

	var added, deleted int
	inserted, err := store.Append(ctx, version, countChanges(delta, &added, &deleted))
	if err != nil {
		return nil, d.appendError(storePath, version, err)
	}

	elapsed := d.now().Sub(start)
	release()

	rep = &Report{
		Version:  version,
		Inserted: inserted,
		Added:    added,
		Deleted:  deleted,
		Elapsed:  elapsed,
	}
	d.metrics.ingested(rep)
	log.Infow("Ingested version",
		logger.FieldCount, inserted,
		"added", added,
		"deleted", deleted,
		logger.FieldDurationMS, rep.ElapsedMillis())
	return rep, nil
}

// appendError keeps errors raised while reading the delta as they are and
// attributes everything else to the store.
func (d *Driver) appendError(storePath string, version uint64, err error) error {
	var (
		parseErr *IngestParseError
		dirErr   *DirectoryAccessError
	)
	if errors.As(err, &parseErr) || errors.As(err, &dirErr) ||
		errors.IsAny(err, context.Canceled, context.DeadlineExceeded) {
		return err
	}
	var appendErr error = &StoreAppendError{StorePath: storePath, Version: version, Err: err}
	if errors.IsAny(err, quadstore.ErrVersionExists, quadstore.ErrVersionOutOfSequence) {
		appendErr = errors.WithHint(appendErr, "versions must be appended once each in increasing order")
	}
	return appendErr
}

// countChanges passes delta through, counting entries by polarity.
func countChanges(delta iter.Seq2[quadstore.Change, error], added, deleted *int) iter.Seq2[quadstore.Change, error] {
	return func(yield func(quadstore.Change, error) bool) {
		*added, *deleted = 0, 0
		for c, err := range delta {
			if err == nil {
				if c.Type == quadstore.Deletion {
					*deleted++
				} else {
					*added++
				}
			}
			if !yield(c, err) {
				return
			}
		}
	}
}
