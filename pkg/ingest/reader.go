package ingest

import (
	"context"
	"io"
	"iter"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mannyrivera2010/go-quadingest/pkg/logger"
	"github.com/mannyrivera2010/go-quadingest/pkg/quadstore"
	"github.com/mannyrivera2010/go-quadingest/pkg/rdfio"
)

// DecoderFunc creates a decoder for one stream.
type DecoderFunc func(r io.Reader, format rdfio.Format) rdfio.Decoder

// Reader builds the delta of one version from classified change files.
type Reader struct {
	newDecoder DecoderFunc
	logger     *zap.SugaredLogger
	metrics    *Metrics
}

// NewReader returns a Reader using the rdfio decoders. logger and metrics may be nil.
func NewReader(log *zap.SugaredLogger, metrics *Metrics) *Reader {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Reader{newDecoder: rdfio.NewDecoder, logger: log, metrics: metrics}
}

// Stream returns the delta as a lazy sequence. Deletion files are read
// before addition files; files in classification order, statements in file
// order. Every file gets its own decoder. Ranging over the sequence again
// starts over from the first file.
//
// The sequence ends after yielding its first error, which is a
// *IngestParseError, a *DirectoryAccessError for an unreadable file, or the
// context's error.
func (r *Reader) Stream(ctx context.Context, cls *Classification) iter.Seq2[quadstore.Change, error] {
	return func(yield func(quadstore.Change, error) bool) {
		batches := []struct {
			files    []string
			polarity quadstore.ChangeType
		}{
			{cls.Deletions, quadstore.Deletion},
			{cls.Additions, quadstore.Addition},
		}
		for _, batch := range batches {
			for _, file := range batch.files {
				if err := ctx.Err(); err != nil {
					yield(quadstore.Change{}, err)
					return
				}
				if !r.streamFile(file, batch.polarity, yield) {
					return
				}
			}
		}
	}
}

// streamFile yields every statement of file tagged with polarity. It returns
// false when the sequence must stop.
func (r *Reader) streamFile(file string, polarity quadstore.ChangeType, yield func(quadstore.Change, error) bool) bool {
	f, err := os.Open(file)
	if err != nil {
		yield(quadstore.Change{}, &DirectoryAccessError{Path: file, Err: err})
		return false
	}
	defer f.Close()

	start := time.Now()
	format := rdfio.FormatForFile(file)
	dec := r.newDecoder(f, format)
	count := 0
	for {
		quad, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.logger.Debugw("Parse failed",
				logger.FieldFile, file,
				logger.FieldCount, count,
				logger.FieldError, err)
			yield(quadstore.Change{}, &IngestParseError{File: file, Err: err})
			return false
		}
		count++
		if !yield(quadstore.Change{Quad: quad, Type: polarity}, nil) {
			return false
		}
	}

	r.metrics.fileParsed(polarity, count)
	r.logger.Infow("Parsed file",
		logger.FieldFile, file,
		logger.FieldPolarity, polarity.String(),
		logger.FieldFormat, format.String(),
		logger.FieldCount, count,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return true
}

// ReadVersion builds the whole delta in memory. On error nothing is returned.
func (r *Reader) ReadVersion(ctx context.Context, cls *Classification) ([]quadstore.Change, error) {
	var changes []quadstore.Change
	for change, err := range r.Stream(ctx, cls) {
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// sliceDelta adapts a built delta to the sequence form the store consumes.
func sliceDelta(changes []quadstore.Change) iter.Seq2[quadstore.Change, error] {
	return func(yield func(quadstore.Change, error) bool) {
		for _, c := range changes {
			if !yield(c, nil) {
				return
			}
		}
	}
}
