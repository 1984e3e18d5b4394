package ingest

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// Report is the outcome of a successful ingest.
type Report struct {
	Version  uint64
	Inserted int // as reported by the store
	Added    int // parsed from addition files
	Deleted  int // parsed from deletion files
	Elapsed  time.Duration
}

// ElapsedMillis is the elapsed time in fractional milliseconds.
func (r *Report) ElapsedMillis() float64 {
	return float64(r.Elapsed) / float64(time.Millisecond)
}

// ResultLine is the machine-readable result, "<inserted>,<millis>". Millis
// is rounded to a whole number so consumers can parse it as an integer.
func (r *Report) ResultLine() string {
	millis := int64(math.Round(r.ElapsedMillis()))
	return strconv.Itoa(r.Inserted) + "," + strconv.FormatInt(millis, 10)
}

// Write emits the human-readable lines on diag and the result line on out.
func (r *Report) Write(diag, out io.Writer) error {
	if _, err := fmt.Fprintf(diag, "Inserted: %d\nDuration: %.3fms\n", r.Inserted, r.ElapsedMillis()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, r.ResultLine())
	return err
}
