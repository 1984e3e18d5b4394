// Package quadstore defines the public, embeddable API for a delta-oriented
// versioned quad store. Each version is an ordered list of additions and
// deletions; nothing here materializes snapshots.
package quadstore

import (
	"fmt"
	"strings"
	"time"
)

// Quad represents a single, atomic RDF statement. Terms are kept in their
// N-Triples serialization and are opaque to the store. Graph is empty for
// statements in the default graph.
type Quad struct {
	Subject   string `json:"subject" msgpack:"s"`
	Predicate string `json:"predicate" msgpack:"p"`
	Object    string `json:"object" msgpack:"o"`
	Graph     string `json:"graph,omitempty" msgpack:"g,omitempty"`
}

// String renders the quad as an N-Quads statement.
func (q Quad) String() string {
	var b strings.Builder
	b.WriteString(q.Subject)
	b.WriteByte(' ')
	b.WriteString(q.Predicate)
	b.WriteByte(' ')
	b.WriteString(q.Object)
	if q.Graph != "" {
		b.WriteByte(' ')
		b.WriteString(q.Graph)
	}
	b.WriteString(" .")
	return b.String()
}

// ChangeType defines whether a change is an addition or deletion.
// The zero value is invalid so an unset polarity never passes for a real one.
type ChangeType uint8

const (
	Addition ChangeType = iota + 1
	Deletion
)

func (t ChangeType) String() string {
	switch t {
	case Addition:
		return "addition"
	case Deletion:
		return "deletion"
	default:
		return fmt.Sprintf("ChangeType(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the two known polarities.
func (t ChangeType) Valid() bool {
	return t == Addition || t == Deletion
}

// Symbol returns the diff-style marker for the change type.
func (t ChangeType) Symbol() string {
	if t == Deletion {
		return "-"
	}
	return "+"
}

func (t ChangeType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid change type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *ChangeType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "addition":
		*t = Addition
	case "deletion":
		*t = Deletion
	default:
		return fmt.Errorf("unknown change type %q", text)
	}
	return nil
}

// Change represents a single quad addition or deletion within a version.
type Change struct {
	Quad Quad       `json:"quad" msgpack:"q"`
	Type ChangeType `json:"type" msgpack:"t"`
}

// VersionStats holds counts computed while a version was appended, so history
// can be listed without rescanning the entries.
type VersionStats struct {
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}

// Total is the number of entries stored for the version.
func (s VersionStats) Total() int {
	return s.Added + s.Deleted
}

// VersionInfo describes a committed version. It is written once, after all
// of the version's entries, and its presence is what makes the version visible.
type VersionInfo struct {
	Version   uint64       `json:"version"`
	Digest    string       `json:"digest"` // SHA-1 over the encoded entries, in order
	Timestamp time.Time    `json:"timestamp"`
	Stats     VersionStats `json:"stats"`
}
