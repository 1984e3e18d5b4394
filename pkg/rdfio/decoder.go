// Package rdfio adapts streaming RDF parsers to quadstore quads.
package rdfio

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/knakk/rdf"

	"github.com/mannyrivera2010/go-quadingest/pkg/quadstore"
)

// Format is a textual RDF serialization.
type Format int

const (
	NTriples Format = iota
	NQuads
	Turtle
)

func (f Format) String() string {
	switch f {
	case NQuads:
		return "n-quads"
	case Turtle:
		return "turtle"
	default:
		return "n-triples"
	}
}

// FormatForFile picks the serialization from the file extension.
// Anything not recognized is read as N-Triples.
func FormatForFile(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".nq":
		return NQuads
	case ".ttl":
		return Turtle
	default:
		return NTriples
	}
}

// Decoder pulls quads from a stream one at a time. Decode returns io.EOF
// once the stream is exhausted; any other error is terminal.
type Decoder interface {
	Decode() (quadstore.Quad, error)
}

type decoder struct {
	next func() (quadstore.Quad, error)
	err  error
}

// NewDecoder returns a fresh decoder over r. Decoders share no state, so one
// stream's prefixes or blank nodes never leak into another's.
func NewDecoder(r io.Reader, format Format) Decoder {
	switch format {
	case NQuads:
		dec := rdf.NewQuadDecoder(r, rdf.NQuads)
		return &decoder{next: func() (quadstore.Quad, error) {
			q, err := dec.Decode()
			if err != nil {
				return quadstore.Quad{}, err
			}
			quad := fromTriple(q.Triple)
			if q.Ctx != nil {
				quad.Graph = q.Ctx.Serialize(rdf.NTriples)
			}
			return quad, nil
		}}
	case Turtle:
		return newTripleDecoder(rdf.NewTripleDecoder(r, rdf.Turtle))
	default:
		return newTripleDecoder(rdf.NewTripleDecoder(r, rdf.NTriples))
	}
}

func newTripleDecoder(dec rdf.TripleDecoder) *decoder {
	return &decoder{next: func() (quadstore.Quad, error) {
		t, err := dec.Decode()
		if err != nil {
			return quadstore.Quad{}, err
		}
		return fromTriple(t), nil
	}}
}

func (d *decoder) Decode() (quadstore.Quad, error) {
	if d.err != nil {
		return quadstore.Quad{}, d.err
	}
	q, err := d.next()
	if err != nil {
		d.err = err
		return quadstore.Quad{}, err
	}
	return q, nil
}

func fromTriple(t rdf.Triple) quadstore.Quad {
	return quadstore.Quad{
		Subject:   t.Subj.Serialize(rdf.NTriples),
		Predicate: t.Pred.Serialize(rdf.NTriples),
		Object:    t.Obj.Serialize(rdf.NTriples),
	}
}
