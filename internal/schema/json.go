// Package schema validates the JSON body of {% schema %} regions and
// cross-checks the settings a template reads against what it declares.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"liquidlint/internal/source"
)

type NodeKind uint8

const (
	Null NodeKind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k NodeKind) String() string {
	switch k {
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "null"
}

// Node is one JSON value with the file span it was read from.
type Node struct {
	Kind   NodeKind
	Span   source.Span
	Str    string
	Num    json.Number
	Bool   bool
	Fields []Field
	Items  []*Node
}

// Field is one member of an object, in source order.
type Field struct {
	Key     string
	KeySpan source.Span
	Value   *Node
}

// Get returns the first member named key, or nil.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != Object {
		return nil
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Has reports whether the object carries key.
func (n *Node) Has(key string) bool { return n.Get(key) != nil }

// Text returns the string value of member key.
func (n *Node) Text(key string) (string, bool) {
	v := n.Get(key)
	if v == nil || v.Kind != String {
		return "", false
	}
	return v.Str, true
}

// SyntaxError is a JSON decoding failure at an absolute file offset.
type SyntaxError struct {
	Offset uint32
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

// Parse decodes body, which starts at the beginning of at, into a tree
// whose spans point into the enclosing file. Comments, trailing commas and
// data after the root value are rejected.
func Parse(body []byte, at source.Span) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	p := &parser{dec: dec, body: body, at: at}
	root, err := p.value()
	if err != nil {
		return nil, err
	}
	rest := p.skip(dec.InputOffset())
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &SyntaxError{Offset: p.abs(rest), Msg: "unexpected data after the schema object"}
	}
	return root, nil
}

type parser struct {
	dec  *json.Decoder
	body []byte
	at   source.Span
}

func (p *parser) abs(off int64) uint32 {
	return p.at.Start + source.Off(int(off))
}

func (p *parser) span(start, end int64) source.Span {
	return source.Span{File: p.at.File, Start: p.abs(start), End: p.abs(end)}
}

// skip returns the offset of the next token at or after off.
// Разделители ',' и ':' декодер не отдаёт как токены.
func (p *parser) skip(off int64) int64 {
	for off < int64(len(p.body)) {
		switch p.body[off] {
		case ' ', '\t', '\r', '\n', ',', ':':
			off++
		default:
			return off
		}
	}
	return off
}

func (p *parser) fail(err error) error {
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return &SyntaxError{Offset: p.abs(se.Offset), Msg: se.Error()}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &SyntaxError{Offset: p.abs(int64(len(p.body))), Msg: "unexpected end of schema JSON"}
	}
	return &SyntaxError{Offset: p.abs(p.dec.InputOffset()), Msg: err.Error()}
}

func (p *parser) value() (*Node, error) {
	start := p.skip(p.dec.InputOffset())
	tok, err := p.dec.Token()
	if err != nil {
		return nil, p.fail(err)
	}
	switch t := tok.(type) {
	case json.Delim:
		if t == '{' {
			return p.object(start)
		}
		if t == '[' {
			return p.array(start)
		}
		return nil, &SyntaxError{Offset: p.abs(start), Msg: fmt.Sprintf("unexpected '%s'", t)}
	case string:
		return &Node{Kind: String, Str: t, Span: p.span(start, p.dec.InputOffset())}, nil
	case json.Number:
		return &Node{Kind: Number, Num: t, Span: p.span(start, p.dec.InputOffset())}, nil
	case bool:
		return &Node{Kind: Bool, Bool: t, Span: p.span(start, p.dec.InputOffset())}, nil
	case nil:
		return &Node{Kind: Null, Span: p.span(start, p.dec.InputOffset())}, nil
	}
	return nil, &SyntaxError{Offset: p.abs(start), Msg: fmt.Sprintf("unexpected token %v", tok)}
}

func (p *parser) object(start int64) (*Node, error) {
	n := &Node{Kind: Object}
	for p.dec.More() {
		kstart := p.skip(p.dec.InputOffset())
		ktok, err := p.dec.Token()
		if err != nil {
			return nil, p.fail(err)
		}
		key, ok := ktok.(string)
		if !ok {
			return nil, &SyntaxError{Offset: p.abs(kstart), Msg: "object key must be a string"}
		}
		kspan := p.span(kstart, p.dec.InputOffset())
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		n.Fields = append(n.Fields, Field{Key: key, KeySpan: kspan, Value: val})
	}
	if _, err := p.dec.Token(); err != nil {
		return nil, p.fail(err)
	}
	n.Span = p.span(start, p.dec.InputOffset())
	return n, nil
}

func (p *parser) array(start int64) (*Node, error) {
	n := &Node{Kind: Array}
	for p.dec.More() {
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		n.Items = append(n.Items, val)
	}
	if _, err := p.dec.Token(); err != nil {
		return nil, p.fail(err)
	}
	n.Span = p.span(start, p.dec.InputOffset())
	return n, nil
}
