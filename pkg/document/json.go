package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseJSON decodes a JSON document, keeping object key order. Whitespace-only
// input decodes to a null scalar.
func ParseJSON(data []byte, file string) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewNull().WithLocation(Location{File: file}), nil
	}
	if !gjson.ValidBytes(data) {
		var v any
		err := json.Unmarshal(data, &v)
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			line, col := lineCol(data, int(syn.Offset))
			return nil, newParseError(file, data, line, col, err, "invalid JSON: %v", err)
		}
		return nil, newParseError(file, data, 0, 0, err, "invalid JSON")
	}
	d := &jsonDecoder{file: file, src: data}
	return d.decode(gjson.ParseBytes(data))
}

type jsonDecoder struct {
	file string
	src  []byte
}

func (d *jsonDecoder) loc(r gjson.Result) Location {
	if r.Index <= 0 {
		return Location{File: d.file}
	}
	line, col := lineCol(d.src, r.Index)
	return Location{File: d.file, Line: line, Column: col}
}

func (d *jsonDecoder) decode(r gjson.Result) (*Node, error) {
	loc := d.loc(r)
	switch {
	case r.IsObject():
		b := NewMappingBuilder(0)
		b.SetLocation(loc)
		var err error
		r.ForEach(func(key, value gjson.Result) bool {
			k := key.String()
			if b.Has(k) {
				l := d.loc(key)
				err = newParseError(d.file, d.src, l.Line, l.Column, nil, "duplicate key %q", k)
				return false
			}
			var v *Node
			if v, err = d.decode(value); err != nil {
				return false
			}
			b.Set(k, v)
			return true
		})
		if err != nil {
			return nil, err
		}
		return b.Build(), nil
	case r.IsArray():
		var (
			items []*Node
			err   error
		)
		r.ForEach(func(_, value gjson.Result) bool {
			var v *Node
			if v, err = d.decode(value); err != nil {
				return false
			}
			items = append(items, v)
			return true
		})
		if err != nil {
			return nil, err
		}
		return NewSequence(items...).WithLocation(loc), nil
	}

	switch r.Type {
	case gjson.String:
		return NewString(r.Str).WithLocation(loc), nil
	case gjson.True:
		return NewBool(true).WithLocation(loc), nil
	case gjson.False:
		return NewBool(false).WithLocation(loc), nil
	case gjson.Number:
		raw := strings.TrimSpace(r.Raw)
		if !strings.ContainsAny(raw, ".eE") {
			if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return NewInt(i).WithLocation(loc), nil
			}
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, newParseError(d.file, d.src, loc.Line, loc.Column, err, "invalid number %q", raw)
		}
		return NewFloat(f).WithLocation(loc), nil
	default:
		return NewNull().WithLocation(loc), nil
	}
}

// MarshalJSON renders n as compact JSON in document key order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJSON renders n as JSON indented with two spaces and terminated by a
// newline.
func EncodeJSON(n *Node) ([]byte, error) {
	var compact bytes.Buffer
	if err := writeJSON(&compact, n); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent json: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, n *Node) error {
	switch n.kind {
	case MappingKind:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			if err := writeJSON(buf, n.values[i]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case SequenceKind:
		buf.WriteByte('[')
		for i, v := range n.values {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, v); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}

	switch n.typ {
	case StringType:
		writeJSONString(buf, n.str)
	case IntType:
		buf.WriteString(strconv.FormatInt(n.i, 10))
	case FloatType:
		if math.IsInf(n.f, 0) || math.IsNaN(n.f) {
			return fmt.Errorf("json: unsupported float value %s at %s", formatFloat(n.f), n.loc)
		}
		buf.WriteString(formatFloat(n.f))
	case BoolType:
		buf.WriteString(strconv.FormatBool(n.b))
	default:
		buf.WriteString("null")
	}
	return nil
}

// writeJSONString quotes s without the HTML escaping encoding/json applies by
// default.
func writeJSONString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode always terminates with a newline.
	buf.Truncate(buf.Len() - 1)
}
