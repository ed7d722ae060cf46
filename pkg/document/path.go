package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: a mapping key or a sequence index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// String renders the segment on its own.
func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// Value returns the segment as a key string or an index int, for JSON output.
func (s Segment) Value() any {
	if s.IsIndex {
		return s.Index
	}
	return s.Key
}

// Path addresses a node from the document root. The empty path is the root.
type Path []Segment

// Key returns a new path extended with a mapping key.
func (p Path) Key(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Key: key})
}

// Index returns a new path extended with a sequence index.
func (p Path) Index(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Index: i, IsIndex: true})
}

// Values returns the segments as keys and indices, root first.
func (p Path) Values() []any {
	out := make([]any, len(p))
	for i, s := range p {
		out[i] = s.Value()
	}
	return out
}

// Equal reports whether two paths address the same node.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// String renders the path as "a.b[0].c". Keys that would not survive
// ParsePath are quoted: a["x.y"]. The root renders as "(root)".
func (p Path) String() string {
	if len(p) == 0 {
		return "(root)"
	}
	var sb strings.Builder
	for i, s := range p {
		switch {
		case s.IsIndex:
			sb.WriteString(s.String())
		case needsQuoting(s.Key):
			sb.WriteString("[")
			sb.WriteString(strconv.Quote(s.Key))
			sb.WriteString("]")
		default:
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(s.Key)
		}
	}
	return sb.String()
}

func needsQuoting(key string) bool {
	return key == "" || strings.ContainsAny(key, `.[]"`)
}

// ParsePath parses the dotted form produced by Path.String. Plain numeric
// keys ("items.0") stay keys; Lookup treats them as indices on sequences.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}
	var (
		path   Path
		i      int
		expect = true // a key segment may start here
	)
	for i < len(s) {
		switch c := s[i]; {
		case c == '[':
			end := strings.IndexByte(s[i:], ']')
			if i+1 < len(s) && s[i+1] == '"' {
				q, rest, err := readQuoted(s[i+1:])
				if err != nil {
					return nil, fmt.Errorf("path %q: %w", s, err)
				}
				if !strings.HasPrefix(rest, "]") {
					return nil, fmt.Errorf("path %q: missing ']' after quoted key", s)
				}
				path = append(path, Segment{Key: q})
				i = len(s) - len(rest) + 1
				expect = false
				continue
			}
			if end < 0 {
				return nil, fmt.Errorf("path %q: missing ']'", s)
			}
			idx, err := strconv.Atoi(s[i+1 : i+end])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("path %q: invalid index %q", s, s[i+1:i+end])
			}
			path = append(path, Segment{Index: idx, IsIndex: true})
			i += end + 1
			expect = false
		case c == '.':
			if expect {
				return nil, fmt.Errorf("path %q: empty segment at offset %d", s, i)
			}
			i++
			expect = true
			if i == len(s) {
				return nil, fmt.Errorf("path %q: trailing '.'", s)
			}
		default:
			if !expect {
				return nil, fmt.Errorf("path %q: unexpected %q at offset %d", s, c, i)
			}
			end := i
			for end < len(s) && s[end] != '.' && s[end] != '[' {
				end++
			}
			path = append(path, Segment{Key: s[i:end]})
			i = end
			expect = false
		}
	}
	return path, nil
}

// readQuoted reads a Go-quoted string at the start of s and returns it with
// the remainder of s.
func readQuoted(s string) (string, string, error) {
	for j := 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			v, err := strconv.Unquote(s[:j+1])
			if err != nil {
				return "", "", err
			}
			return v, s[j+1:], nil
		}
	}
	return "", "", fmt.Errorf("unterminated quoted key")
}
