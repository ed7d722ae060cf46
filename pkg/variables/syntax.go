package variables

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
)

// Syntax is the lexical form of a variable reference: Prefix, an optional
// NamePrefix, the identifier and Suffix. With the defaults a reference looks
// like "_{ $host }_".
type Syntax struct {
	Prefix     string
	Suffix     string
	NamePrefix string

	re *regexp.Regexp
}

// Reference is one variable reference found inside a string.
type Reference struct {
	// Raw is the full matched text including delimiters.
	Raw string
	// Name is the identifier with surrounding whitespace and the name
	// prefix removed.
	Name string
	// Start and End are byte offsets of Raw within the scanned string.
	Start, End int
}

// NewSyntax compiles the reference pattern for the given delimiters.
func NewSyntax(prefix, suffix, namePrefix string) (*Syntax, error) {
	if prefix == "" || suffix == "" {
		return nil, fmt.Errorf("variable prefix and suffix must not be empty")
	}
	pattern := regexp.QuoteMeta(prefix) + `(.+?)` + regexp.QuoteMeta(suffix)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile variable pattern: %w", err)
	}
	return &Syntax{Prefix: prefix, Suffix: suffix, NamePrefix: namePrefix, re: re}, nil
}

// SyntaxFor builds the syntax described by a percy config.
func SyntaxFor(pc config.PercyConfig) (*Syntax, error) {
	return NewSyntax(pc.VariablePrefix, pc.VariableSuffix, pc.VariableNamePrefix)
}

// Find returns every reference in s, left to right.
func (s *Syntax) Find(str string) []Reference {
	matches := s.re.FindAllStringSubmatchIndex(str, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, Reference{
			Raw:   str[m[0]:m[1]],
			Name:  s.name(str[m[2]:m[3]]),
			Start: m[0],
			End:   m[1],
		})
	}
	return refs
}

// Contains reports whether s holds at least one reference.
func (s *Syntax) Contains(str string) bool {
	return s.re.MatchString(str)
}

// IsVariableKey reports whether a top-level key defines a variable, that is
// whether it starts with the name prefix. Such keys are dropped from
// hydrated output.
func (s *Syntax) IsVariableKey(key string) bool {
	return s.NamePrefix != "" && strings.HasPrefix(key, s.NamePrefix)
}

func (s *Syntax) name(inner string) string {
	inner = strings.TrimSpace(inner)
	if s.NamePrefix != "" {
		inner = strings.TrimPrefix(inner, s.NamePrefix)
	}
	return strings.TrimSpace(inner)
}
