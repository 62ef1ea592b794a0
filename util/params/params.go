// Package params reads and writes resource recipes: comma separated
// key=value pairs such as "path=media/font.ttf,size=11".
//
// The characters '\\', '=', ',' and ';' are escaped with a backslash
// when they appear inside a key or a value. A ';' ends the set, anything
// after it is ignored. Whitespace is allowed in front of a key only.
package params

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Limits on the unescaped length of a single key or value.
const (
	MaxKeyLength   = 127
	MaxValueLength = 4095
)

// package errors
var (
	ErrSyntax  = errors.New("malformed param set")
	ErrTooLong = errors.New("param key or value too long")
	ErrMissing = errors.New("mandatory param missing")
)

// Pair is one key=value entry of a recipe.
type Pair struct {
	Key   string
	Value string
}

// Validity classifies a string that may or may not be a param set.
type Validity int

// Possible results of Validate
const (
	Invalid Validity = iota
	Empty
	Valid
)

func (v Validity) String() string {
	switch v {
	case Empty:
		return "empty"
	case Valid:
		return "valid"
	default:
		return "invalid"
	}
}

func needsEscaping(c byte) bool {
	return c == '\\' || c == '=' || c == ',' || c == ';'
}

// Escape returns s with every special character prefixed by a backslash.
func Escape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if needsEscaping(s[i]) {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// Build joins alternating keys and values into a recipe, preserving
// the order in which they were given.
func Build(pairs ...string) (string, error) {
	if len(pairs)%2 != 0 {
		return "", fmt.Errorf("params: odd number of arguments (%d): %w", len(pairs), ErrSyntax)
	}
	var sb strings.Builder
	for i := 0; i < len(pairs); i += 2 {
		key, value := pairs[i], pairs[i+1]
		if key == "" {
			return "", fmt.Errorf("params: empty key at position %d: %w", i/2, ErrSyntax)
		}
		if len(key) > MaxKeyLength || len(value) > MaxValueLength {
			return "", fmt.Errorf("params: pair %q: %w", key, ErrTooLong)
		}
		if i != 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(Escape(key))
		sb.WriteByte('=')
		sb.WriteString(Escape(value))
	}
	return sb.String(), nil
}

// MustBuild is like Build but panics on error. Intended for
// recipes assembled from constants.
func MustBuild(pairs ...string) string {
	s, err := Build(pairs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Path builds the recipe that identifies a resource by its path alone.
func Path(p string) string {
	return "path=" + Escape(p)
}

// Parse splits a recipe into its pairs in order of appearance.
// An empty recipe yields no pairs and no error.
func Parse(s string) ([]Pair, error) {
	var (
		pairs []Pair
		sc    = scanner{src: s}
	)
	for {
		p, ok, err := sc.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return pairs, nil
		}
		pairs = append(pairs, p)
	}
}

// Get returns the value of the first pair whose key equals key.
// Scanning stops silently at the first malformed pair.
func Get(s, key string) (string, bool) {
	sc := scanner{src: s}
	for {
		p, ok, err := sc.next()
		if err != nil || !ok {
			return "", false
		}
		if p.Key == key {
			return p.Value, true
		}
	}
}

// Require is like Get but reports an absent key as ErrMissing.
func Require(s, key string) (string, error) {
	if v, ok := Get(s, key); ok {
		return v, nil
	}
	return "", fmt.Errorf("params: %q in %q: %w", key, s, ErrMissing)
}

// Validate tells whether s is a well formed, non-empty param set.
func Validate(s string) Validity {
	var (
		sc       = scanner{src: s}
		validity = Empty
	)
	for {
		_, ok, err := sc.next()
		if err != nil {
			return Invalid
		}
		if !ok {
			return validity
		}
		validity = Valid
	}
}

// Normalize rewrites s with its pairs sorted by key. Pairs with equal
// keys keep their relative order.
func Normalize(s string) (string, error) {
	pairs, err := Parse(s)
	if err != nil {
		return "", err
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Key < pairs[j].Key
	})
	flat := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		flat = append(flat, p.Key, p.Value)
	}
	return Build(flat...)
}

type scanner struct {
	src string
	pos int
}

func (sc *scanner) next() (Pair, bool, error) {
	for sc.pos < len(sc.src) && isSpace(sc.src[sc.pos]) {
		sc.pos++
	}
	if sc.pos >= len(sc.src) || sc.src[sc.pos] == ';' {
		return Pair{}, false, nil
	}

	key, err := sc.unescape('=', MaxKeyLength)
	if err != nil {
		return Pair{}, false, err
	}
	if key == "" || sc.pos >= len(sc.src) || sc.src[sc.pos] != '=' {
		return Pair{}, false, fmt.Errorf("params: offset %d in %q: %w", sc.pos, sc.src, ErrSyntax)
	}
	sc.pos++

	value, err := sc.unescape(',', MaxValueLength)
	if err != nil {
		return Pair{}, false, err
	}
	if sc.pos < len(sc.src) && sc.src[sc.pos] == ',' {
		sc.pos++
	}
	return Pair{Key: key, Value: value}, true, nil
}

// unescape consumes input up to delim, ';' or the end of input.
func (sc *scanner) unescape(delim byte, limit int) (string, error) {
	var sb strings.Builder
	for sc.pos < len(sc.src) {
		c := sc.src[sc.pos]
		if c == delim || c == ';' {
			break
		}
		if sb.Len() >= limit {
			return "", fmt.Errorf("params: offset %d in %q: %w", sc.pos, sc.src, ErrTooLong)
		}
		if c == '\\' && sc.pos+1 < len(sc.src) {
			sc.pos++
			c = sc.src[sc.pos]
		}
		sb.WriteByte(c)
		sc.pos++
	}
	return sb.String(), nil
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
