// Package extract pulls scalar values out of decoded JSON documents using a
// small field/index path language (`icd10.code`, `items[0].name`). The
// grammar intentionally has no wildcard, slice, or recursive-descent forms:
// a parsed path addresses at most one value, so multi-match semantics never
// arise and every failure mode is a structural miss.
package extract

import (
	"fmt"
	"strings"
	"unicode"
)

// Path is a parsed extraction path: a sequence of field-access and
// array-index segments.
type Path struct {
	raw  string
	segs []segment
}

type segment struct {
	field   string
	index   int
	isIndex bool
}

// String returns the original path expression.
func (p Path) String() string { return p.raw }

// Parse compiles a path expression. A leading "$." or "$" is accepted for
// compatibility with JSONPath-style configs and ignored.
func Parse(expr string) (Path, error) {
	raw := expr
	expr = strings.TrimPrefix(expr, "$")
	expr = strings.TrimPrefix(expr, ".")
	if expr == "" {
		return Path{}, fmt.Errorf("empty path expression %q", raw)
	}

	var segs []segment
	i := 0
	for i < len(expr) {
		switch {
		case expr[i] == '.':
			if i == 0 || i == len(expr)-1 {
				return Path{}, fmt.Errorf("path %q: misplaced '.'", raw)
			}
			i++
		case expr[i] == '[':
			end := strings.IndexByte(expr[i:], ']')
			if end < 0 {
				return Path{}, fmt.Errorf("path %q: unclosed index", raw)
			}
			idxStr := expr[i+1 : i+end]
			idx := 0
			if idxStr == "" {
				return Path{}, fmt.Errorf("path %q: empty index", raw)
			}
			if strings.ContainsAny(idxStr, "*:") {
				return Path{}, fmt.Errorf("path %q: index %q: wildcards and slices are not supported", raw, idxStr)
			}
			for _, r := range idxStr {
				if !unicode.IsDigit(r) {
					return Path{}, fmt.Errorf("path %q: index %q is not a non-negative integer", raw, idxStr)
				}
				idx = idx*10 + int(r-'0')
			}
			segs = append(segs, segment{index: idx, isIndex: true})
			i += end + 1
		default:
			start := i
			for i < len(expr) && isFieldRune(rune(expr[i])) {
				i++
			}
			if i == start {
				return Path{}, fmt.Errorf("path %q: unexpected character %q (wildcards and slices are not supported)", raw, expr[i])
			}
			segs = append(segs, segment{field: expr[start:i]})
		}
	}
	if len(segs) == 0 {
		return Path{}, fmt.Errorf("empty path expression %q", raw)
	}
	return Path{raw: raw, segs: segs}, nil
}

func isFieldRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

// Eval walks doc along the path. Traversal is purely structural: a missing
// field, an out-of-range index, or a type mismatch all return found=false.
func (p Path) Eval(doc any) (any, bool) {
	cur := doc
	for _, s := range p.segs {
		if s.isIndex {
			arr, ok := cur.([]any)
			if !ok || s.index >= len(arr) {
				return nil, false
			}
			cur = arr[s.index]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[s.field]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
