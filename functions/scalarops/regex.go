package scalarops

import (
	"regexp"
	"strings"

	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions"
)

// maxRegexPatternBytes is the fixed size limit beyond which a pattern is
// rejected as Expected rather than compiled.
const maxRegexPatternBytes = 1 << 20

// compileSparqlRegex translates a SPARQL REGEX pattern plus its `s m i x
// q` flag string into a compiled Go regexp. Unknown flags and oversize
// patterns are reported via the bool return rather than panicking.
func compileSparqlRegex(pattern, flags string) (*regexp.Regexp, bool) {
	if len(pattern) > maxRegexPatternBytes {
		return nil, false
	}
	if strings.ContainsRune(flags, 'q') {
		pattern = regexp.QuoteMeta(pattern)
	}
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 's':
			inline.WriteByte('s')
		case 'm':
			inline.WriteByte('m')
		case 'i':
			inline.WriteByte('i')
		case 'x':
			pattern = stripFreeSpacing(pattern)
		case 'q':
			// handled above
		default:
			return nil, false
		}
	}
	if inline.Len() > 0 {
		pattern = "(?" + inline.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	return re, true
}

// stripFreeSpacing implements a best-effort `x` (free-spacing) mode:
// unescaped whitespace and `#`-to-end-of-line comments are removed
// before compilation, since Go's RE2 has no native free-spacing flag.
func stripFreeSpacing(pattern string) string {
	var b strings.Builder
	inComment := false
	escaped := false
	for _, r := range pattern {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
			}
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			b.WriteRune(r)
			escaped = true
		case r == '#':
			inComment = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Regex is the `REGEX` built-in. Ternary form (text, pattern, flags);
// the binary form (no flags) is registered as its own dispatch key.
type Regex struct {
	functions.BaseOp
	withFlags bool
}

func (r Regex) Key() functions.DispatchKey {
	arity := functions.Binary
	if r.withFlags {
		arity = functions.Ternary
	}
	return functions.DispatchKey{Name: "REGEX", Arity: arity, Encoding: encoding.EncodingTypedValue}
}

func (r Regex) Evaluate(args []any) (any, error) {
	textV, ok := args[0].(encoding.Value)
	if !ok {
		return nil, functions.ErrExpected("REGEX text is not a typed value")
	}
	text, ok := asString(textV)
	if !ok {
		return nil, functions.ErrExpected("REGEX text is not a string")
	}
	patternV, ok := args[1].(encoding.Value)
	if !ok {
		return nil, functions.ErrExpected("REGEX pattern is not a typed value")
	}
	pattern, ok := asString(patternV)
	if !ok {
		return nil, functions.ErrExpected("REGEX pattern is not a string")
	}
	flags := ""
	if r.withFlags {
		flagsV, ok := args[2].(encoding.Value)
		if !ok {
			return nil, functions.ErrExpected("REGEX flags is not a typed value")
		}
		flags, ok = asString(flagsV)
		if !ok {
			return nil, functions.ErrExpected("REGEX flags is not a string")
		}
	}
	re, ok := compileSparqlRegex(pattern, flags)
	if !ok {
		return nil, functions.ErrExpected("invalid REGEX pattern or flags")
	}
	return encoding.BooleanValue(re.MatchString(text)), nil
}

var RegexBinary = Regex{withFlags: false}
var RegexTernary = Regex{withFlags: true}

// Replace is the `REPLACE` built-in: n-ary (text, pattern, replacement
// [, flags]). When only three arguments are given, the flags default to
// the empty string.
type Replace struct{ functions.BaseOp }

func (Replace) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: "REPLACE", Arity: functions.NAry, Encoding: encoding.EncodingTypedValue}
}

func (Replace) Evaluate(args []any) (any, error) {
	if len(args) < 3 {
		return nil, functions.ErrExpected("REPLACE requires at least 3 arguments")
	}
	text, ok := valueAsString(args[0])
	if !ok {
		return nil, functions.ErrExpected("REPLACE text is not a string")
	}
	pattern, ok := valueAsString(args[1])
	if !ok {
		return nil, functions.ErrExpected("REPLACE pattern is not a string")
	}
	replacement, ok := valueAsString(args[2])
	if !ok {
		return nil, functions.ErrExpected("REPLACE replacement is not a string")
	}
	flags := ""
	if len(args) > 3 {
		flags, ok = valueAsString(args[3])
		if !ok {
			return nil, functions.ErrExpected("REPLACE flags is not a string")
		}
	}
	re, ok := compileSparqlRegex(pattern, flags)
	if !ok {
		return nil, functions.ErrExpected("invalid REPLACE pattern or flags")
	}
	goReplacement := translateBackreferences(replacement)
	return encoding.StringValue{Value: re.ReplaceAllString(text, goReplacement)}, nil
}

func valueAsString(a any) (string, bool) {
	v, ok := a.(encoding.Value)
	if !ok {
		return "", false
	}
	return asString(v)
}

// translateBackreferences rewrites SPARQL/XPath `$1` backreferences into
// Go regexp's `${1}` replacement syntax.
func translateBackreferences(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '$' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			b.WriteString("${" + s[i+1:j] + "}")
			i = j - 1
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
