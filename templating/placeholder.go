package templating

import "strings"

// Variant selects how a placeholder behaves when its
// variable is undefined or empty.
type Variant int

const (
	// Plain is ${NAME}: undefined is an error, the value
	// is substituted verbatim.
	Plain Variant = iota

	// Dotted is ${NAME.}: value followed by "." or
	// nothing.
	Dotted

	// Dashed is ${NAME-}: value followed by "-" or
	// nothing.
	Dashed
)

// String returns the variant name.
func (va Variant) String() string {
	switch va {
	case Plain:
		return "plain"
	case Dotted:
		return "dotted"
	case Dashed:
		return "dashed"
	default:
		return "unknown"
	}
}

func (va Variant) suffix() string {
	switch va {
	case Dotted:
		return "."
	case Dashed:
		return "-"
	default:
		return ""
	}
}

// Placeholder is one parsed reference. Start and End are
// the byte offsets of the full placeholder, delimiters
// and suffix included, so tpl[Start:End] is its source.
type Placeholder struct {
	Name    string
	Variant Variant
	Start   int
	End     int
}

// next finds the first well-formed placeholder starting
// at or after from.
//
// The body of a candidate is bounded by the nearest end
// tag. When the body is not a valid identifier with an
// optional suffix, only the first byte of the start tag
// is consumed as literal text so that a placeholder
// nested in the malformed one is still found.
func (en *Engine) next(
	tpl string,
	from int,
) (Placeholder, bool) {
	startTag, endTag := en.tags()

	for from < len(tpl) {
		idx := strings.Index(tpl[from:], startTag)
		if idx < 0 {
			return Placeholder{}, false
		}

		start := from + idx
		body := start + len(startTag)

		end := strings.Index(tpl[body:], endTag)
		if end < 0 {
			// No later start tag can be closed either.
			return Placeholder{}, false
		}

		name, variant, ok := parseBody(tpl[body : body+end])
		if ok {
			return Placeholder{
				Name:    name,
				Variant: variant,
				Start:   start,
				End:     body + end + len(endTag),
			}, true
		}

		from = start + 1
	}

	return Placeholder{}, false
}

// parseBody splits the text between the tags into an
// identifier and a variant.
func parseBody(body string) (string, Variant, bool) {
	name := body
	variant := Plain

	if n := len(body); n > 0 {
		switch body[n-1] {
		case '.':
			name, variant = body[:n-1], Dotted
		case '-':
			name, variant = body[:n-1], Dashed
		}
	}

	if !isIdentifier(name) {
		return "", Plain, false
	}

	return name, variant, true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for idx := 0; idx < len(s); idx++ {
		if !isIdentByte(s[idx]) {
			return false
		}
	}

	return true
}

func isIdentByte(ch byte) bool {
	return ch == '_' ||
		('a' <= ch && ch <= 'z') ||
		('A' <= ch && ch <= 'Z') ||
		('0' <= ch && ch <= '9')
}
