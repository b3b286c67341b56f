package templating

import (
	"fmt"
	"slices"
	"strings"
)

const (
	defaultStartTag = "${"
	defaultEndTag   = "}"
)

// Engine substitutes placeholders delimited by StartTag
// and EndTag. The zero value uses "${" and "}" and fails
// on undefined plain placeholders. An Engine holds no
// mutable state and may be shared between goroutines.
type Engine struct {
	StartTag string
	EndTag   string

	// Default, when non-nil, replaces undefined plain
	// placeholders instead of failing. Dotted and dashed
	// placeholders are not affected.
	Default *string
}

// Substitute rewrites tpl with the default engine.
func Substitute(
	tpl string,
	vars map[string]string,
) (string, error) {
	var en Engine

	return en.Substitute(tpl, vars)
}

// Substitute scans tpl once, left to right, and replaces
// every placeholder with its resolution against vars.
// Literal text between placeholders is copied unchanged.
// The first undefined plain placeholder aborts the scan
// with an *UndefinedVariableError and no output.
func (en *Engine) Substitute(
	tpl string,
	vars map[string]string,
) (string, error) {
	const errCtx = "substituting"

	var (
		sb     strings.Builder
		cursor int
	)

	sb.Grow(len(tpl))

	for {
		ph, ok := en.next(tpl, cursor)
		if !ok {
			break
		}

		val, err := en.resolve(ph, vars)
		if err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}

		sb.WriteString(tpl[cursor:ph.Start])
		sb.WriteString(val)

		cursor = ph.End
	}

	sb.WriteString(tpl[cursor:])

	return sb.String(), nil
}

// Placeholders returns every well-formed placeholder of
// tpl in template order.
func (en *Engine) Placeholders(tpl string) []Placeholder {
	var (
		phs    []Placeholder
		cursor int
	)

	for {
		ph, ok := en.next(tpl, cursor)
		if !ok {
			return phs
		}

		phs = append(phs, ph)
		cursor = ph.End
	}
}

// Vars returns the sorted, de-duplicated names of the
// variables referenced by tpl.
func (en *Engine) Vars(tpl string) []string {
	phs := en.Placeholders(tpl)

	names := make([]string, 0, len(phs))
	for _, ph := range phs {
		names = append(names, ph.Name)
	}

	slices.Sort(names)

	return slices.Compact(names)
}

// IsTemplated reports whether tpl contains at least one
// well-formed placeholder.
func (en *Engine) IsTemplated(tpl string) bool {
	_, ok := en.next(tpl, 0)

	return ok
}

// tags returns the configured start/end tags, falling
// back to "${" and "}".
func (en *Engine) tags() (string, string) {
	startTag := en.StartTag
	if startTag == "" {
		startTag = defaultStartTag
	}

	endTag := en.EndTag
	if endTag == "" {
		endTag = defaultEndTag
	}

	return startTag, endTag
}

// resolve applies the lookup policy of the placeholder's
// variant.
func (en *Engine) resolve(
	ph Placeholder,
	vars map[string]string,
) (string, error) {
	val, found := vars[ph.Name]

	if ph.Variant != Plain {
		if !found || val == "" {
			return "", nil
		}

		return val + ph.Variant.suffix(), nil
	}

	if found {
		return val, nil
	}

	if en.Default != nil {
		return *en.Default, nil
	}

	return "", &UndefinedVariableError{Name: ph.Name}
}
