package templating

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUndefinedVariable matches any
	// *UndefinedVariableError through errors.Is.
	ErrUndefinedVariable = errors.New("undefined variable")

	// ErrForbiddenCharacter is returned by ValidateVars.
	ErrForbiddenCharacter = errors.New("forbidden character")
)

// UndefinedVariableError reports a plain placeholder whose
// variable is absent from the map.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return "undefined variable " + e.Name
}

// Is makes errors.Is(err, ErrUndefinedVariable) hold.
func (e *UndefinedVariableError) Is(target error) bool {
	return target == ErrUndefinedVariable
}

// forbidden lists characters that would let a substituted
// value form a new placeholder.
const forbidden = "${}"

// ValidateVars checks that no variable name or value
// contains "$", "{" or "}". Substitute never calls it;
// callers that want values free of placeholder syntax run
// it first. Names are checked in sorted order so the
// reported variable is deterministic.
func ValidateVars(vars map[string]string) error {
	const errCtx = "validating variables"

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if err := validate(name, "name"); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		if err := validate(vars[name], "value"); err != nil {
			return fmt.Errorf(
				"%s: %s: %w", errCtx, name, err,
			)
		}
	}

	return nil
}

// ValidateDefault applies the ValidateVars rule to an
// Engine.Default value.
func ValidateDefault(def string) error {
	if err := validate(def, "default"); err != nil {
		return fmt.Errorf("validating default: %w", err)
	}

	return nil
}

func validate(s string, kind string) error {
	idx := strings.IndexAny(s, forbidden)
	if idx < 0 {
		return nil
	}

	return fmt.Errorf(
		"%w %q in %s %q",
		ErrForbiddenCharacter, s[idx], kind, s,
	)
}
