// Package templating substitutes ${NAME} placeholders in text with values
// from an explicit variable map. Besides the plain ${NAME} form it supports
// two suffixed forms, ${NAME.} and ${NAME-}, which emit the value followed by
// the suffix character when the variable is set and non-empty, and nothing
// otherwise. They let a variable act as an optional prefix of a Kubernetes
// resource name without leaving a stray separator behind.
//
// The Engine type holds the delimiter configuration and an optional default
// for undefined plain placeholders. Substitution is a single left-to-right
// pass: replacement values are never re-scanned, malformed or unterminated
// placeholders are copied through as literal text, and the only error is
// UndefinedVariableError for a plain placeholder whose variable is missing.
package templating
