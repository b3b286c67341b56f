// Package report renders a tree.Report for the user. The text format renders
// one line per file through a fasttemplate line with single-brace tags
// ({status}, {path}, {bytes}, {error}); the json format emits the results and
// per-status counts as a single JSON document.
package report
