// Package variables builds the name to value map consumed by the templating
// engine. Values come from the process environment, Bazel workspace status
// files ("KEY VALUE" lines), .env files, and comma-separated KEY=VALUE lists.
// Sources are layered with Merge, later layers overriding earlier ones; Build
// applies the standard layering for a Sources description.
package variables
