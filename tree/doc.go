// Package tree applies substitution to every selected file of a directory
// and mirrors the results under an output directory. Files are selected with
// doublestar include/exclude patterns relative to the input root and are
// processed by a bounded pool of workers. Each file is an independent unit of
// work: the per-file outcomes are collected into a Report in path order.
//
// By default the first failing file cancels the files that have not started
// yet; with Options.KeepGoing every file is attempted and all failures are
// returned together.
package tree
