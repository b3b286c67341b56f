package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/ksubst/tree"
)

// Formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// DefaultLine is the text line used when none is given.
const DefaultLine = "[{status}] {path}"

type jsonResult struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Bytes  int    `json:"bytes"`
	Error  string `json:"error,omitempty"`
}

type jsonReport struct {
	DryRun  bool           `json:"dryRun"`
	Results []jsonResult   `json:"results"`
	Counts  map[string]int `json:"counts"`
}

// Write renders rep to w in format. line is the
// per-result template of the text format; empty means
// DefaultLine. Unknown tags in line are kept as-is.
func Write(
	w io.Writer,
	rep tree.Report,
	format string,
	line string,
) error {
	const errCtx = "writing report"

	var err error

	switch format {
	case "", FormatText:
		err = writeText(w, rep, line)
	case FormatJSON:
		err = writeJSON(w, rep)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func writeText(
	w io.Writer,
	rep tree.Report,
	line string,
) error {
	if line == "" {
		line = DefaultLine
	}

	tpl, err := fasttemplate.NewTemplate(line, "{", "}")
	if err != nil {
		return fmt.Errorf("parsing line: %w", err)
	}

	for _, res := range rep.Results {
		_, err := tpl.ExecuteFunc(
			w,
			func(tw io.Writer, tag string) (int, error) {
				return tw.Write([]byte(field(res, tag)))
			},
		)
		if err != nil {
			return fmt.Errorf("writing line: %w", err)
		}

		if _, err := io.WriteString(w, "\n"); err != nil {
			return fmt.Errorf("writing line: %w", err)
		}
	}

	counts := rep.Counts()

	statuses := make([]string, 0, len(counts))
	for st := range counts {
		statuses = append(statuses, string(st))
	}

	sort.Strings(statuses)

	summary := fmt.Sprintf("%d files", len(rep.Results))
	for _, st := range statuses {
		summary += fmt.Sprintf(
			", %d %s", counts[tree.Status(st)], st,
		)
	}

	if rep.DryRun {
		summary += " (dry run)"
	}

	if _, err := io.WriteString(w, summary+"\n"); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	return nil
}

// field resolves one line tag.
func field(res tree.Result, tag string) string {
	switch tag {
	case "status":
		return string(res.Status)
	case "path":
		return res.Path
	case "bytes":
		return strconv.Itoa(res.Bytes)
	case "error":
		if res.Err == nil {
			return ""
		}

		return res.Err.Error()
	default:
		return "{" + tag + "}"
	}
}

func writeJSON(w io.Writer, rep tree.Report) error {
	out := jsonReport{
		DryRun:  rep.DryRun,
		Results: make([]jsonResult, 0, len(rep.Results)),
		Counts:  make(map[string]int),
	}

	for _, res := range rep.Results {
		jr := jsonResult{
			Path:   res.Path,
			Status: string(res.Status),
			Bytes:  res.Bytes,
		}

		if res.Err != nil {
			jr.Error = res.Err.Error()
		}

		out.Results = append(out.Results, jr)
	}

	for st, cnt := range rep.Counts() {
		out.Counts[string(st)] = cnt
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	return nil
}
