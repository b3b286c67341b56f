package tree

// Status is the outcome of one file.
type Status string

const (
	// StatusWritten means the output file was created or
	// replaced.
	StatusWritten Status = "written"

	// StatusUnchanged means the output already held the
	// substituted content.
	StatusUnchanged Status = "unchanged"

	// StatusPlanned means a dry run would have written
	// the file.
	StatusPlanned Status = "planned"

	// StatusSkipped means the file was not attempted
	// because the run was cancelled.
	StatusSkipped Status = "skipped"

	// StatusFailed means reading, substitution,
	// validation or writing failed.
	StatusFailed Status = "failed"
)

// Result is the outcome for one file.
type Result struct {
	// Path is slash-separated and relative to the input
	// root.
	Path   string
	Status Status
	Bytes  int
	Err    error
}

// Report collects the results of a run in path order.
type Report struct {
	Results []Result
	DryRun  bool
}

// Counts returns the number of results per status.
func (rep Report) Counts() map[Status]int {
	counts := make(map[Status]int)

	for _, res := range rep.Results {
		counts[res.Status]++
	}

	return counts
}

// Failed returns the failed results in path order.
func (rep Report) Failed() []Result {
	var failed []Result

	for _, res := range rep.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}

	return failed
}
