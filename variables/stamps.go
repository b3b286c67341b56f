package variables

import (
	"fmt"
	"os"
	"strings"
)

// LoadStamps reads workspace status files and merges them
// into a single map. Each line is "KEY VALUE" with the
// first space as delimiter. Lines without a space are
// silently skipped and a later file overrides an earlier
// one.
func LoadStamps(
	infoFiles []string,
) (map[string]string, error) {
	const errCtx = "loading stamps"

	stamps := make(map[string]string)

	for _, sf := range infoFiles {
		content, err := os.ReadFile(sf) //nolint:gosec // paths from CLI flags
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		for _, line := range strings.Split(
			string(content), "\n",
		) {
			line = strings.TrimSuffix(line, "\r")

			key, val, ok := strings.Cut(line, " ")
			if ok && key != "" {
				stamps[key] = val
			}
		}
	}

	return stamps, nil
}
