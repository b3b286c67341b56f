package tree_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/ksubst/templating"
	"github.com/byte4ever/ksubst/tree"
)

// writeTemp creates rel under dir, with parents, and
// returns its path.
func writeTemp(
	tb testing.TB,
	dir string,
	rel string,
	content string,
) string {
	tb.Helper()

	pa := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(tb, os.MkdirAll(filepath.Dir(pa), 0o755))
	require.NoError(
		tb,
		os.WriteFile(pa, []byte(content), 0o600),
	)

	return pa
}

func readFile(tb testing.TB, pa string) string {
	tb.Helper()

	got, err := os.ReadFile(pa) //nolint:gosec // test file
	require.NoError(tb, err)

	return string(got)
}

func statuses(rep tree.Report) map[string]tree.Status {
	got := make(map[string]tree.Status, len(rep.Results))
	for _, res := range rep.Results {
		got[res.Path] = res.Status
	}

	return got
}

func TestProcess_mirrors_tree(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()

	writeTemp(t, in, "deploy.yaml", "name: ${PREFIX-}api\n")
	writeTemp(t, in, "nested/deeper/host.txt", "${HOST}")

	rep, err := tree.Process(
		context.Background(),
		tree.Options{InputDir: in, OutputDir: out, Parallelism: 2},
		&templating.Engine{},
		map[string]string{"PREFIX": "dev", "HOST": "example.com"},
	)

	require.NoError(t, err)
	assert.Equal(t, map[string]tree.Status{
		"deploy.yaml":            tree.StatusWritten,
		"nested/deeper/host.txt": tree.StatusWritten,
	}, statuses(rep))

	assert.Equal(
		t, "name: dev-api\n",
		readFile(t, filepath.Join(out, "deploy.yaml")),
	)
	assert.Equal(
		t, "example.com",
		readFile(t, filepath.Join(out, "nested", "deeper", "host.txt")),
	)
}

func TestProcess_results_in_path_order(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()

	var want []string

	for idx := 0; idx < 20; idx++ {
		rel := fmt.Sprintf("f%02d.txt", idx)
		want = append(want, rel)
		writeTemp(t, in, rel, "${N}")
	}

	rep, err := tree.Process(
		context.Background(),
		tree.Options{InputDir: in, OutputDir: out, Parallelism: 8},
		&templating.Engine{},
		map[string]string{"N": "n"},
	)

	require.NoError(t, err)

	var got []string
	for _, res := range rep.Results {
		got = append(got, res.Path)
		assert.Equal(t, tree.StatusWritten, res.Status)
		assert.Equal(t, 1, res.Bytes)
	}

	assert.Equal(t, want, got)
}

func TestProcess_filters(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()

	writeTemp(t, in, "app/deploy.yaml", "a")
	writeTemp(t, in, "app/README.md", "b")
	writeTemp(t, in, "app/secret.yaml", "c")
	writeTemp(t, in, "top.txt", "d")

	rep, err := tree.Process(
		context.Background(),
		tree.Options{
			InputDir:  in,
			OutputDir: out,
			Matcher: tree.Matcher{
				Include: []string{"**/*.yaml", "*.md"},
				Exclude: []string{"secret.*"},
			},
		},
		&templating.Engine{},
		nil,
	)

	require.NoError(t, err)
	assert.Equal(t, map[string]tree.Status{
		"app/README.md":   tree.StatusWritten,
		"app/deploy.yaml": tree.StatusWritten,
	}, statuses(rep))

	assert.NoFileExists(t, filepath.Join(out, "top.txt"))
	assert.NoFileExists(t, filepath.Join(out, "app", "secret.yaml"))
}

func TestProcess_undefined_variable_stops_run(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()

	writeTemp(t, in, "a.txt", "${MISSING}")
	writeTemp(t, in, "b.txt", "ok")
	writeTemp(t, in, "c.txt", "ok")

	rep, err := tree.Process(
		context.Background(),
		tree.Options{InputDir: in, OutputDir: out, Parallelism: 1},
		&templating.Engine{},
		nil,
	)

	require.ErrorIs(t, err, templating.ErrUndefinedVariable)
	assert.Contains(t, err.Error(), "a.txt")
	assert.Equal(t, map[string]tree.Status{
		"a.txt": tree.StatusFailed,
		"b.txt": tree.StatusSkipped,
		"c.txt": tree.StatusSkipped,
	}, statuses(rep))

	assert.NoFileExists(t, filepath.Join(out, "a.txt"))
	assert.NoFileExists(t, filepath.Join(out, "b.txt"))
}

func TestProcess_keep_going(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()

	writeTemp(t, in, "a.txt", "${MISSING}")
	writeTemp(t, in, "b.txt", "${OTHER}")
	writeTemp(t, in, "c.txt", "ok")

	rep, err := tree.Process(
		context.Background(),
		tree.Options{
			InputDir:    in,
			OutputDir:   out,
			Parallelism: 1,
			KeepGoing:   true,
		},
		&templating.Engine{},
		nil,
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.txt")
	assert.Contains(t, err.Error(), "b.txt")
	require.Len(t, rep.Failed(), 2)
	assert.Equal(t, 1, rep.Counts()[tree.StatusWritten])
	assert.Equal(t, "ok", readFile(t, filepath.Join(out, "c.txt")))
}

func TestProcess_unchanged_on_second_run(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()

	writeTemp(t, in, "a.txt", "${V}")

	opts := tree.Options{InputDir: in, OutputDir: out}
	vars := map[string]string{"V": "1"}

	_, err := tree.Process(
		context.Background(), opts, &templating.Engine{}, vars,
	)
	require.NoError(t, err)

	rep, err := tree.Process(
		context.Background(), opts, &templating.Engine{}, vars,
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]tree.Status{
		"a.txt": tree.StatusUnchanged,
	}, statuses(rep))
}

func TestProcess_dry_run_writes_nothing(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "never")

	writeTemp(t, in, "a.txt", "x")

	rep, err := tree.Process(
		context.Background(),
		tree.Options{InputDir: in, OutputDir: out, DryRun: true},
		&templating.Engine{},
		nil,
	)

	require.NoError(t, err)
	assert.True(t, rep.DryRun)
	assert.Equal(t, tree.StatusPlanned, rep.Results[0].Status)
	assert.NoDirExists(t, out)
}

func TestProcess_validate_manifests(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()

	writeTemp(t, in, "svc.yaml", "kind: Service\nmetadata:\n  name: ${NAME.}\n")
	writeTemp(t, in, "notes.txt", "name: ${NAME.}\n")

	rep, err := tree.Process(
		context.Background(),
		tree.Options{
			InputDir:          in,
			OutputDir:         out,
			KeepGoing:         true,
			ValidateManifests: true,
		},
		&templating.Engine{},
		map[string]string{"NAME": "api"},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "svc.yaml")
	assert.Equal(t, map[string]tree.Status{
		"notes.txt": tree.StatusWritten,
		"svc.yaml":  tree.StatusFailed,
	}, statuses(rep))
}

func TestProcess_preserves_file_mode(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()

	src := writeTemp(t, in, "run.sh", "echo ${MSG}\n")
	require.NoError(t, os.Chmod(src, 0o750))

	_, err := tree.Process(
		context.Background(),
		tree.Options{InputDir: in, OutputDir: out},
		&templating.Engine{},
		map[string]string{"MSG": "hi"},
	)
	require.NoError(t, err)

	fi, err := os.Stat(filepath.Join(out, "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), fi.Mode().Perm())
}

func TestProcess_nested_output_not_walked(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := filepath.Join(in, "rendered")

	writeTemp(t, in, "a.txt", "a")
	writeTemp(t, in, "rendered/stale.txt", "${UNDEFINED}")

	rep, err := tree.Process(
		context.Background(),
		tree.Options{InputDir: in, OutputDir: out},
		&templating.Engine{},
		nil,
	)

	require.NoError(t, err)
	assert.Equal(t, map[string]tree.Status{
		"a.txt": tree.StatusWritten,
	}, statuses(rep))
}

func TestProcess_in_place(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	pa := writeTemp(t, dir, "a.txt", "${V}")

	_, err := tree.Process(
		context.Background(),
		tree.Options{InputDir: dir, OutputDir: dir},
		&templating.Engine{},
		map[string]string{"V": "done"},
	)

	require.NoError(t, err)
	assert.Equal(t, "done", readFile(t, pa))
}

func TestProcess_missing_input_dir(t *testing.T) {
	t.Parallel()

	_, err := tree.Process(
		context.Background(),
		tree.Options{
			InputDir:  "/nonexistent/input",
			OutputDir: t.TempDir(),
		},
		&templating.Engine{},
		nil,
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "collecting files")
}

func TestProcess_bad_pattern(t *testing.T) {
	t.Parallel()

	_, err := tree.Process(
		context.Background(),
		tree.Options{
			InputDir:  t.TempDir(),
			OutputDir: t.TempDir(),
			Matcher:   tree.Matcher{Exclude: []string{"[unclosed"}},
		},
		&templating.Engine{},
		nil,
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad pattern")
}

func TestProcess_cancelled_context(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()

	writeTemp(t, in, "a.txt", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := tree.Process(
		ctx,
		tree.Options{InputDir: in, OutputDir: out},
		&templating.Engine{},
		nil,
	)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, tree.StatusSkipped, rep.Results[0].Status)
}
