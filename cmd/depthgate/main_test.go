package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeQueryFile(t *testing.T, name, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0644))
	return path
}

func TestRunDispatch(t *testing.T) {
	require.Error(t, run(nil))
	require.Error(t, run([]string{"bogus"}))
	require.NoError(t, run([]string{"help"}))
	require.NoError(t, run([]string{"help", "serve"}))
	require.NoError(t, run([]string{"help", "check"}))
	require.Error(t, run([]string{"help", "bogus"}))
}

func TestServeRequiresUpstream(t *testing.T) {
	err := run([]string{"serve"})
	require.ErrorContains(t, err, "-upstream.url is required")
}

func TestCheckCommand(t *testing.T) {
	shallow := writeQueryFile(t, "shallow.graphql", `{ a { b } }`)
	deep := writeQueryFile(t, "deep.graphql", `query Deep { a { b { c { d } } } }`)
	broken := writeQueryFile(t, "broken.graphql", `{ a`)

	t.Run("passing documents", func(t *testing.T) {
		require.NoError(t, run([]string{"check", "-limit.max-depth", "2", shallow}))
	})

	t.Run("deep documents fail", func(t *testing.T) {
		err := run([]string{"check", "-limit.max-depth", "2", shallow, deep})
		require.ErrorContains(t, err, "1 of 2 documents failed")
	})

	t.Run("unparseable documents fail", func(t *testing.T) {
		err := run([]string{"check", "-limit.max-depth", "2", broken})
		require.ErrorContains(t, err, "1 of 1 documents failed")
	})

	t.Run("missing files fail", func(t *testing.T) {
		err := run([]string{"check", "-limit.max-depth", "2", filepath.Join(t.TempDir(), "absent.graphql")})
		require.ErrorContains(t, err, "1 of 1 documents failed")
	})

	t.Run("ignored field shields deep nesting", func(t *testing.T) {
		require.NoError(t, run([]string{"check", "-limit.max-depth", "2", "-limit.ignore-exact", "a", deep}))
	})

	t.Run("pattern flag", func(t *testing.T) {
		require.NoError(t, run([]string{"check", "-limit.max-depth", "2", "-limit.ignore-pattern", "^a$", deep}))
	})

	t.Run("known fragments flag", func(t *testing.T) {
		dangling := writeQueryFile(t, "dangling.graphql", `{ a { ...Missing } }`)
		require.NoError(t, run([]string{"check", "-limit.max-depth", "5", dangling}))
		err := run([]string{"check", "-limit.max-depth", "5", "-validation.known-fragments", dangling})
		require.ErrorContains(t, err, "1 of 1 documents failed")
	})

	t.Run("negative limit rejected", func(t *testing.T) {
		err := run([]string{"check", "-limit.max-depth", "-1", shallow})
		require.ErrorContains(t, err, "must be >= 0")
	})
}
