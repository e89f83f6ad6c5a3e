package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	redisURL string
	config   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return &cliEnv{
		redisURL: "redis://" + mr.Addr(),
		config:   filepath.Join(t.TempDir(), "burrow.yml"),
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	full := append([]string{"--config", e.config, "--redis-url", e.redisURL, "--project", "demo"}, args...)
	return runCLI(t, full...)
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, _, err := runCLI(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "burrow")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := runCLI(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_RejectsSubcommandFlags(t *testing.T) {
	_, _, err := runCLI(t, "--group-by", "author")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestMissingConfig(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	_, stderr, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "burrow.yml"), "ls", "hero")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Contains(t, stderr, "burrow init <project>")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	out, _, err := runCLI(t, "init", "demo", "--port", "6390")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully initialized")

	content, err := os.ReadFile(filepath.Join(dir, "burrow.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "project: demo")
	assert.Contains(t, string(content), "port: 6390")

	_, _, err = runCLI(t, "init", "demo")
	assert.ErrorContains(t, err, "initialization failed")

	_, _, err = runCLI(t, "init")
	assert.ErrorContains(t, err, "project name required")
}

func TestSeedAndList(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run(t, "seed", "hero")
	require.NoError(t, err)
	assert.Contains(t, out, "Published demo asset 'hero'")

	_, _, err = env.run(t, "seed", "hero")
	assert.ErrorContains(t, err, "asset already exists")

	t.Run("default table", func(t *testing.T) {
		out, _, err := env.run(t, "ls", "hero")
		require.NoError(t, err)
		assert.Contains(t, out, "Subsets for asset 'hero' (grouped by family):")
		assert.Contains(t, out, "▾ family: avalon.animation (1)")
		assert.Contains(t, out, "▾ family: (blank) (1)")
		assert.Contains(t, out, "6 subsets in 6 groups")
		assert.NotContains(t, out, "layoutDraft")
	})

	t.Run("group by author with a family filter", func(t *testing.T) {
		out, _, err := env.run(t, "ls", "hero", "--group-by", "author", "--families", "avalon.model")
		require.NoError(t, err)
		assert.Contains(t, out, "(grouped by author)")
		assert.Contains(t, out, "modelDefault")
		assert.Contains(t, out, "sketchNotes")
		assert.NotContains(t, out, "animMain")
	})

	t.Run("collapsed group", func(t *testing.T) {
		out, _, err := env.run(t, "ls", "hero", "--collapse", "avalon.model")
		require.NoError(t, err)
		assert.Contains(t, out, "▸ family: avalon.model (1)")
		assert.NotContains(t, out, "modelDefault")
	})

	t.Run("jsonl", func(t *testing.T) {
		out, _, err := env.run(t, "ls", "hero", "-o", "jsonl")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 6)

		var first map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		assert.Equal(t, "avalon.model", first["group"])
		assert.Equal(t, "modelDefault", first["subset"])
		assert.Equal(t, "v002", first["version"])
	})

	t.Run("invalid output format", func(t *testing.T) {
		_, _, err := env.run(t, "ls", "hero", "-o", "xml")
		assert.ErrorContains(t, err, "invalid output format")
	})

	t.Run("unknown group-by column", func(t *testing.T) {
		_, stderr, err := env.run(t, "ls", "hero", "--group-by", "colour")
		assert.ErrorContains(t, err, "unknown group-by column")
		assert.Contains(t, stderr, "Group by one of: subset, family, version, time, author, frames, duration, handles, step, none\n")
	})

	t.Run("unknown asset", func(t *testing.T) {
		_, stderr, err := env.run(t, "ls", "dragon")
		assert.ErrorContains(t, err, "asset not found")
		assert.Contains(t, stderr, "burrow seed dragon")
	})
}

func TestEnvironmentOverrides(t *testing.T) {
	env := newCLIEnv(t)
	_, _, err := env.run(t, "seed", "hero")
	require.NoError(t, err)

	t.Setenv("BURROW_PROJECT", "demo")
	t.Setenv("BURROW_REDIS_URL", env.redisURL)

	out, _, err := runCLI(t, "--config", env.config, "ls", "hero")
	require.NoError(t, err)
	assert.Contains(t, out, "6 subsets in 6 groups")

	t.Run("projects are isolated", func(t *testing.T) {
		_, _, err := runCLI(t, "--config", env.config, "--project", "other", "ls", "hero")
		assert.ErrorContains(t, err, "asset not found")
	})
}

func TestSetVersionCommand(t *testing.T) {
	env := newCLIEnv(t)
	_, _, err := env.run(t, "seed", "hero")
	require.NoError(t, err)

	out, _, err := env.run(t, "set-version", "hero", "animMain", "v001")
	require.NoError(t, err)
	assert.Contains(t, out, "animMain now at v001 (frames 1001-1100)")
	assert.Contains(t, out, "1001-1100")

	_, stderr, err := env.run(t, "set-version", "hero", "animMain", "v009")
	assert.ErrorContains(t, err, "version not found")
	assert.Contains(t, stderr, "burrow history hero --subset animMain")
	assert.NotContains(t, stderr, "--group-by version")

	_, _, err = env.run(t, "set-version", "hero", "layoutDraft", "v001")
	assert.ErrorContains(t, err, "cannot change version")
}

func TestPublishCommands(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run(t, "publish", "asset", "villain")
	require.NoError(t, err)
	assert.Contains(t, out, "Published asset 'villain'")

	out, _, err = env.run(t, "publish", "subset", "villain", "fxMain", "--extra", "host=houdini")
	require.NoError(t, err)
	assert.Contains(t, out, "Published subset 'fxMain'")

	out, _, err = env.run(t, "publish", "version", "villain", "fxMain",
		"--start", "1001", "--end", "1010", "--handles", "4", "--family", "avalon.fx", "--author", "sam")
	require.NoError(t, err)
	assert.Contains(t, out, "Published version 'v001'")

	out, _, err = env.run(t, "publish", "version", "villain", "fxMain", "--family", "avalon.fx")
	require.NoError(t, err)
	assert.Contains(t, out, "Published version 'v002'")

	_, _, err = env.run(t, "publish", "version", "villain", "fxMain", "v002", "--family", "avalon.fx")
	assert.ErrorContains(t, err, "version 'v002' already published")

	_, _, err = env.run(t, "publish", "version", "villain", "smoke")
	assert.ErrorContains(t, err, "subset not found")

	_, _, err = env.run(t, "publish", "version", "villain", "fxMain", "v003", "--start", "10", "--end", "1")
	assert.ErrorContains(t, err, "failed to publish version")

	out, _, err = env.run(t, "ls", "villain", "-o", "jsonl")
	require.NoError(t, err)
	var row map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &row))
	assert.Equal(t, "fxMain", row["subset"])
	assert.Equal(t, "v002", row["version"])
	assert.Equal(t, "avalon.fx", row["family"])
}
