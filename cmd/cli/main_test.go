package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"charfred/internal/permission"
	"charfred/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWizard(t *testing.T, path, input string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(input))
	root.SetOut(&out)
	root.SetArgs(append(args, "--settings", path))
	err := root.Execute()
	return out.String(), err
}

func answers(lines ...string) string { return strings.Join(lines, "\n") + "\n" }

func TestFullWizard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botCfg.json")
	out, err := runWizard(t, path, answers(
		"y",         // continue
		"tok3n",     // token
		"!",         // first prefix
		"y",         // another
		"charfred ", // second prefix, trailing space kept
		"n",
		"y", "https://discord.com/api/webhooks/1/x", // hook
		"y",                 // past the breakpoint
		"n", "y",            // historian.history: no role, everyone
		"n", "n",            // process.qm: owner only
		"y", "Server Admin", // process.status: role
		"y", "java, bash", // process.targets
	))
	require.NoError(t, err, out)
	assert.Contains(t, out, "All done!")

	store, err := storage.New(path)
	require.NoError(t, err)
	assert.Equal(t, "tok3n", store.Token())
	assert.Equal(t, []string{"!", "charfred "}, store.Prefixes())
	assert.Equal(t, "https://discord.com/api/webhooks/1/x", store.Hook())

	req, _ := store.Node("historian.history")
	assert.Equal(t, permission.Open(), req)
	req, _ = store.Node("process.qm")
	assert.Equal(t, permission.OwnerOnly(), req)
	req, _ = store.Node("process.status")
	assert.Equal(t, permission.MinRole("Server Admin"), req)
	cs, _ := store.CogSetting("process.targets")
	assert.Equal(t, "java, bash", cs.Value)
}

func TestWizardAbortsAtStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botCfg.json")
	_, err := runWizard(t, path, answers("n"))
	assert.ErrorIs(t, err, errAborted)
}

func TestNodesUpdateOnlyAsksNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botCfg.json")
	store, err := storage.New(path)
	require.NoError(t, err)
	_, err = store.EnsureNodes([]string{"process.status"})
	require.NoError(t, err)

	out, err := runWizard(t, path, answers("n", "n", "n", "y"), "nodes", "update")
	require.NoError(t, err)
	assert.Contains(t, out, "historian.history")
	assert.Contains(t, out, "use process.qm commands")
	assert.NotContains(t, out, "use process.status commands")

	_, err = runWizard(t, path, answers(), "nodes", "update")
	require.NoError(t, err)
}

func TestNodesEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botCfg.json")
	store, err := storage.New(path)
	require.NoError(t, err)
	_, err = store.EnsureNodes([]string{"process.status"})
	require.NoError(t, err)

	out, err := runWizard(t, path, answers("process.status", "n", "y", "n"), "nodes", "edit")
	require.NoError(t, err)
	assert.Contains(t, out, "Done editing permissions for process.status!")

	store, err = storage.New(path)
	require.NoError(t, err)
	req, _ := store.Node("process.status")
	assert.Equal(t, permission.KindEveryone, req.Kind())

	out, err = runWizard(t, path, answers("nope"), "nodes", "edit")
	require.NoError(t, err)
	assert.Contains(t, out, "nope is not a registered node!")
}
