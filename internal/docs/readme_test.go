package docs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"charfred/internal/command"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(*command.MessageContext) error { return nil }

func testRegistry(t *testing.T) *command.Registry {
	t.Helper()
	reg := command.NewRegistry()
	require.NoError(t, reg.Register(&command.Func{
		Base: command.Base{CmdName: "prefix", CmdDescription: "Lists prefixes", CmdGroup: "admin"},
		Fn:   noop,
		Subs: []command.Command{&command.Func{
			Base: command.Base{CmdName: "add", CmdDescription: "Adds a prefix", Owner: true},
			Fn:   noop,
		}},
	}))
	require.NoError(t, reg.Register(&command.Func{
		Base: command.Base{CmdName: "last", CmdDescription: "Repeats", CmdAliases: []string{"!!"}, CmdGroup: "historian", CmdNode: "historian.last"},
		Fn:   noop,
	}))
	require.NoError(t, reg.Register(&command.Func{
		Base: command.Base{CmdName: "zz", CmdDescription: "Odd one", CmdGroup: "misc", Hide: true},
		Fn:   noop,
	}))
	return reg
}

func TestSectionsOrderAndNotes(t *testing.T) {
	out := Sections(testRegistry(t), GroupWeights)

	hist := strings.Index(out, "### historian")
	admin := strings.Index(out, "### admin")
	misc := strings.Index(out, "### misc")
	require.True(t, hist >= 0 && admin >= 0 && misc >= 0, out)
	assert.Less(t, hist, admin)
	assert.Less(t, admin, misc)

	assert.Contains(t, out, "- **last**: Repeats _(aliases: !!; node: `historian.last`)_\n")
	assert.Contains(t, out, "- **prefix**: Lists prefixes\n")
	assert.Contains(t, out, "- **prefix add**: Adds a prefix _(owner only)_\n")
	assert.Contains(t, out, "- **zz**: Odd one _(hidden)_\n")
}

func TestRenderTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, testRegistry(t), "before\n{{.CommandSections}}after"))
	assert.True(t, strings.HasPrefix(buf.String(), "before\n### historian"))
	assert.True(t, strings.HasSuffix(buf.String(), "after"))

	assert.Error(t, Render(&buf, testRegistry(t), "{{.Missing"))
}

func TestUpdateReadme(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "COMMANDS.md")
	require.NoError(t, UpdateReadme(testRegistry(t), "", out))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "# Commands"))
	assert.Contains(t, string(b), "prefix add")

	assert.Error(t, UpdateReadme(testRegistry(t), filepath.Join(dir, "nope.tmpl"), out))
}
