package commands_test

import (
	"testing"

	"charfred/internal/commands"
	"charfred/internal/commands/commandtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownFormats(t *testing.T) {
	r := &commandtest.Replier{}
	require.NoError(t, commands.Markdown(commandtest.Context(nil, r), "# %s has %d%%", "disk", 80))
	assert.Equal(t, "# disk has 80%", r.Last())
}

func TestMarkdownTextKeepsVerbs(t *testing.T) {
	r := &commandtest.Replier{}
	require.NoError(t, commands.MarkdownText(commandtest.Context(nil, r), "  100% /home %s"))
	assert.Equal(t, "  100% /home %s", r.Last())
}

func TestSelfWithoutSession(t *testing.T) {
	assert.Equal(t, "me", commands.Self(commandtest.Context(nil, &commandtest.Replier{})))
}
