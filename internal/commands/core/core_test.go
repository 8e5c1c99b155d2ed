package core

import (
	"testing"
	"time"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/internal/commands/commandtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx *command.MessageContext) error { return nil }

func newRegistry(t *testing.T) *command.Registry {
	reg := command.NewRegistry()
	require.NoError(t, reg.Register(&command.Func{
		Base: command.Base{CmdName: "ping", CmdDescription: "Pong", CmdGroup: "misc"},
		Fn:   noop,
	}))
	require.NoError(t, reg.Register(&command.Func{
		Base: command.Base{CmdName: "secret", CmdDescription: "Hush", Hide: true},
		Fn:   noop,
	}))
	require.NoError(t, reg.Register(&command.Func{
		Base: command.Base{CmdName: "prefix", CmdDescription: "Lists prefixes", CmdAliases: []string{"pfx"}, CmdGroup: "admin"},
		Fn:   noop,
		Subs: []command.Command{&command.Func{
			Base: command.Base{CmdName: "add", CmdDescription: "Adds a prefix", Owner: true},
			Fn:   noop,
		}},
	}))
	return reg
}

func TestHelpOverviewSkipsHidden(t *testing.T) {
	reg := newRegistry(t)
	r := &commandtest.Replier{}
	help := &HelpCommand{registry: reg}

	require.NoError(t, help.Run(commandtest.Context(nil, r)))
	out := r.Last()
	assert.Contains(t, out, "# admin")
	assert.Contains(t, out, "!ping")
	assert.Contains(t, out, "Lists prefixes")
	assert.NotContains(t, out, "secret")
}

func TestHelpDescribesCommand(t *testing.T) {
	reg := newRegistry(t)
	r := &commandtest.Replier{}
	help := &HelpCommand{registry: reg}

	require.NoError(t, help.Run(commandtest.Context(nil, r, "prefix")))
	out := r.Last()
	assert.Contains(t, out, "# !prefix")
	assert.Contains(t, out, "Aliases: pfx")
	assert.Contains(t, out, "!prefix add")

	require.NoError(t, help.Run(commandtest.Context(nil, r, "prefix", "add")))
	assert.Contains(t, r.Last(), "< Owner only >")

	require.NoError(t, help.Run(commandtest.Context(nil, r, "nope")))
	assert.Equal(t, `> No command called "nope" found!`, r.Last())
}

func TestUptime(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &UptimeCommand{
		started: func() time.Time { return start },
		now:     func() time.Time { return start.Add(26*time.Hour + 3*time.Minute + 4*time.Second) },
	}
	r := &commandtest.Replier{}
	require.NoError(t, c.Run(commandtest.Context(nil, r)))
	assert.Equal(t, "# I have been up for 1 day(s), 2 hour(s), 3 minute(s) and 4 second(s)!", r.Last())
}

func TestCommandsDefaultStart(t *testing.T) {
	cmds := Commands(commands.Deps{Registry: command.NewRegistry()})
	require.Len(t, cmds, 2)
	assert.Equal(t, "help", cmds[0].Name())
	assert.Equal(t, "uptime", cmds[1].Name())
}
