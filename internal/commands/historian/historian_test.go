package historian

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"charfred/internal/command"
	"charfred/internal/commands/commandtest"
	"charfred/internal/discord"
	"charfred/internal/history"
	"charfred/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	reinvoked []*discordgo.Message
	executed  []*discordgo.Message
}

func (f *fakeInvoker) Reinvoke(ctx context.Context, msg *discordgo.Message) {
	f.reinvoked = append(f.reinvoked, msg)
}

func (f *fakeInvoker) Execute(ctx context.Context, msg *discordgo.Message) error {
	f.executed = append(f.executed, msg)
	if strings.HasPrefix(msg.Content, "!nope") {
		return command.ErrCommandNotFound
	}
	return nil
}

func inbound(id, channel, author, content string) *discordgo.Message {
	return &discordgo.Message{ID: id, ChannelID: channel, Content: content, Author: &discordgo.User{ID: author}}
}

func newHistorian(t *testing.T) *history.Historian {
	h, err := history.New(10, nil)
	require.NoError(t, err)
	return h
}

func TestLastReinvokesNewestOwnCommand(t *testing.T) {
	h := newHistorian(t)
	inv := &fakeInvoker{}
	h.Start(inbound("a", "c1", "u1", "!ping"))
	h.Start(inbound("b", "c1", "u1", "!status"))
	h.Start(inbound("c", "c2", "u1", "!uptime"))
	h.Start(inbound("d", "c1", "u2", "!help"))

	r := &commandtest.Replier{}
	ctx := commandtest.Context(nil, r)
	h.Start(ctx.Message)

	require.NoError(t, (&LastCommand{hist: h, invoker: inv}).Run(ctx))
	require.Len(t, inv.reinvoked, 1)
	assert.Equal(t, "b", inv.reinvoked[0].ID)
	_, tracked := h.Get(ctx.Message.ID)
	assert.False(t, tracked)
}

func TestLastWithoutHistory(t *testing.T) {
	h := newHistorian(t)
	inv := &fakeInvoker{}
	r := &commandtest.Replier{}
	ctx := commandtest.Context(nil, r)
	h.Start(ctx.Message)

	require.NoError(t, (&LastCommand{hist: h, invoker: inv}).Run(ctx))
	assert.Empty(t, inv.reinvoked)
	assert.Equal(t, "> No recent command found in current channel!", r.Last())
}

func TestCmdMapClear(t *testing.T) {
	h := newHistorian(t)
	h.Start(inbound("a", "c1", "u1", "!ping"))
	bus := discord.NewEventBus()
	r := &commandtest.Replier{}

	require.NoError(t, (&CmdMapCommand{hist: h}).Run(commandtest.Context(nil, r)))
	assert.Contains(t, r.Last(), "# Command map (1/10)")
	assert.Contains(t, r.Last(), `a: "!ping" -> 0 output(s)`)

	clear := &CmdMapClearCommand{hist: h, events: bus}
	require.NoError(t, clear.Run(commandtest.Context(nil, r, "1")))
	assert.Equal(t, "< Insufficient maximum size, you can't even store a single command in there! >", r.Last())
	assert.Equal(t, 1, h.Len())

	require.NoError(t, clear.Run(commandtest.Context(nil, r, "25")))
	assert.Equal(t, "Command map cleared, new maximum size set to 25!", r.Last())
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 25, h.MaxSize())
	assert.Equal(t, discord.SystemEventCommandMapReset, (<-bus.Events()).Type)

	require.NoError(t, clear.Run(commandtest.Context(nil, r)))
	assert.Equal(t, history.DefaultSize, h.MaxSize())

	err := clear.Run(commandtest.Context(nil, r, "lots"))
	assert.ErrorIs(t, err, command.ErrBadArgument)
}

func TestSuAndCast(t *testing.T) {
	inv := &fakeInvoker{}
	r := &commandtest.Replier{}

	require.NoError(t, (&SuCommand{invoker: inv}).Run(commandtest.Context(nil, r, "<@!42>", "perms", "edit", "x")))
	require.Len(t, inv.executed, 1)
	got := inv.executed[0]
	assert.Equal(t, "!perms edit x", got.Content)
	assert.Equal(t, "42", got.Author.ID)
	assert.Equal(t, "m1", got.ID)
	assert.Empty(t, r.Sent)

	require.NoError(t, (&CastCommand{invoker: inv}).Run(commandtest.Context(nil, r, "<#99>", "uptime")))
	got = inv.executed[1]
	assert.Equal(t, "99", got.ChannelID)
	assert.Equal(t, "u1", got.Author.ID)

	require.NoError(t, (&CastCommand{invoker: inv}).Run(commandtest.Context(nil, r, "<#99>", "nope", "now")))
	assert.Equal(t, `No valid command for "nope" found!`, r.Last())

	err := (&SuCommand{invoker: inv}).Run(commandtest.Context(nil, r, "42"))
	assert.ErrorIs(t, err, command.ErrMissingArgument)
}

func newCommandLog(t *testing.T) *storage.CommandLog {
	l, err := storage.NewCommandLog(filepath.Join(t.TempDir(), "cmdlog.json"))
	require.NoError(t, err)
	return l
}

func TestCmdLogging(t *testing.T) {
	l := newCommandLog(t)
	r := &commandtest.Replier{}

	require.NoError(t, (&CmdLoggingCommand{log: l}).Run(commandtest.Context(nil, r)))
	assert.Equal(t, "# Logging is currently active!", r.Last())
	require.NoError(t, (&CmdLoggingToggleCommand{log: l}).Run(commandtest.Context(nil, r)))
	assert.Equal(t, "# Toggled command logging off!", r.Last())
	require.NoError(t, (&CmdLoggingCommand{log: l}).Run(commandtest.Context(nil, r)))
	assert.Equal(t, "# Logging is currently inactive!", r.Last())
	require.NoError(t, (&CmdLoggingToggleCommand{log: l}).Run(commandtest.Context(nil, r)))
	assert.Equal(t, "# Toggled command logging on!", r.Last())
}

func TestHistoryNewestFirst(t *testing.T) {
	l := newCommandLog(t)
	r := &commandtest.Replier{}
	h := &HistoryCommand{log: l}

	require.NoError(t, h.Run(commandtest.Context(nil, r)))
	assert.Equal(t, "< No commands logged yet! >", r.Last())

	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.Local)
	require.NoError(t, l.Append("g1", storage.CommandHistoryRecord{ChannelID: "c1", Username: "ann", Command: "ping", Content: "!ping", Datetime: at}))
	require.NoError(t, l.Append("g1", storage.CommandHistoryRecord{ChannelID: "c1", Username: "bob", Command: "uptime", Content: "!uptime", Datetime: at.Add(time.Minute)}))

	require.NoError(t, h.Run(commandtest.Context(nil, r)))
	assert.Equal(t, "# Recent commands:\n"+
		"2024-05-01 12:31:00 bob in c1: !uptime\n"+
		"2024-05-01 12:30:00 ann in c1: !ping", r.Last())
}
