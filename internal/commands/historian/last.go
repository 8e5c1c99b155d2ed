package historian

import (
	"fmt"
	"strconv"
	"strings"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/internal/discord"
	"charfred/internal/history"

	"github.com/rs/zerolog/log"
)

const minMapSize = 2

type LastCommand struct {
	hist    *history.Historian
	invoker commands.Invoker
}

func (c *LastCommand) Name() string        { return "last" }
func (c *LastCommand) Description() string { return "Runs your last command in this channel again" }
func (c *LastCommand) Aliases() []string   { return []string{"!!", "again"} }
func (c *LastCommand) Group() string       { return "historian" }

func (c *LastCommand) Run(ctx *command.MessageContext) error {
	self := ctx.Message.ID
	same := history.SameAuthorAndChannel(ctx.AuthorID(), ctx.ChannelID())
	last := c.hist.FindLast(func(e *history.Entry) bool {
		return e.Inbound.ID != self && same(e)
	})
	if last == nil {
		log.Info().Str("channel", ctx.ChannelID()).Msg("no last command found")
		return commands.Markdown(ctx, "> No recent command found in current channel!")
	}

	// invocations of last itself never stay in the map
	c.hist.Forget(self)
	log.Info().Str("message", last.Inbound.ID).Msg("last command found, reinvoking")
	c.invoker.Reinvoke(ctx.Ctx(), last.Inbound)
	return nil
}

type CmdMapCommand struct {
	hist   *history.Historian
	events *discord.EventBus
}

func (c *CmdMapCommand) Name() string        { return "cmdmap" }
func (c *CmdMapCommand) Description() string { return "Shows the commands whose replies are tracked" }
func (c *CmdMapCommand) Aliases() []string   { return []string{} }
func (c *CmdMapCommand) Group() string       { return "historian" }
func (c *CmdMapCommand) OwnerOnly() bool     { return true }
func (c *CmdMapCommand) Hidden() bool        { return true }

func (c *CmdMapCommand) Subcommands() []command.Command {
	return []command.Command{&CmdMapClearCommand{hist: c.hist, events: c.events}}
}

func (c *CmdMapCommand) Run(ctx *command.MessageContext) error {
	entries := c.hist.Entries()
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Command map (%d/%d)", len(entries), c.hist.MaxSize())
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%s: %q -> %d output(s)", e.Inbound.ID, e.Inbound.Content, len(e.Outputs()))
	}
	return commands.MarkdownText(ctx, sb.String())
}

type CmdMapClearCommand struct {
	hist   *history.Historian
	events *discord.EventBus
}

func (c *CmdMapClearCommand) Name() string        { return "clear" }
func (c *CmdMapClearCommand) Description() string { return "Clears the command map, optionally setting a new size" }
func (c *CmdMapClearCommand) Aliases() []string   { return []string{} }
func (c *CmdMapClearCommand) Group() string       { return "" }
func (c *CmdMapClearCommand) Hidden() bool        { return true }

func (c *CmdMapClearCommand) Run(ctx *command.MessageContext) error {
	size := history.DefaultSize
	if arg := ctx.Arg(0); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return command.BadArgument("invalid size %q", arg)
		}
		size = n
	}

	if size < minMapSize {
		log.Warn().Int("size", size).Msg("command map clear with insufficient size")
		return commands.Markdown(ctx, "< Insufficient maximum size, you can't even store a single command in there! >")
	}
	if err := c.hist.Reset(size); err != nil {
		return err
	}
	if c.events != nil {
		c.events.Publish(discord.SystemEvent{Type: discord.SystemEventCommandMapReset, Source: ctx.AuthorID()})
	}
	return commands.Markdown(ctx, "Command map cleared, new maximum size set to %d!", size)
}
