package historian

import (
	"fmt"
	"strings"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/internal/storage"
	"charfred/pkg/util"

	"github.com/rs/zerolog/log"
)

const historyDateTpl = "YYYY-MM-DD hh:mm:ss"

type CmdLoggingCommand struct {
	log *storage.CommandLog
}

func (c *CmdLoggingCommand) Name() string        { return "cmdlogging" }
func (c *CmdLoggingCommand) Description() string { return "Shows whether commands are being logged" }
func (c *CmdLoggingCommand) Aliases() []string   { return []string{} }
func (c *CmdLoggingCommand) Group() string       { return "historian" }
func (c *CmdLoggingCommand) OwnerOnly() bool     { return true }
func (c *CmdLoggingCommand) Hidden() bool        { return true }

func (c *CmdLoggingCommand) Subcommands() []command.Command {
	return []command.Command{&CmdLoggingToggleCommand{log: c.log}}
}

func (c *CmdLoggingCommand) Run(ctx *command.MessageContext) error {
	return commands.Markdown(ctx, "# Logging is currently %s", activity(c.log.Enabled()))
}

type CmdLoggingToggleCommand struct {
	log *storage.CommandLog
}

func (c *CmdLoggingToggleCommand) Name() string        { return "toggle" }
func (c *CmdLoggingToggleCommand) Description() string { return "Turns command logging on or off" }
func (c *CmdLoggingToggleCommand) Aliases() []string   { return []string{} }
func (c *CmdLoggingToggleCommand) Group() string       { return "" }
func (c *CmdLoggingToggleCommand) Hidden() bool        { return true }

func (c *CmdLoggingToggleCommand) Run(ctx *command.MessageContext) error {
	state := "off"
	if c.log.Toggle() {
		state = "on"
	}
	log.Info().Str("state", state).Msg("toggled command logging")
	return commands.Markdown(ctx, "# Toggled command logging %s!", state)
}

func activity(enabled bool) string {
	if enabled {
		return "active!"
	}
	return "inactive!"
}

type HistoryCommand struct {
	log *storage.CommandLog
}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Description() string { return "Lists the commands recently used in this server" }
func (c *HistoryCommand) Aliases() []string   { return []string{} }
func (c *HistoryCommand) Group() string       { return "historian" }
func (c *HistoryCommand) Node() string        { return "historian.history" }

func (c *HistoryCommand) Run(ctx *command.MessageContext) error {
	records := c.log.Fetch(ctx.GuildID())
	if len(records) == 0 {
		return commands.Markdown(ctx, "< No commands logged yet! >")
	}

	var sb strings.Builder
	sb.WriteString("# Recent commands:")
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		fmt.Fprintf(&sb, "\n%s %s in %s: %s",
			util.FormatDateTpl(r.Datetime.UnixMilli(), historyDateTpl), r.Username, r.ChannelID, r.Content)
	}
	return commands.MarkdownText(ctx, sb.String())
}

// Commands returns the historian command group.
func Commands(deps commands.Deps) []command.Command {
	return []command.Command{
		&LastCommand{hist: deps.Historian, invoker: deps.Invoker},
		&CmdMapCommand{hist: deps.Historian, events: deps.Events},
		&SuCommand{invoker: deps.Invoker},
		&CastCommand{invoker: deps.Invoker},
		&CmdLoggingCommand{log: deps.CommandLog},
		&HistoryCommand{log: deps.CommandLog},
	}
}
