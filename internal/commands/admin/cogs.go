package admin

import (
	"fmt"
	"slices"
	"strings"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/pkg/jobmgr"

	"github.com/rs/zerolog/log"
)

// essentialGroup holds the commands needed to turn groups back on.
const essentialGroup = "admin"

type CogsCommand struct {
	registry *command.Registry
}

func (c *CogsCommand) Name() string        { return "cogs" }
func (c *CogsCommand) Description() string { return "Lists command groups and whether they are enabled" }
func (c *CogsCommand) Aliases() []string   { return []string{"cog"} }
func (c *CogsCommand) Group() string       { return "admin" }
func (c *CogsCommand) OwnerOnly() bool     { return true }
func (c *CogsCommand) Hidden() bool        { return true }

func (c *CogsCommand) Subcommands() []command.Command {
	return []command.Command{
		&CogsToggleCommand{registry: c.registry, enable: true},
		&CogsToggleCommand{registry: c.registry, enable: false},
	}
}

func (c *CogsCommand) Run(ctx *command.MessageContext) error {
	groups := c.registry.Groups()
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		if ctx.Storage.IsGroupDisabled(g) {
			lines = append(lines, fmt.Sprintf("< %s: disabled >", g))
		} else {
			lines = append(lines, fmt.Sprintf("# %s: enabled", g))
		}
	}
	return commands.MarkdownText(ctx, strings.Join(lines, "\n"))
}

// CogsToggleCommand is "cogs enable" or "cogs disable".
type CogsToggleCommand struct {
	registry *command.Registry
	enable   bool
}

func (c *CogsToggleCommand) Name() string {
	if c.enable {
		return "enable"
	}
	return "disable"
}

func (c *CogsToggleCommand) Description() string {
	if c.enable {
		return "Enables a command group"
	}
	return "Disables a command group"
}

func (c *CogsToggleCommand) Aliases() []string { return []string{} }
func (c *CogsToggleCommand) Group() string     { return "" }

func (c *CogsToggleCommand) Run(ctx *command.MessageContext) error {
	group := ctx.Arg(0)
	if group == "" {
		return command.Missing("group")
	}
	if !slices.Contains(c.registry.Groups(), group) {
		return commands.Markdown(ctx, "< No such group: %s >", group)
	}

	if c.enable {
		if err := ctx.Storage.EnableGroup(group); err != nil {
			return err
		}
		log.Info().Str("group", group).Msg("command group enabled")
		return commands.Markdown(ctx, "# %s enabled!", group)
	}

	if group == essentialGroup {
		return commands.Markdown(ctx, "< %s can't be disabled! >", group)
	}
	if err := ctx.Storage.DisableGroup(group); err != nil {
		return err
	}
	log.Info().Str("group", group).Msg("command group disabled")
	return commands.Markdown(ctx, "# %s disabled!", group)
}

type JobsCommand struct {
	jobs *jobmgr.Manager
}

func (c *JobsCommand) Name() string        { return "jobs" }
func (c *JobsCommand) Description() string { return "Lists the running background jobs" }
func (c *JobsCommand) Aliases() []string   { return []string{} }
func (c *JobsCommand) Group() string       { return "admin" }
func (c *JobsCommand) OwnerOnly() bool     { return true }
func (c *JobsCommand) Hidden() bool        { return true }

func (c *JobsCommand) Run(ctx *command.MessageContext) error {
	if c.jobs == nil {
		return commands.Markdown(ctx, "> No jobs are running.")
	}
	return commands.Markdown(ctx, "> "+c.jobs.Status())
}

// Commands returns the admin command group.
func Commands(deps commands.Deps) []command.Command {
	return []command.Command{
		&PrefixCommand{},
		&PermissionsCommand{},
		&CogCfgCommand{},
		&CfgReloadCommand{events: deps.Events},
		&DebugHookCommand{},
		&CogsCommand{registry: deps.Registry},
		&JobsCommand{jobs: deps.Jobs},
	}
}
