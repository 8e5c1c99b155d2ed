package core

import (
	"fmt"
	"sort"
	"strings"

	"charfred/internal/command"
	"charfred/internal/commands"
)

type HelpCommand struct {
	registry *command.Registry
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Lists the available commands, or shows one in detail" }
func (c *HelpCommand) Aliases() []string   { return []string{} }
func (c *HelpCommand) Group() string       { return "core" }

func (c *HelpCommand) Run(ctx *command.MessageContext) error {
	if len(ctx.Args) > 0 {
		path := strings.Join(ctx.Args, " ")
		e, ok := c.registry.Lookup(path)
		if !ok {
			return commands.Markdown(ctx, "> No command called \"%s\" found!", path)
		}
		return commands.MarkdownText(ctx, describe(ctx.Prefix, e))
	}
	return commands.MarkdownText(ctx, overview(ctx.Prefix, c.registry.All()))
}

// overview lists the visible top level commands by group.
func overview(prefix string, entries []*command.Entry) string {
	byGroup := map[string][]*command.Entry{}
	for _, e := range entries {
		if command.IsHidden(e.Command) {
			continue
		}
		g := e.Command.Group()
		if g == "" {
			g = "misc"
		}
		byGroup[g] = append(byGroup[g], e)
	}

	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	var sb strings.Builder
	for i, g := range groups {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "# %s\n", g)
		for _, e := range byGroup[g] {
			fmt.Fprintf(&sb, "  %s%-12s %s\n", prefix, e.Qualified, e.Command.Description())
		}
	}
	fmt.Fprintf(&sb, "\n> Type %shelp <command> for more info on a command.", prefix)
	return sb.String()
}

func describe(prefix string, e *command.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s%s\n", prefix, e.Qualified)
	if aliases := e.Command.Aliases(); len(aliases) > 0 {
		fmt.Fprintf(&sb, "> Aliases: %s\n", strings.Join(aliases, ", "))
	}
	if command.IsOwnerOnly(e.Command) {
		sb.WriteString("< Owner only >\n")
	} else if node := command.NodeOf(e.Command); node != "" {
		fmt.Fprintf(&sb, "> Permission node: %s\n", node)
	}
	if d := e.Command.Description(); d != "" {
		sb.WriteString(d + "\n")
	}
	if subs := e.Subcommands(); len(subs) > 0 {
		sb.WriteString("\nSubcommands:\n")
		for _, s := range subs {
			fmt.Fprintf(&sb, "  %s%s  %s\n", prefix, s.Qualified, s.Command.Description())
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
