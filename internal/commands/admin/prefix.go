package admin

import (
	"errors"
	"fmt"
	"strings"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/internal/storage"

	"github.com/rs/zerolog/log"
)

type PrefixCommand struct{}

func (c *PrefixCommand) Name() string        { return "prefix" }
func (c *PrefixCommand) Description() string { return "Lists the command prefixes" }
func (c *PrefixCommand) Aliases() []string   { return []string{} }
func (c *PrefixCommand) Group() string       { return "admin" }

func (c *PrefixCommand) Subcommands() []command.Command {
	return []command.Command{&PrefixAddCommand{}, &PrefixRemoveCommand{}}
}

func (c *PrefixCommand) Run(ctx *command.MessageContext) error {
	return commands.Markdown(ctx, "> Current prefixes: \n\t> %s \n> Mentioning %s works too!",
		strings.Join(ctx.Storage.Prefixes(), "\n> "), commands.Self(ctx))
}

type PrefixAddCommand struct{}

func (c *PrefixAddCommand) Name() string        { return "add" }
func (c *PrefixAddCommand) Description() string { return "Registers one or more prefixes" }
func (c *PrefixAddCommand) Aliases() []string   { return []string{} }
func (c *PrefixAddCommand) Group() string       { return "" }
func (c *PrefixAddCommand) OwnerOnly() bool     { return true }

func (c *PrefixAddCommand) Run(ctx *command.MessageContext) error {
	if len(ctx.Args) == 0 {
		return command.Missing("prefix")
	}
	var lines []string
	for _, p := range ctx.Args {
		err := ctx.Storage.AddPrefix(p)
		switch {
		case errors.Is(err, storage.ErrExists):
			lines = append(lines, fmt.Sprintf("> '%s' is already registered!", p))
		case err != nil:
			return err
		default:
			log.Info().Str("prefix", p).Msg("prefix registered")
			lines = append(lines, fmt.Sprintf("# '%s' has been registered!", p))
		}
	}
	return commands.MarkdownText(ctx, strings.Join(lines, "\n"))
}

type PrefixRemoveCommand struct{}

func (c *PrefixRemoveCommand) Name() string        { return "remove" }
func (c *PrefixRemoveCommand) Description() string { return "Unregisters one or more prefixes" }
func (c *PrefixRemoveCommand) Aliases() []string   { return []string{} }
func (c *PrefixRemoveCommand) Group() string       { return "" }
func (c *PrefixRemoveCommand) OwnerOnly() bool     { return true }

func (c *PrefixRemoveCommand) Run(ctx *command.MessageContext) error {
	if len(ctx.Args) == 0 {
		return command.Missing("prefix")
	}
	var lines []string
	for _, p := range ctx.Args {
		err := ctx.Storage.RemovePrefix(p)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			lines = append(lines, fmt.Sprintf("> '%s' is not a registered prefix!", p))
		case err != nil:
			return err
		default:
			log.Info().Str("prefix", p).Msg("prefix unregistered")
			lines = append(lines, fmt.Sprintf("# '%s' has been unregistered!", p))
		}
	}
	return commands.MarkdownText(ctx, strings.Join(lines, "\n"))
}
