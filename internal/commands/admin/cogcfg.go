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

type CogCfgCommand struct{}

func (c *CogCfgCommand) Name() string        { return "cogcfg" }
func (c *CogCfgCommand) Description() string { return "Lists the per-group settings" }
func (c *CogCfgCommand) Aliases() []string   { return []string{"cogcfgs"} }
func (c *CogCfgCommand) Group() string       { return "admin" }
func (c *CogCfgCommand) OwnerOnly() bool     { return true }
func (c *CogCfgCommand) Hidden() bool        { return true }

func (c *CogCfgCommand) Subcommands() []command.Command {
	return []command.Command{&CogCfgEditCommand{}}
}

func (c *CogCfgCommand) Run(ctx *command.MessageContext) error {
	cfgs := ctx.Storage.CogSettings()
	if len(cfgs) == 0 {
		return commands.Markdown(ctx, "< No settings registered! >")
	}
	lines := make([]string, 0, len(cfgs))
	for _, cs := range cfgs {
		lines = append(lines, fmt.Sprintf("%s:\n\t%s", cs.Name, cs.Value))
	}
	return commands.MarkdownText(ctx, strings.Join(lines, "\n"))
}

type CogCfgEditCommand struct{}

func (c *CogCfgEditCommand) Name() string        { return "edit" }
func (c *CogCfgEditCommand) Description() string { return "Changes a setting" }
func (c *CogCfgEditCommand) Aliases() []string   { return []string{} }
func (c *CogCfgEditCommand) Group() string       { return "" }

func (c *CogCfgEditCommand) Run(ctx *command.MessageContext) error {
	name := ctx.Arg(0)
	if name == "" {
		return command.Missing("cfg")
	}
	cs, ok := ctx.Storage.CogSetting(name)
	if !ok {
		return commands.Markdown(ctx, "> %s is not registered!", name)
	}

	prompt := cs.Prompt
	if prompt == "" {
		prompt = fmt.Sprintf("# Please enter a new value for %s.", name)
	}
	answer, timedOut, err := ctx.Reply.PromptInput(ctx.Ctx(), prompt)
	if err != nil || timedOut {
		return err
	}

	value := strings.TrimSpace(answer)
	if err := ctx.Storage.SetCogSetting(name, value); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return commands.Markdown(ctx, "> %s is not registered!", name)
		}
		return err
	}
	log.Info().Str("setting", name).Str("value", value).Msg("setting edited")
	return commands.Markdown(ctx, "# Edits to %s saved successfully!", name)
}
