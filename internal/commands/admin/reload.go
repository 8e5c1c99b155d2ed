package admin

import (
	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/internal/discord"

	"github.com/rs/zerolog/log"
)

type CfgReloadCommand struct {
	events *discord.EventBus
}

func (c *CfgReloadCommand) Name() string        { return "cfgreload" }
func (c *CfgReloadCommand) Description() string { return "Reloads the settings file from disk" }
func (c *CfgReloadCommand) Aliases() []string   { return []string{} }
func (c *CfgReloadCommand) Group() string       { return "admin" }
func (c *CfgReloadCommand) OwnerOnly() bool     { return true }
func (c *CfgReloadCommand) Hidden() bool        { return true }

func (c *CfgReloadCommand) Run(ctx *command.MessageContext) error {
	if err := ctx.Storage.Reload(); err != nil {
		return err
	}
	if c.events != nil && !c.events.Publish(discord.SystemEvent{Type: discord.SystemEventConfigReloaded, Source: ctx.AuthorID()}) {
		log.Warn().Msg("event bus full, config reload not announced")
	}
	return commands.Markdown(ctx, "# Locked and reloaded!")
}

type DebugHookCommand struct{}

func (c *DebugHookCommand) Name() string        { return "debughook" }
func (c *DebugHookCommand) Description() string { return "Shows or sets the webhook command errors are sent to" }
func (c *DebugHookCommand) Aliases() []string   { return []string{} }
func (c *DebugHookCommand) Group() string       { return "admin" }
func (c *DebugHookCommand) OwnerOnly() bool     { return true }
func (c *DebugHookCommand) Hidden() bool        { return true }

func (c *DebugHookCommand) Run(ctx *command.MessageContext) error {
	url := ctx.Arg(0)
	if url == "" {
		hook := ctx.Storage.Hook()
		if hook == "" {
			return commands.Markdown(ctx, "< No debug webhook set! >")
		}
		return commands.Markdown(ctx, "> Current debug webhook:\n> %s", hook)
	}
	if err := ctx.Storage.SetHook(url); err != nil {
		return err
	}
	log.Info().Msg("debug webhook changed")
	return commands.Markdown(ctx, "> Set debug webhook to:\n> %s", url)
}
