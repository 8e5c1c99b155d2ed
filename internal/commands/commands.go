// Package commands holds what the command groups share: their dependencies
// and small reply helpers.
package commands

import (
	"context"
	"fmt"
	"time"

	"charfred/internal/command"
	"charfred/internal/discord"
	"charfred/internal/history"
	"charfred/internal/storage"
	"charfred/pkg/jobmgr"

	"github.com/bwmarrin/discordgo"
)

// Invoker runs commands for messages the bot did not just receive.
// *discord.Dispatcher satisfies it.
type Invoker interface {
	Reinvoke(ctx context.Context, msg *discordgo.Message)
	Execute(ctx context.Context, msg *discordgo.Message) error
}

// Deps are the services command groups are built from.
type Deps struct {
	Registry   *command.Registry
	CommandLog *storage.CommandLog
	Historian  *history.Historian
	Invoker    Invoker
	Events     *discord.EventBus
	Jobs       *jobmgr.Manager
	Started    func() time.Time
}

// Markdown sends a formatted markdown reply.
func Markdown(ctx *command.MessageContext, format string, a ...any) error {
	return MarkdownText(ctx, fmt.Sprintf(format, a...))
}

// MarkdownText sends an already built markdown reply as is.
func MarkdownText(ctx *command.MessageContext, content string) error {
	_, err := ctx.Reply.SendMarkdown(content)
	return err
}

// Self returns the display name of the bot account.
func Self(ctx *command.MessageContext) string {
	s := ctx.Session
	if s == nil || s.State == nil || s.State.User == nil {
		return "me"
	}
	return s.State.User.Username
}
