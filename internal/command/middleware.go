package command

import (
	"fmt"
	"time"

	"charfred/internal/permission"
	"charfred/internal/storage"

	"github.com/rs/zerolog/log"
)

// Middleware wraps a command (checks, logging, throttling).
type Middleware func(Command) Command

// GroupChecker reports whether a command group is switched off.
type GroupChecker interface {
	IsGroupDisabled(group string) bool
}

// WithGroupAccessCheck refuses commands whose group is disabled.
func WithGroupAccessCheck(groups GroupChecker) Middleware {
	return func(cmd Command) Command {
		return Wrap(cmd, func(ctx *MessageContext) error {
			if g := cmd.Group(); g != "" && groups.IsGroupDisabled(g) {
				return fmt.Errorf("%w: group %s", ErrDisabled, g)
			}
			return cmd.Run(ctx)
		})
	}
}

// WithGuildOnly refuses commands sent outside a guild.
func WithGuildOnly() Middleware {
	return func(cmd Command) Command {
		return Wrap(cmd, func(ctx *MessageContext) error {
			if ctx.GuildID() == "" {
				return ErrNoPrivateMessage
			}
			return cmd.Run(ctx)
		})
	}
}

// WithOwnerCheck refuses owner-only commands to everyone else.
func WithOwnerCheck(r *permission.Resolver) Middleware {
	return func(cmd Command) Command {
		if !IsOwnerOnly(cmd) {
			return cmd
		}
		return Wrap(cmd, func(ctx *MessageContext) error {
			if !r.IsOwner(ctx.AuthorID()) {
				return ErrNotOwner
			}
			return cmd.Run(ctx)
		})
	}
}

// WithPermissionNode gates node guarded commands through the resolver.
func WithPermissionNode(r *permission.Resolver) Middleware {
	return func(cmd Command) Command {
		node := NodeOf(cmd)
		if node == "" {
			return cmd
		}
		return Wrap(cmd, func(ctx *MessageContext) error {
			// owners pass without a role lookup
			if r.IsOwner(ctx.AuthorID()) {
				return cmd.Run(ctx)
			}
			actor, err := ctx.Actor()
			if err != nil {
				return fmt.Errorf("failed to resolve roles of %s: %w", ctx.AuthorID(), err)
			}
			if !r.Allowed(actor, node) {
				log.Warn().
					Str("user", ctx.AuthorID()).
					Str("node", node).
					Str("channel", ctx.ChannelID()).
					Msg("permission node check failed")
				return fmt.Errorf("%w: %s", ErrCheckFailure, node)
			}
			return cmd.Run(ctx)
		})
	}
}

// WithCooldown throttles each user per command. Owners are never throttled.
func WithCooldown(c *Cooldowns, r *permission.Resolver) Middleware {
	return func(cmd Command) Command {
		return Wrap(cmd, func(ctx *MessageContext) error {
			if r != nil && r.IsOwner(ctx.AuthorID()) {
				return cmd.Run(ctx)
			}
			if ok, wait := c.Allow(cmd.Name() + ":" + ctx.AuthorID()); !ok {
				return &CooldownError{RetryAfter: wait}
			}
			return cmd.Run(ctx)
		})
	}
}

// WithCommandLog records successful guild invocations in the command log.
func WithCommandLog(l *storage.CommandLog) Middleware {
	return func(cmd Command) Command {
		return Wrap(cmd, func(ctx *MessageContext) error {
			err := cmd.Run(ctx)
			if err != nil || ctx.GuildID() == "" || !l.Enabled() {
				return err
			}

			rec := storage.CommandHistoryRecord{
				ChannelID: ctx.ChannelID(),
				UserID:    ctx.AuthorID(),
				Command:   ctx.Invoked,
				Content:   ctx.Message.Content,
				Datetime:  time.Now(),
			}
			if ctx.Message.Author != nil {
				rec.Username = ctx.Message.Author.Username
			}
			if e := l.Append(ctx.GuildID(), rec); e != nil {
				log.Warn().Err(e).Str("command", ctx.Invoked).Msg("failed to log command")
			}
			return nil
		})
	}
}
