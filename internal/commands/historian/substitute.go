package historian

import (
	"errors"
	"strings"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/internal/discord"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// SuCommand runs a command as another user.
type SuCommand struct {
	invoker commands.Invoker
}

func (c *SuCommand) Name() string        { return "su" }
func (c *SuCommand) Description() string { return "Runs a command as another user" }
func (c *SuCommand) Aliases() []string   { return []string{} }
func (c *SuCommand) Group() string       { return "historian" }
func (c *SuCommand) OwnerOnly() bool     { return true }
func (c *SuCommand) Hidden() bool        { return true }

func (c *SuCommand) Run(ctx *command.MessageContext) error {
	if len(ctx.Args) == 0 {
		return command.Missing("user")
	}
	cmd := command.Tail(ctx.Raw, 1)
	if cmd == "" {
		return command.Missing("command")
	}

	msg := rejig(ctx, cmd)
	msg.Author, msg.Member = lookupUser(ctx, command.UserID(ctx.Args[0]))
	log.Info().Str("as", msg.Author.ID).Str("command", cmd).Msg("substituting user")
	return execute(ctx, c.invoker, msg, cmd)
}

// CastCommand runs a command in another channel.
type CastCommand struct {
	invoker commands.Invoker
}

func (c *CastCommand) Name() string        { return "cast" }
func (c *CastCommand) Description() string { return "Runs a command in another channel" }
func (c *CastCommand) Aliases() []string   { return []string{} }
func (c *CastCommand) Group() string       { return "historian" }
func (c *CastCommand) OwnerOnly() bool     { return true }
func (c *CastCommand) Hidden() bool        { return true }

func (c *CastCommand) Run(ctx *command.MessageContext) error {
	if len(ctx.Args) == 0 {
		return command.Missing("channel")
	}
	cmd := command.Tail(ctx.Raw, 1)
	if cmd == "" {
		return command.Missing("command")
	}

	msg := rejig(ctx, cmd)
	msg.ChannelID = command.ChannelID(ctx.Args[0])
	log.Info().Str("channel", msg.ChannelID).Str("command", cmd).Msg("casting command")
	return execute(ctx, c.invoker, msg, cmd)
}

// rejig copies the invoking message with cmd as its command.
func rejig(ctx *command.MessageContext, cmd string) *discordgo.Message {
	msg := *ctx.Message
	msg.Content = ctx.Prefix + cmd
	return &msg
}

func execute(ctx *command.MessageContext, invoker commands.Invoker, msg *discordgo.Message, cmd string) error {
	err := invoker.Execute(ctx.Ctx(), msg)
	if errors.Is(err, command.ErrCommandNotFound) {
		name, _, _ := strings.Cut(cmd, " ")
		return commands.Markdown(ctx, "No valid command for \"%s\" found!", name)
	}
	return err
}

// lookupUser prefers the guild member, so role checks see the substitute's
// roles, then the plain user.
func lookupUser(ctx *command.MessageContext, userID string) (*discordgo.User, *discordgo.Member) {
	s := ctx.Session
	if s != nil {
		if gid := ctx.GuildID(); gid != "" {
			if m, err := discord.GuildMember(s, gid, userID); err == nil && m.User != nil {
				return m.User, m
			}
		}
		if u, err := s.User(userID); err == nil {
			return u, nil
		}
	}
	return &discordgo.User{ID: userID, Username: userID}, nil
}
