package discord

import (
	"fmt"

	"charfred/internal/permission"

	"github.com/bwmarrin/discordgo"
)

// actorFor returns a lazy lookup of the author's roles. Guild roles come from
// the state cache when available, falling back to the REST API.
func (b *Bot) actorFor(msg *discordgo.Message) func() (permission.Actor, error) {
	return func() (permission.Actor, error) {
		return ResolveActor(b.dg, msg)
	}
}

// ResolveActor builds the permission view of msg's author.
func ResolveActor(s *discordgo.Session, msg *discordgo.Message) (permission.Actor, error) {
	actor := permission.Actor{UserID: authorID(msg)}
	if msg.GuildID == "" || s == nil {
		return actor, nil
	}

	roles, err := guildRoles(s, msg.GuildID)
	if err != nil {
		return actor, err
	}
	actor.GuildRoles = roles

	var roleIDs []string
	if msg.Member != nil {
		roleIDs = msg.Member.Roles
	} else {
		member, err := GuildMember(s, msg.GuildID, actor.UserID)
		if err != nil {
			return actor, err
		}
		roleIDs = member.Roles
	}
	actor.Roles = permission.MemberRoles(roles, roleIDs)
	return actor, nil
}

func guildRoles(s *discordgo.Session, guildID string) ([]*discordgo.Role, error) {
	if s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
			return g.Roles, nil
		}
	}
	roles, err := s.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles of guild %s: %w", guildID, err)
	}
	return roles, nil
}

// GuildMember looks up a member through the state cache, then the API.
func GuildMember(s *discordgo.Session, guildID, userID string) (*discordgo.Member, error) {
	if s.State != nil {
		if m, err := s.State.Member(guildID, userID); err == nil {
			return m, nil
		}
	}
	m, err := s.GuildMember(guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %s: %w", userID, err)
	}
	return m, nil
}
