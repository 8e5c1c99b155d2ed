// Package permission decides whether a guild member may use a permission
// node. A node maps to a Requirement; members are compared by the guild's own
// role ordering, looking only at roles listed in the configured hierarchy.
package permission

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Actor is the member asking to run a command, together with the roles their
// guild defines.
type Actor struct {
	UserID     string
	Roles      []*discordgo.Role
	GuildRoles []*discordgo.Role
}

// Source provides the stored node requirements and the hierarchy.
type Source interface {
	Node(name string) (Requirement, bool)
	Hierarchy() []string
}

// OwnerFunc reports whether a user id belongs to a bot owner.
type OwnerFunc func(userID string) bool

// Resolver evaluates nodes against a Source. It holds no state of its own.
type Resolver struct {
	source  Source
	isOwner OwnerFunc
}

// NewResolver creates a Resolver. isOwner may be nil, in which case nobody is
// treated as owner.
func NewResolver(source Source, isOwner OwnerFunc) *Resolver {
	if isOwner == nil {
		isOwner = func(string) bool { return false }
	}
	return &Resolver{source: source, isOwner: isOwner}
}

// IsOwner reports whether userID belongs to a bot owner.
func (r *Resolver) IsOwner(userID string) bool {
	return r.isOwner(userID)
}

// Allowed reports whether actor may use node. Unknown nodes are denied.
func (r *Resolver) Allowed(actor Actor, node string) bool {
	if r.isOwner(actor.UserID) {
		return true
	}

	req, ok := r.source.Node(node)
	if !ok {
		return false
	}

	switch req.Kind() {
	case KindEveryone:
		return true
	case KindRole:
		return r.meetsRole(actor, req.Role())
	default:
		return false
	}
}

func (r *Resolver) meetsRole(actor Actor, roleName string) bool {
	minRole := findRole(actor.GuildRoles, roleName)
	if minRole == nil {
		return false
	}

	top := HighestRole(actor.Roles, r.source.Hierarchy())
	if top == nil {
		return false
	}
	return !RoleLess(top, minRole)
}

// HighestRole returns the highest ranked role among roles whose name appears
// in hierarchy, or nil.
func HighestRole(roles []*discordgo.Role, hierarchy []string) *discordgo.Role {
	if len(hierarchy) == 0 {
		return nil
	}
	listed := make(map[string]struct{}, len(hierarchy))
	for _, name := range hierarchy {
		listed[name] = struct{}{}
	}

	var top *discordgo.Role
	for _, role := range roles {
		if role == nil {
			continue
		}
		if _, ok := listed[role.Name]; !ok {
			continue
		}
		if top == nil || RoleLess(top, role) {
			top = role
		}
	}
	return top
}

// RoleLess reports whether a ranks below b in the guild role list. Roles are
// ordered by position; on equal positions the older role (lower snowflake)
// ranks higher, as the Discord client shows them.
func RoleLess(a, b *discordgo.Role) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	ai, aerr := strconv.ParseUint(a.ID, 10, 64)
	bi, berr := strconv.ParseUint(b.ID, 10, 64)
	if aerr != nil || berr != nil {
		return a.ID > b.ID
	}
	return ai > bi
}

func findRole(roles []*discordgo.Role, name string) *discordgo.Role {
	for _, role := range roles {
		if role != nil && role.Name == name {
			return role
		}
	}
	return nil
}

// MemberRoles maps a member's role ids onto the guild's role objects,
// skipping ids the guild no longer defines.
func MemberRoles(guildRoles []*discordgo.Role, roleIDs []string) []*discordgo.Role {
	byID := make(map[string]*discordgo.Role, len(guildRoles))
	for _, role := range guildRoles {
		if role != nil {
			byID[role.ID] = role
		}
	}
	out := make([]*discordgo.Role, 0, len(roleIDs))
	for _, id := range roleIDs {
		if role, ok := byID[id]; ok {
			out = append(out, role)
		}
	}
	return out
}
