package permission

import (
	"encoding/json"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	nodes     map[string]Requirement
	hierarchy []string
}

func (f fakeSource) Node(name string) (Requirement, bool) {
	r, ok := f.nodes[name]
	return r, ok
}

func (f fakeSource) Hierarchy() []string { return f.hierarchy }

var (
	roleEveryone = &discordgo.Role{ID: "100", Name: "@everyone", Position: 0}
	roleMember   = &discordgo.Role{ID: "101", Name: "Member", Position: 1}
	roleMod      = &discordgo.Role{ID: "102", Name: "Mod", Position: 2}
	roleDJ       = &discordgo.Role{ID: "103", Name: "DJ", Position: 3}
	roleAdmin    = &discordgo.Role{ID: "104", Name: "Admin", Position: 4}
	guildRoles   = []*discordgo.Role{roleEveryone, roleMember, roleMod, roleDJ, roleAdmin}
)

func newResolver(nodes map[string]Requirement, hierarchy ...string) *Resolver {
	return NewResolver(fakeSource{nodes: nodes, hierarchy: hierarchy}, func(id string) bool {
		return id == "owner"
	})
}

func actor(id string, roles ...*discordgo.Role) Actor {
	return Actor{UserID: id, Roles: roles, GuildRoles: guildRoles}
}

func TestOwnerAlwaysAllowed(t *testing.T) {
	r := newResolver(nil)
	assert.True(t, r.Allowed(actor("owner"), "does.not.exist"))
	assert.True(t, r.IsOwner("owner"))
	assert.False(t, r.IsOwner("someone"))
}

func TestMissingNodeIsDenied(t *testing.T) {
	r := newResolver(map[string]Requirement{}, "Admin")
	assert.False(t, r.Allowed(actor("u1", roleAdmin), "admin.uptime"))
}

func TestOwnerOnlyNode(t *testing.T) {
	r := newResolver(map[string]Requirement{"admin.cfg": OwnerOnly()}, "Member", "Mod", "Admin")
	assert.False(t, r.Allowed(actor("u1", roleAdmin), "admin.cfg"))
	assert.True(t, r.Allowed(actor("owner"), "admin.cfg"))
}

func TestEveryoneNode(t *testing.T) {
	r := newResolver(map[string]Requirement{"core.help": Open()})
	assert.True(t, r.Allowed(actor("u1"), "core.help"))
	assert.True(t, r.Allowed(Actor{UserID: "u2"}, "core.help"))
}

func TestRoleGatedNode(t *testing.T) {
	nodes := map[string]Requirement{"process.status": MinRole("Mod")}
	r := newResolver(nodes, "Member", "Mod", "Admin")

	assert.True(t, r.Allowed(actor("u1", roleMember, roleAdmin), "process.status"))
	assert.True(t, r.Allowed(actor("u2", roleMod), "process.status"))
	assert.False(t, r.Allowed(actor("u3", roleMember), "process.status"))
	assert.False(t, r.Allowed(actor("u4"), "process.status"))
}

func TestRoleOutsideHierarchyDoesNotCount(t *testing.T) {
	nodes := map[string]Requirement{"process.status": MinRole("Mod")}

	// DJ ranks above Mod in the guild but is not listed.
	r := newResolver(nodes, "Member", "Mod")
	assert.False(t, r.Allowed(actor("u1", roleDJ), "process.status"))
	assert.False(t, r.Allowed(actor("u1", roleMember, roleDJ), "process.status"))

	// Holding the exact required role is not enough when it is unlisted.
	r = newResolver(nodes, "Member", "Admin")
	assert.False(t, r.Allowed(actor("u2", roleMod), "process.status"))
}

func TestUnknownRequiredRoleDenies(t *testing.T) {
	r := newResolver(map[string]Requirement{"x": MinRole("Ghost")}, "Admin")
	assert.False(t, r.Allowed(actor("u1", roleAdmin), "x"))
}

func TestHierarchyOrderDoesNotMatter(t *testing.T) {
	nodes := map[string]Requirement{"x": MinRole("Mod")}
	r := newResolver(nodes, "Admin", "Member", "Mod")
	assert.True(t, r.Allowed(actor("u1", roleAdmin, roleMember), "x"))
}

func TestRoleLessTieBreak(t *testing.T) {
	older := &discordgo.Role{ID: "5", Name: "a", Position: 3}
	newer := &discordgo.Role{ID: "900", Name: "b", Position: 3}
	assert.True(t, RoleLess(newer, older))
	assert.False(t, RoleLess(older, newer))
	assert.True(t, RoleLess(roleMember, roleMod))
}

func TestHighestRole(t *testing.T) {
	top := HighestRole([]*discordgo.Role{roleAdmin, roleMember, nil}, []string{"Member"})
	require.NotNil(t, top)
	assert.Equal(t, "Member", top.Name)
	assert.Nil(t, HighestRole([]*discordgo.Role{roleAdmin}, nil))
}

func TestMemberRoles(t *testing.T) {
	roles := MemberRoles(guildRoles, []string{"104", "999", "101"})
	require.Len(t, roles, 2)
	assert.Equal(t, "Admin", roles[0].Name)
	assert.Equal(t, "Member", roles[1].Name)
}

func TestRequirementJSON(t *testing.T) {
	in := map[string]Requirement{
		"a": OwnerOnly(),
		"b": Open(),
		"c": MinRole("Mod"),
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":"@everyone","c":"Mod"}`, string(raw))

	var out map[string]Requirement
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestParseInput(t *testing.T) {
	assert.Equal(t, OwnerOnly(), ParseInput("owner_only"))
	assert.Equal(t, Open(), ParseInput("everyone"))
	assert.Equal(t, Open(), ParseInput("Everyone"))
	assert.Equal(t, Open(), ParseInput("@everyone"))
	assert.Equal(t, MinRole("Mod"), ParseInput(" Mod "))
	assert.Equal(t, "Owner only", OwnerOnly().String())
	assert.Equal(t, "Mod", MinRole("Mod").String())
}
