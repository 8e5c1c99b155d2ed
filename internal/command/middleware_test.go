package command

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"charfred/internal/permission"
	"charfred/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nodeSource struct {
	nodes     map[string]permission.Requirement
	hierarchy []string
}

func (s nodeSource) Node(name string) (permission.Requirement, bool) {
	r, ok := s.nodes[name]
	return r, ok
}

func (s nodeSource) Hierarchy() []string { return s.hierarchy }

type disabledGroups map[string]bool

func (d disabledGroups) IsGroupDisabled(g string) bool { return d[g] }

func ctxFor(userID, guildID string) *MessageContext {
	return &MessageContext{
		Message: &discordgo.Message{
			ID:        "m1",
			GuildID:   guildID,
			ChannelID: "c1",
			Content:   "!status",
			Author:    &discordgo.User{ID: userID, Username: "user" + userID},
		},
		Invoked: "status",
	}
}

func noop(b Base) *Func {
	return &Func{Base: b, Fn: func(*MessageContext) error { return nil }}
}

func TestGuildOnlyAndGroupCheck(t *testing.T) {
	cmd := WithGroupAccessCheck(disabledGroups{"process": true})(
		WithGuildOnly()(noop(Base{CmdName: "status", CmdGroup: "process"})))
	assert.ErrorIs(t, cmd.Run(ctxFor("1", "g")), ErrDisabled)

	cmd = WithGuildOnly()(noop(Base{CmdName: "status"}))
	assert.ErrorIs(t, cmd.Run(ctxFor("1", "")), ErrNoPrivateMessage)
	assert.NoError(t, cmd.Run(ctxFor("1", "g")))
}

func TestOwnerAndNodeChecks(t *testing.T) {
	guildRoles := []*discordgo.Role{
		{ID: "10", Name: "Member", Position: 1},
		{ID: "20", Name: "Mod", Position: 2},
	}
	src := nodeSource{
		nodes:     map[string]permission.Requirement{"process.status": permission.MinRole("Mod")},
		hierarchy: []string{"Member", "Mod"},
	}
	r := permission.NewResolver(src, func(id string) bool { return id == "owner" })

	ownerCmd := WithOwnerCheck(r)(noop(Base{CmdName: "cfgreload", Owner: true}))
	assert.ErrorIs(t, ownerCmd.Run(ctxFor("1", "g")), ErrNotOwner)
	assert.NoError(t, ownerCmd.Run(ctxFor("owner", "g")))

	nodeCmd := WithPermissionNode(r)(noop(Base{CmdName: "status", CmdNode: "process.status"}))
	member := ctxFor("1", "g")
	member.ResolveActor = func() (permission.Actor, error) {
		return permission.Actor{UserID: "1", Roles: guildRoles[:1], GuildRoles: guildRoles}, nil
	}
	err := nodeCmd.Run(member)
	assert.ErrorIs(t, err, ErrCheckFailure)
	assert.True(t, Denied(err))

	mod := ctxFor("2", "g")
	mod.ResolveActor = func() (permission.Actor, error) {
		return permission.Actor{UserID: "2", Roles: guildRoles[1:], GuildRoles: guildRoles}, nil
	}
	assert.NoError(t, nodeCmd.Run(mod))

	failing := ctxFor("3", "g")
	failing.ResolveActor = func() (permission.Actor, error) { return permission.Actor{}, errors.New("boom") }
	err = nodeCmd.Run(failing)
	require.Error(t, err)
	assert.Equal(t, KindInternal, Classify(err))

	owner := ctxFor("owner", "g")
	owner.ResolveActor = func() (permission.Actor, error) {
		t.Error("roles of an owner should not be looked up")
		return permission.Actor{}, errors.New("boom")
	}
	assert.NoError(t, nodeCmd.Run(owner))
}

func TestCooldownMiddleware(t *testing.T) {
	cds := NewCooldowns(0.001, 2)
	r := permission.NewResolver(nodeSource{}, func(id string) bool { return id == "owner" })
	cmd := WithCooldown(cds, r)(noop(Base{CmdName: "status"}))

	require.NoError(t, cmd.Run(ctxFor("1", "g")))
	require.NoError(t, cmd.Run(ctxFor("1", "g")))
	err := cmd.Run(ctxFor("1", "g"))
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Greater(t, cd.RetryAfter, time.Duration(0))
	assert.Equal(t, KindCooldown, Classify(err))

	require.NoError(t, cmd.Run(ctxFor("2", "g")), "buckets are per user")
	for i := 0; i < 5; i++ {
		require.NoError(t, cmd.Run(ctxFor("owner", "g")))
	}
}

func TestCooldownPrune(t *testing.T) {
	cds := NewCooldowns(1, 1)
	now := time.Now()
	cds.now = func() time.Time { return now }
	cds.Allow("a")
	now = now.Add(time.Hour)
	cds.Allow("b")

	assert.Equal(t, 1, cds.Prune(time.Minute))
	assert.Equal(t, 1, cds.Len())
}

func TestCommandLogMiddleware(t *testing.T) {
	l, err := storage.NewCommandLog(filepath.Join(t.TempDir(), "cmdlog.json"))
	require.NoError(t, err)

	ok := WithCommandLog(l)(noop(Base{CmdName: "status"}))
	require.NoError(t, ok.Run(ctxFor("1", "g")))
	require.NoError(t, ok.Run(ctxFor("1", "")))

	failing := WithCommandLog(l)(&Func{Base: Base{CmdName: "boom"}, Fn: func(*MessageContext) error { return errors.New("x") }})
	require.Error(t, failing.Run(ctxFor("1", "g")))

	recs := l.Fetch("g")
	require.Len(t, recs, 1)
	assert.Equal(t, "status", recs[0].Command)
	assert.Equal(t, "user1", recs[0].Username)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindMissingArgument, Classify(Missing("node")))
	assert.Equal(t, KindBadArgument, Classify(BadArgument("size %q", "x")))
	assert.Equal(t, KindNotFound, Classify(ErrCommandNotFound))
	assert.Equal(t, KindInternal, Classify(errors.New("boom")))
	assert.Equal(t, "CommandOnCooldown", KindCooldown.String())
}
