package history

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	mu      sync.Mutex
	calls   []string
	failing map[string]int
}

func (f *fakeDeleter) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, channelID+"/"+messageID)
	if code, ok := f.failing[messageID]; ok {
		return &discordgo.RESTError{Response: &http.Response{StatusCode: code}}
	}
	return nil
}

func msg(id, channel, author, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		ChannelID: channel,
		Content:   content,
		Author:    &discordgo.User{ID: author},
	}
}

func newHistorian(t *testing.T, size int) (*Historian, *fakeDeleter) {
	t.Helper()
	d := &fakeDeleter{failing: map[string]int{}}
	h, err := New(size, d)
	require.NoError(t, err)
	return h, d
}

func TestCapacityEvictsOldest(t *testing.T) {
	const size = 5
	h, _ := newHistorian(t, size)

	for i := 0; i <= size; i++ {
		h.Start(msg(fmt.Sprint(i), "c", "u", "!cmd"))
	}

	assert.Equal(t, size, h.Len())
	_, ok := h.Get("0")
	assert.False(t, ok, "oldest entry must be evicted")
	for i := 1; i <= size; i++ {
		_, ok := h.Get(fmt.Sprint(i))
		assert.True(t, ok, "entry %d must survive", i)
	}
}

func TestRestartMovesEntryToNewest(t *testing.T) {
	h, _ := newHistorian(t, 2)
	h.Start(msg("a", "c", "u", "!one"))
	h.Start(msg("b", "c", "u", "!two"))
	h.Start(msg("a", "c", "u", "!one"))
	h.Start(msg("c", "c", "u", "!three"))

	_, ok := h.Get("b")
	assert.False(t, ok)
	_, ok = h.Get("a")
	assert.True(t, ok)
}

func TestTrackIgnoresUnknownIDs(t *testing.T) {
	h, _ := newHistorian(t, 3)
	h.Start(msg("in", "c", "u", "!cmd"))
	h.Track("in", msg("out1", "c", "bot", "reply"))
	h.Track("gone", msg("out2", "c", "bot", "reply"))

	e, ok := h.Get("in")
	require.True(t, ok)
	require.Len(t, e.Outputs(), 1)
	assert.Equal(t, "out1", e.Outputs()[0].ID)
}

func TestDeletedCascadesPastFailures(t *testing.T) {
	h, d := newHistorian(t, 3)
	d.failing["out1"] = http.StatusNotFound
	d.failing["out2"] = http.StatusForbidden

	h.Start(msg("in", "c", "u", "!cmd"))
	for _, id := range []string{"out1", "out2", "out3"} {
		h.Track("in", msg(id, "c", "bot", "reply"))
	}

	assert.True(t, h.Deleted(context.Background(), "in"))
	assert.Equal(t, []string{"c/out1", "c/out2", "c/out3"}, d.calls)
	_, ok := h.Get("in")
	assert.False(t, ok)

	assert.False(t, h.Deleted(context.Background(), "in"))
	assert.Len(t, d.calls, 3)
}

func TestEditedWithSameContentIsNoop(t *testing.T) {
	h, d := newHistorian(t, 3)
	h.Start(msg("in", "c", "u", "!cmd"))
	h.Track("in", msg("out", "c", "bot", "reply"))

	called := false
	changed := h.Edited(context.Background(), msg("in", "c", "u", "!cmd"), func(*discordgo.Message) { called = true })

	assert.False(t, changed)
	assert.False(t, called)
	assert.Empty(t, d.calls)
	_, ok := h.Get("in")
	assert.True(t, ok)
}

func TestEditedIgnoresPartialUpdates(t *testing.T) {
	h, d := newHistorian(t, 3)
	h.Start(msg("in", "c", "u", "!cmd"))
	assert.False(t, h.Edited(context.Background(), &discordgo.Message{ID: "in"}, nil))
	assert.Empty(t, d.calls)
}

func TestEditedReinvokes(t *testing.T) {
	h, d := newHistorian(t, 3)
	h.Start(msg("in", "c", "u", "!cmd"))
	h.Track("in", msg("out", "c", "bot", "reply"))

	var got *discordgo.Message
	edited := &discordgo.Message{ID: "in", Content: "!cmd fixed"}
	changed := h.Edited(context.Background(), edited, func(m *discordgo.Message) {
		got = m
		h.Start(m)
	})

	require.True(t, changed)
	assert.Equal(t, []string{"c/out"}, d.calls)
	require.NotNil(t, got)
	assert.Equal(t, "!cmd fixed", got.Content)
	assert.Equal(t, "u", got.Author.ID)
	assert.Equal(t, "c", got.ChannelID)

	e, ok := h.Get("in")
	require.True(t, ok)
	assert.Empty(t, e.Outputs())
	assert.Equal(t, "!cmd fixed", e.Inbound.Content)
}

func TestEditedUntracked(t *testing.T) {
	h, _ := newHistorian(t, 3)
	assert.False(t, h.Edited(context.Background(), msg("x", "c", "u", "!new"), func(*discordgo.Message) {
		t.Fatal("must not reinvoke untracked messages")
	}))
}

func TestFindLastScansNewestFirst(t *testing.T) {
	h, _ := newHistorian(t, 10)
	h.Start(msg("1", "c1", "alice", "!a"))
	h.Start(msg("2", "c1", "bob", "!b"))
	h.Start(msg("3", "c1", "alice", "!c"))
	h.Start(msg("4", "c2", "alice", "!d"))

	e := h.FindLast(SameAuthorAndChannel("alice", "c1"))
	require.NotNil(t, e)
	assert.Equal(t, "3", e.Inbound.ID)

	assert.Nil(t, h.FindLast(SameAuthorAndChannel("carol", "c1")))
}

func TestResetAndEntries(t *testing.T) {
	h, _ := newHistorian(t, 10)
	h.Start(msg("1", "c", "u", "!a"))
	h.Start(msg("2", "c", "u", "!b"))

	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].Inbound.ID)

	require.ErrorIs(t, h.Reset(0), ErrSize)
	require.NoError(t, h.Reset(3))
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 3, h.MaxSize())

	h.Start(msg("5", "c", "u", "!e"))
	h.Forget("5")
	assert.Equal(t, 0, h.Len())
}
