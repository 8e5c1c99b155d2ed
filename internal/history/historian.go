// Package history correlates command messages with the replies the bot sent
// for them, so that deleting or editing a command cleans up after it.
//
// Entries live in a bounded map keyed by the inbound message id. Inserting a
// new key past capacity evicts the oldest entry; there is no expiry by age.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"charfred/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// DefaultSize is the default number of tracked commands.
const DefaultSize = 100

// ErrSize is returned for capacities that could not hold a single command.
var ErrSize = errors.New("command map size must be at least 1")

// Deleter removes a single channel message. *discordgo.Session satisfies it.
type Deleter interface {
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Entry is a tracked command message and the replies sent for it.
type Entry struct {
	Inbound *discordgo.Message

	mu      sync.Mutex
	outputs []*discordgo.Message
}

// Outputs returns a copy of the tracked replies, oldest first.
func (e *Entry) Outputs() []*discordgo.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*discordgo.Message, len(e.outputs))
	copy(out, e.outputs)
	return out
}

func (e *Entry) add(m *discordgo.Message) {
	e.mu.Lock()
	e.outputs = append(e.outputs, m)
	e.mu.Unlock()
}

// Historian is the bounded command-output map. It is safe for concurrent use.
type Historian struct {
	mu      sync.RWMutex
	cache   *lru.Cache[string, *Entry]
	size    int
	deleter Deleter
	limiter *retrylimit.AdaptiveLimiter
}

// New creates a Historian holding at most size commands.
func New(size int, deleter Deleter) (*Historian, error) {
	h := &Historian{
		deleter: deleter,
		limiter: retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
	}
	if err := h.Reset(size); err != nil {
		return nil, err
	}
	return h, nil
}

// Reset drops every entry and sets a new capacity.
func (h *Historian) Reset(size int) error {
	if size < 1 {
		return ErrSize
	}
	cache, err := lru.NewWithEvict(size, func(id string, _ *Entry) {
		log.Debug().Str("message", id).Msg("command dropped from command map")
	})
	if err != nil {
		return fmt.Errorf("failed to create command map: %w", err)
	}
	h.mu.Lock()
	h.cache = cache
	h.size = size
	h.mu.Unlock()
	return nil
}

func (h *Historian) entries() *lru.Cache[string, *Entry] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cache
}

// MaxSize returns the capacity.
func (h *Historian) MaxSize() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Len returns the number of tracked commands.
func (h *Historian) Len() int { return h.entries().Len() }

// Start begins tracking msg with no replies. Re-starting a tracked id
// replaces its entry and makes it the newest.
func (h *Historian) Start(msg *discordgo.Message) {
	if msg == nil || msg.ID == "" {
		return
	}
	h.entries().Add(msg.ID, &Entry{Inbound: msg})
}

// Track appends a reply to the entry of inboundID. Untracked ids are ignored,
// the entry may have been evicted already.
func (h *Historian) Track(inboundID string, reply *discordgo.Message) {
	if reply == nil {
		return
	}
	if e, ok := h.entries().Peek(inboundID); ok {
		e.add(reply)
	}
}

// Get returns the entry for inboundID without changing its age.
func (h *Historian) Get(inboundID string) (*Entry, bool) {
	return h.entries().Peek(inboundID)
}

// Forget stops tracking inboundID without touching its replies.
func (h *Historian) Forget(inboundID string) {
	h.entries().Remove(inboundID)
}

// Deleted deletes all replies of a deleted command message and forgets it.
// It reports whether the id was tracked.
func (h *Historian) Deleted(ctx context.Context, inboundID string) bool {
	cache := h.entries()
	e, ok := cache.Peek(inboundID)
	if !ok {
		return false
	}
	log.Info().Str("message", inboundID).Msg("deleting previous command output")
	h.purge(ctx, e)
	cache.Remove(inboundID)
	return true
}

// Edited handles an edit of a command message. When the content changed the
// old replies are deleted, the entry is dropped and reinvoke is called with
// the edited message, which registers it afresh. Unchanged content, empty
// content (embed unfurls) and untracked messages are ignored.
func (h *Historian) Edited(ctx context.Context, edited *discordgo.Message, reinvoke func(*discordgo.Message)) bool {
	if edited == nil || edited.Content == "" {
		return false
	}
	cache := h.entries()
	e, ok := cache.Peek(edited.ID)
	if !ok || e.Inbound.Content == edited.Content {
		return false
	}

	log.Info().
		Str("message", edited.ID).
		Str("before", e.Inbound.Content).
		Str("after", edited.Content).
		Msg("reinvoking edited command")
	h.purge(ctx, e)
	cache.Remove(edited.ID)

	if reinvoke != nil {
		reinvoke(mergeEdit(e.Inbound, edited))
	}
	return true
}

// mergeEdit fills fields a partial update may omit from the original message.
func mergeEdit(orig, edited *discordgo.Message) *discordgo.Message {
	m := *edited
	if m.Author == nil {
		m.Author = orig.Author
	}
	if m.Member == nil {
		m.Member = orig.Member
	}
	if m.ChannelID == "" {
		m.ChannelID = orig.ChannelID
	}
	if m.GuildID == "" {
		m.GuildID = orig.GuildID
	}
	return &m
}

// purge deletes every reply of e, one call per message. Failures are logged
// and do not stop the remaining deletions.
func (h *Historian) purge(ctx context.Context, e *Entry) {
	if h.deleter == nil {
		return
	}
	for _, out := range e.Outputs() {
		channelID := out.ChannelID
		if channelID == "" {
			channelID = e.Inbound.ChannelID
		}
		err := retrylimit.Do(ctx, func() error {
			return h.deleter.ChannelMessageDelete(channelID, out.ID)
		}, h.limiter)
		if err == nil {
			continue
		}
		switch retrylimit.StatusCode(err) {
		case 404:
			log.Warn().Str("message", out.ID).Msg("output message already gone")
		case 403:
			log.Error().Str("message", out.ID).Msg("no permission to delete output message")
		default:
			log.Error().Err(err).Str("message", out.ID).Msg("deletion of output message failed")
		}
	}
}

// FindLast returns the newest entry matching pred, or nil.
func (h *Historian) FindLast(pred func(*Entry) bool) *Entry {
	cache := h.entries()
	keys := cache.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		if e, ok := cache.Peek(keys[i]); ok && pred(e) {
			return e
		}
	}
	return nil
}

// Entries returns all entries, oldest first.
func (h *Historian) Entries() []*Entry {
	cache := h.entries()
	keys := cache.Keys()
	out := make([]*Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := cache.Peek(k); ok {
			out = append(out, e)
		}
	}
	return out
}

// SameAuthorAndChannel matches entries sent by userID in channelID.
func SameAuthorAndChannel(userID, channelID string) func(*Entry) bool {
	return func(e *Entry) bool {
		return e.Inbound.Author != nil &&
			e.Inbound.Author.ID == userID &&
			e.Inbound.ChannelID == channelID
	}
}
