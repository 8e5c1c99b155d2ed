package storage

import (
	"slices"
	"sync/atomic"
	"time"

	"charfred/pkg/jsonstore"
)

const commandHistoryLimit int = 20

type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Content   string    `json:"content"`
	Datetime  time.Time `json:"datetime"`
}

// CommandLog keeps the most recent commands of every guild on disk.
// Recording can be switched off at runtime; it starts enabled.
type CommandLog struct {
	store   *jsonstore.Store[map[string][]CommandHistoryRecord]
	enabled atomic.Bool
}

func NewCommandLog(path string) (*CommandLog, error) {
	st, err := jsonstore.Open(jsonstore.Config{Path: path}, func() map[string][]CommandHistoryRecord {
		return map[string][]CommandHistoryRecord{}
	})
	if err != nil {
		return nil, err
	}
	l := &CommandLog{store: st}
	l.enabled.Store(true)
	return l, nil
}

func (l *CommandLog) Enabled() bool { return l.enabled.Load() }

// Toggle flips recording and returns the new state.
func (l *CommandLog) Toggle() bool {
	for {
		old := l.enabled.Load()
		if l.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Append records a command for a guild, dropping the oldest records beyond
// the history limit. It is a no-op while recording is disabled.
func (l *CommandLog) Append(guildID string, rec CommandHistoryRecord) error {
	if !l.Enabled() {
		return nil
	}
	return l.store.Update(func(doc *map[string][]CommandHistoryRecord) error {
		if *doc == nil {
			*doc = map[string][]CommandHistoryRecord{}
		}
		list := append((*doc)[guildID], rec)
		if len(list) > commandHistoryLimit {
			list = list[len(list)-commandHistoryLimit:]
		}
		(*doc)[guildID] = list
		return nil
	})
}

// Fetch returns the recorded commands of a guild, oldest first.
func (l *CommandLog) Fetch(guildID string) []CommandHistoryRecord {
	var out []CommandHistoryRecord
	l.store.View(func(doc *map[string][]CommandHistoryRecord) {
		out = slices.Clone((*doc)[guildID])
	})
	return out
}
