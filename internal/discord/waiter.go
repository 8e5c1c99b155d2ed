package discord

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrWaitTimeout is returned when no matching message arrived in time.
var ErrWaitTimeout = errors.New("timed out waiting for a reply")

// Waiter hands incoming messages to prompts waiting on the same author and
// channel.
type Waiter struct {
	mu      sync.Mutex
	pending map[string][]chan *discordgo.Message
}

func NewWaiter() *Waiter {
	return &Waiter{pending: make(map[string][]chan *discordgo.Message)}
}

func waitKey(channelID, userID string) string { return channelID + ":" + userID }

// Wait blocks until userID posts in channelID, timeout passes or ctx ends.
func (w *Waiter) Wait(ctx context.Context, channelID, userID string, timeout time.Duration) (*discordgo.Message, error) {
	ch := make(chan *discordgo.Message, 1)
	key := waitKey(channelID, userID)

	w.mu.Lock()
	w.pending[key] = append(w.pending[key], ch)
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m := <-ch:
		return m, nil
	case <-timer.C:
		w.remove(key, ch)
		select {
		case m := <-ch:
			return m, nil
		default:
		}
		return nil, ErrWaitTimeout
	case <-ctx.Done():
		w.remove(key, ch)
		return nil, ctx.Err()
	}
}

// Offer delivers m to the oldest waiter for its author and channel and
// reports whether one was waiting.
func (w *Waiter) Offer(m *discordgo.Message) bool {
	if m == nil || m.Author == nil {
		return false
	}
	key := waitKey(m.ChannelID, m.Author.ID)

	w.mu.Lock()
	defer w.mu.Unlock()
	waiting := w.pending[key]
	if len(waiting) == 0 {
		return false
	}
	ch := waiting[0]
	if len(waiting) == 1 {
		delete(w.pending, key)
	} else {
		w.pending[key] = waiting[1:]
	}
	ch <- m
	return true
}

func (w *Waiter) remove(key string, ch chan *discordgo.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	waiting := w.pending[key]
	for i, c := range waiting {
		if c == ch {
			waiting = append(waiting[:i], waiting[i+1:]...)
			break
		}
	}
	if len(waiting) == 0 {
		delete(w.pending, key)
	} else {
		w.pending[key] = waiting
	}
}
