// Package commandtest provides fakes for testing commands without Discord.
package commandtest

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"charfred/internal/command"
	"charfred/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

// Replier records replies and answers prompts from a queue. An empty queue
// makes prompts time out.
type Replier struct {
	mu      sync.Mutex
	Sent    []string
	Prompts []string
	Answers []string
}

func (r *Replier) Send(content string, opts ...command.SendOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, content)
	return &discordgo.Message{ID: "reply-" + strconv.Itoa(len(r.Sent)), Content: content}, nil
}

func (r *Replier) SendMarkdown(content string, opts ...command.SendOption) (*discordgo.Message, error) {
	return r.Send(content, opts...)
}

func (r *Replier) PromptInput(ctx context.Context, prompt string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Prompts = append(r.Prompts, prompt)
	if len(r.Answers) == 0 {
		return "", true, nil
	}
	answer := r.Answers[0]
	r.Answers = r.Answers[1:]
	return answer, false, nil
}

func (r *Replier) PromptConfirm(ctx context.Context, prompt string) (bool, bool, error) {
	answer, timedOut, err := r.PromptInput(ctx, prompt)
	if err != nil || timedOut {
		return false, timedOut, err
	}
	return strings.HasPrefix(strings.ToLower(answer), "y"), false, nil
}

// Last returns the most recent reply, or "".
func (r *Replier) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Sent) == 0 {
		return ""
	}
	return r.Sent[len(r.Sent)-1]
}

// Storage opens settings in a temporary directory.
func Storage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(filepath.Join(t.TempDir(), "botCfg.json"))
	require.NoError(t, err)
	return s
}

// Context builds an invocation by user u1 in guild g1, channel c1, with the
// "!" prefix.
func Context(store *storage.Storage, r *Replier, args ...string) *command.MessageContext {
	raw := strings.Join(args, " ")
	return &command.MessageContext{
		Context: context.Background(),
		Message: &discordgo.Message{
			ID:        "m1",
			ChannelID: "c1",
			GuildID:   "g1",
			Content:   "!" + raw,
			Author:    &discordgo.User{ID: "u1", Username: "tester"},
		},
		Storage: store,
		Reply:   r,
		Prefix:  "!",
		Args:    args,
		Raw:     raw,
	}
}
