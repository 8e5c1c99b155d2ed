package discord

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"charfred/internal/command"
	"charfred/internal/history"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	messageLimit = 2000
	// partLimit leaves room for code fences added around split parts.
	partLimit = 1990

	promptTimedOut = "> Prompt timed out!"
)

// Sender posts channel messages. *discordgo.Session satisfies it.
type Sender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// replier answers one invoking message and tracks the answers in the
// command map so they go away with it.
type replier struct {
	sender  Sender
	hist    *history.Historian
	waiter  *Waiter
	msg     *discordgo.Message
	timeout time.Duration
}

var _ command.Replier = (*replier)(nil)

func (r *replier) Send(content string, opts ...command.SendOption) (*discordgo.Message, error) {
	o := command.ApplySendOptions(opts...)
	if len(content) <= messageLimit {
		return r.sendOne(content, o)
	}

	var last *discordgo.Message
	for _, part := range splitMessage(content, o.Codeblocked) {
		m, err := r.sendOne(part, o)
		if err != nil {
			return last, err
		}
		last = m
	}
	return last, nil
}

func (r *replier) sendOne(content string, o command.SendOptions) (*discordgo.Message, error) {
	m, err := r.sender.ChannelMessageSend(r.msg.ChannelID, content)
	if err != nil {
		return nil, err
	}
	if !o.NotDeletable && r.hist != nil {
		r.hist.Track(r.msg.ID, m)
	}
	return m, nil
}

func (r *replier) SendMarkdown(content string, opts ...command.SendOption) (*discordgo.Message, error) {
	return r.Send("```markdown\n"+content+"\n```", append(opts, command.Codeblocked())...)
}

func (r *replier) PromptInput(ctx context.Context, prompt string) (string, bool, error) {
	if _, err := r.SendMarkdown(prompt); err != nil {
		return "", false, err
	}
	answer, err := r.waiter.Wait(ctx, r.msg.ChannelID, authorID(r.msg), r.timeout)
	if errors.Is(err, ErrWaitTimeout) {
		log.Info().Str("channel", r.msg.ChannelID).Str("user", authorID(r.msg)).Msg("prompt timed out")
		_, sendErr := r.SendMarkdown(promptTimedOut)
		return "", true, sendErr
	}
	if err != nil {
		return "", false, err
	}
	return answer.Content, false, nil
}

func (r *replier) PromptConfirm(ctx context.Context, prompt string) (bool, bool, error) {
	answer, timedOut, err := r.PromptInput(ctx, prompt)
	if err != nil || timedOut {
		return false, timedOut, err
	}
	return isYes(answer), false, nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return strings.HasPrefix(s, "y")
}

func authorID(m *discordgo.Message) string {
	if m.Author == nil {
		return ""
	}
	return m.Author.ID
}

var fencePattern = regexp.MustCompile("^```(\\w*)\\s*$")

// splitMessage cuts content into parts that fit a Discord message, on line
// boundaries where possible. With codeblocked set the surrounding code fence
// is stripped and re-added to every part.
func splitMessage(content string, codeblocked bool) []string {
	front, back := "", ""
	body := content
	if codeblocked {
		first, rest, _ := strings.Cut(content, "\n")
		if m := fencePattern.FindStringSubmatch(first); m != nil {
			front = "```" + m[1] + "\n"
			body = strings.TrimSuffix(strings.TrimSuffix(rest, "```"), "\n")
		} else {
			front = "```\n"
		}
		back = "\n```"
	}

	room := partLimit - len(front) - len(back)
	var parts []string
	var part strings.Builder
	flush := func() {
		if part.Len() == 0 {
			return
		}
		parts = append(parts, front+strings.TrimSuffix(part.String(), "\n")+back)
		part.Reset()
	}

	for _, line := range strings.SplitAfter(body, "\n") {
		for len(line) > room {
			flush()
			cut := room
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			parts = append(parts, front+line[:cut]+back)
			line = line[cut:]
		}
		if part.Len()+len(line) > room {
			flush()
		}
		part.WriteString(line)
	}
	flush()
	return parts
}
