package discord

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"charfred/internal/command"

	"github.com/bwmarrin/discordgo"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	hookColor     = 15102720
	hookDescLimit = 4000
)

// Keywords supplies the random lines used in error replies.
type Keywords interface {
	ErrorMsg() string
	Nack() string
}

// WebhookExecutor posts to a webhook. *discordgo.Session satisfies it.
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ErrorReporter answers failed invocations with a canned reply, logs them
// and forwards unexpected errors to the debug webhook.
type ErrorReporter struct {
	keywords Keywords
	hook     func() string
	webhook  WebhookExecutor
}

// NewErrorReporter creates an ErrorReporter. hook returns the current debug
// webhook url, empty to disable forwarding.
func NewErrorReporter(keywords Keywords, hook func() string, webhook WebhookExecutor) *ErrorReporter {
	if hook == nil {
		hook = func() string { return "" }
	}
	return &ErrorReporter{keywords: keywords, hook: hook, webhook: webhook}
}

// Reply returns the canned reply for err.
func (r *ErrorReporter) Reply(err error) string {
	switch command.Classify(err) {
	case command.KindDisabled:
		return "> Sorry chap, that command's disabled!"
	case command.KindNotOwner:
		return "< You're not the boss of me, sir! >"
	case command.KindCheckFailure:
		return "< " + r.keywords.ErrorMsg() + " >"
	case command.KindNotFound:
		return "> " + r.keywords.Nack()
	case command.KindMissingArgument:
		return "> You're missing some arguments there, mate!"
	case command.KindNoPrivateMessage:
		return "# Stop it, you're making me blush..."
	case command.KindBadArgument:
		return "> That argument makes no sense to me, mate!"
	case command.KindCooldown:
		var cd *command.CooldownError
		pkgerrors.As(err, &cd)
		return fmt.Sprintf("> Sorry lass, that command's on cooldown!\n> Try again in %.2f seconds.", cd.RetryAfter.Seconds())
	default:
		return "< " + r.keywords.Nack() + " >"
	}
}

// Report handles a failed invocation of the command at path.
func (r *ErrorReporter) Report(ctx *command.MessageContext, path string, err error) {
	kind := command.Classify(err)
	ev := log.Warn()
	if kind == command.KindInternal {
		ev = log.Error()
	}
	ev.Str("kind", kind.String()).
		Str("command", path).
		Str("user", ctx.AuthorID()).
		Str("channel", ctx.ChannelID()).
		Err(err).
		Msg("command failed")

	if ctx.Reply != nil {
		if _, sendErr := ctx.Reply.SendMarkdown(r.Reply(err)); sendErr != nil {
			log.Warn().Err(sendErr).Str("command", path).Msg("failed to send error reply")
		}
	}

	if kind != command.KindInternal {
		return
	}
	trace := fmt.Sprintf("%+v", pkgerrors.WithStack(err))
	if st := stackOf(err); st != "" {
		trace = st
	}
	log.Error().Str("command", path).Msg(trace)
	r.forward(path, trace)
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// stackOf formats the innermost stack trace recorded on err, if any.
func stackOf(err error) string {
	var st stackTracer
	var found string
	for e := err; e != nil; e = pkgerrors.Unwrap(e) {
		if t, ok := e.(stackTracer); ok {
			st = t
			found = fmt.Sprintf("%v%+v", e, st.StackTrace())
		}
	}
	return found
}

func (r *ErrorReporter) forward(path, trace string) {
	hookURL := r.hook()
	if hookURL == "" || r.webhook == nil {
		return
	}
	id, token, err := parseWebhookURL(hookURL)
	if err != nil {
		log.Warn().Err(err).Msg("debug webhook url is invalid")
		return
	}
	trace = truncate(trace, hookDescLimit)
	_, err = r.webhook.WebhookExecute(id, token, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Exception during Command: " + path,
			Description: "```\n" + trace + "\n```",
			Color:       hookColor,
		}},
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to forward error to debug webhook")
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// parseWebhookURL extracts id and token from .../webhooks/<id>/<token>.
func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("no webhook id and token in %q", raw)
}
