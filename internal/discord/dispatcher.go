package discord

import (
	"context"
	"time"

	"charfred/internal/command"
	"charfred/internal/history"
	"charfred/internal/metrics"
	"charfred/internal/permission"
	"charfred/internal/storage"

	"github.com/bwmarrin/discordgo"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Dispatcher turns messages into command invocations.
type Dispatcher struct {
	Registry      *command.Registry
	Storage       *storage.Storage
	Historian     *history.Historian
	Reporter      *ErrorReporter
	Waiter        *Waiter
	Sender        Sender
	Session       *discordgo.Session
	PromptTimeout time.Duration
	Metrics       *metrics.Metrics

	// BotID returns the bot's user id, used for mention prefixes.
	BotID func() string
	// Actor builds the permission view of a message author.
	Actor func(msg *discordgo.Message) func() (permission.Actor, error)
}

// Handle runs the command msg addresses, if any. The message is recorded in
// the command map before the command runs, also when no command matched so
// that fixing a typo by editing reinvokes it.
func (d *Dispatcher) Handle(ctx context.Context, msg *discordgo.Message) {
	d.dispatch(ctx, msg, true)
}

// Reinvoke handles msg again, as if it had just been sent.
func (d *Dispatcher) Reinvoke(ctx context.Context, msg *discordgo.Message) {
	d.dispatch(ctx, msg, true)
}

// Execute runs the command msg addresses without recording msg in the
// command map. Replies are still tracked under msg.ID. It returns
// command.ErrCommandNotFound when nothing matched.
func (d *Dispatcher) Execute(ctx context.Context, msg *discordgo.Message) error {
	if !d.dispatch(ctx, msg, false) {
		return command.ErrCommandNotFound
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, msg *discordgo.Message, record bool) bool {
	if msg == nil || msg.Author == nil || msg.Author.Bot {
		return false
	}

	var botID string
	if d.BotID != nil {
		botID = d.BotID()
	}
	prefix, rest, ok := command.ParsePrefix(msg.Content, d.Storage.Prefixes(), botID)
	if !ok {
		return false
	}

	mctx := &command.MessageContext{
		Context: ctx,
		Session: d.Session,
		Message: msg,
		Storage: d.Storage,
		Reply:   d.replier(msg),
		Prefix:  prefix,
	}
	if d.Actor != nil {
		mctx.ResolveActor = d.Actor(msg)
	}

	args, err := command.SplitArgs(rest)
	if err != nil {
		if record {
			d.Historian.Start(msg)
		}
		d.Reporter.Report(mctx, rest, err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	entry, path, used := d.Registry.Resolve(args)
	mctx.Invoked = path
	if record {
		d.Historian.Start(msg)
	}
	if entry == nil {
		if record {
			d.Metrics.Track("unknown").End(command.KindNotFound.String())
			d.Reporter.Report(mctx, path, command.ErrCommandNotFound)
		}
		return false
	}

	mctx.Args = args[used:]
	mctx.Raw = command.Tail(rest, used)

	log.Info().
		Str("user", msg.Author.Username).
		Str("guild", msg.GuildID).
		Str("channel", msg.ChannelID).
		Str("command", entry.Qualified).
		Msg(msg.Content)

	tr := d.Metrics.Track(entry.Qualified)
	err = d.run(entry, mctx)
	if err == nil {
		tr.End(metrics.ResultOK)
		return true
	}
	tr.End(command.Classify(err).String())
	if command.Denied(err) {
		d.Historian.Forget(msg.ID)
	}
	d.Reporter.Report(mctx, entry.Qualified, err)
	return true
}

func (d *Dispatcher) run(entry *command.Entry, ctx *command.MessageContext) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = pkgerrors.Errorf("panic: %v", p)
		}
	}()
	if err := entry.Command.Run(ctx); err != nil {
		if command.Classify(err) == command.KindInternal {
			return pkgerrors.WithStack(err)
		}
		return err
	}
	return nil
}

func (d *Dispatcher) replier(msg *discordgo.Message) *replier {
	return &replier{
		sender:  d.Sender,
		hist:    d.Historian,
		waiter:  d.Waiter,
		msg:     msg,
		timeout: d.PromptTimeout,
	}
}
