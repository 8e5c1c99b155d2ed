// Package command holds the prefix-command core: the Command contract, the
// per-invocation MessageContext, the registry and the middleware chain.
package command

import (
	"context"

	"charfred/internal/permission"
	"charfred/internal/storage"

	"github.com/bwmarrin/discordgo"
)

type Command interface {
	Name() string
	Description() string
	Aliases() []string
	Group() string
	Run(ctx *MessageContext) error
}

// NodeGuarded commands are gated by a permission node.
type NodeGuarded interface {
	Node() string
}

// OwnerRestricted commands may only be run by bot owners.
type OwnerRestricted interface {
	OwnerOnly() bool
}

// Hidden commands are left out of help listings.
type Hidden interface {
	Hidden() bool
}

// Parent commands have subcommands. When a subcommand matches, only the
// subcommand runs; the parent runs when none does.
type Parent interface {
	Subcommands() []Command
}

// Replier sends replies for the invoking message. Replies are tracked so
// they can be cleaned up when the invoking message changes.
type Replier interface {
	Send(content string, opts ...SendOption) (*discordgo.Message, error)
	SendMarkdown(content string, opts ...SendOption) (*discordgo.Message, error)
	// PromptInput asks for a line of text from the invoking user. timedOut
	// is true when no answer arrived in time.
	PromptInput(ctx context.Context, prompt string) (answer string, timedOut bool, err error)
	// PromptConfirm asks a yes/no question; answers starting with y count as yes.
	PromptConfirm(ctx context.Context, prompt string) (ok bool, timedOut bool, err error)
}

// SendOptions are collected from SendOption values.
type SendOptions struct {
	Codeblocked  bool
	NotDeletable bool
}

type SendOption func(*SendOptions)

// Codeblocked keeps code fences intact when a long reply is split.
func Codeblocked() SendOption { return func(o *SendOptions) { o.Codeblocked = true } }

// NotDeletable keeps the reply when the invoking message is deleted or edited.
func NotDeletable() SendOption { return func(o *SendOptions) { o.NotDeletable = true } }

// ApplySendOptions folds opts into a SendOptions value.
func ApplySendOptions(opts ...SendOption) SendOptions {
	var o SendOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MessageContext is what a command gets when it runs.
type MessageContext struct {
	Context context.Context
	Session *discordgo.Session
	Message *discordgo.Message
	Storage *storage.Storage
	Reply   Replier

	// Prefix is the prefix the message used, Invoked the command path as
	// typed (e.g. "perms edit").
	Prefix  string
	Invoked string
	// Args are the shell-split arguments after the command path, Raw the
	// unsplit text they came from.
	Args []string
	Raw  string

	// ResolveActor builds the permission view of the author.
	ResolveActor func() (permission.Actor, error)
}

// GuildID returns the guild the message was sent in, empty for DMs.
func (c *MessageContext) GuildID() string { return c.Message.GuildID }

// ChannelID returns the channel the message was sent in.
func (c *MessageContext) ChannelID() string { return c.Message.ChannelID }

// AuthorID returns the id of the message author.
func (c *MessageContext) AuthorID() string {
	if c.Message.Author == nil {
		return ""
	}
	return c.Message.Author.ID
}

// Actor returns the permission view of the author.
func (c *MessageContext) Actor() (permission.Actor, error) {
	if c.ResolveActor == nil {
		return permission.Actor{UserID: c.AuthorID()}, nil
	}
	return c.ResolveActor()
}

// Ctx returns the invocation context, falling back to Background.
func (c *MessageContext) Ctx() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

// Arg returns the i-th argument or an empty string.
func (c *MessageContext) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Unwrappable is implemented by middleware wrappers so the registry can reach
// the optional interfaces of the command underneath.
type Unwrappable interface {
	Command
	Unwrap() Command
}

type wrapped struct {
	Command
	run func(ctx *MessageContext) error
}

func (w *wrapped) Run(ctx *MessageContext) error { return w.run(ctx) }

func (w *wrapped) Unwrap() Command { return w.Command }

// Wrap returns a command that runs run instead of c.Run.
func Wrap(c Command, run func(ctx *MessageContext) error) Command {
	return &wrapped{Command: c, run: run}
}

// Root unwraps c until it reaches a command that is not a wrapper.
func Root(c Command) Command {
	for {
		u, ok := c.(Unwrappable)
		if !ok {
			return c
		}
		c = u.Unwrap()
	}
}

// NodeOf returns the permission node of c, if any.
func NodeOf(c Command) string {
	if g, ok := Root(c).(NodeGuarded); ok {
		return g.Node()
	}
	return ""
}

// IsOwnerOnly reports whether c is restricted to bot owners.
func IsOwnerOnly(c Command) bool {
	o, ok := Root(c).(OwnerRestricted)
	return ok && o.OwnerOnly()
}

// IsHidden reports whether c is left out of help listings.
func IsHidden(c Command) bool {
	h, ok := Root(c).(Hidden)
	return ok && h.Hidden()
}

// Base carries the static parts of a command. Embed it and add Run.
type Base struct {
	CmdName        string
	CmdDescription string
	CmdAliases     []string
	CmdGroup       string
	CmdNode        string
	Owner          bool
	Hide           bool
}

func (b *Base) Name() string        { return b.CmdName }
func (b *Base) Description() string { return b.CmdDescription }
func (b *Base) Aliases() []string   { return b.CmdAliases }
func (b *Base) Group() string       { return b.CmdGroup }
func (b *Base) Node() string        { return b.CmdNode }
func (b *Base) OwnerOnly() bool     { return b.Owner }
func (b *Base) Hidden() bool        { return b.Hide }

// Func adapts a function into a command carrying b's metadata.
type Func struct {
	Base
	Fn   func(ctx *MessageContext) error
	Subs []Command
}

func (f *Func) Run(ctx *MessageContext) error { return f.Fn(ctx) }

func (f *Func) Subcommands() []Command { return f.Subs }

// inherited is a subcommand seen through its parent: it is owner-only if
// either is, and falls back to the parent's node and group.
type inherited struct {
	Command
	parent Command
}

func (i *inherited) Group() string {
	if g := i.Command.Group(); g != "" {
		return g
	}
	return i.parent.Group()
}

func (i *inherited) Node() string {
	if n := NodeOf(i.Command); n != "" {
		return n
	}
	return NodeOf(i.parent)
}

func (i *inherited) OwnerOnly() bool {
	return IsOwnerOnly(i.Command) || IsOwnerOnly(i.parent)
}

func (i *inherited) Hidden() bool { return IsHidden(i.Command) }

func (i *inherited) Subcommands() []Command {
	if p, ok := i.Command.(Parent); ok {
		return p.Subcommands()
	}
	return nil
}
