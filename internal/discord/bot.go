package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"charfred/internal/command"
	"charfred/internal/config"
	"charfred/internal/history"
	"charfred/internal/metrics"
	"charfred/internal/storage"
	"charfred/pkg/jobmgr"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Bot is the Discord side of Charfred: it owns the gateway session and feeds
// message events to the dispatcher and the command map.
type Bot struct {
	dg         *discordgo.Session
	cfg        *config.Config
	storage    *storage.Storage
	keywords   *storage.KeywordStore
	historian  *history.Historian
	registry   *command.Registry
	jobs       *jobmgr.Manager
	events     *EventBus
	waiter     *Waiter
	dispatcher *Dispatcher
	owners     *Owners

	mu      sync.RWMutex
	started time.Time
	ctx     context.Context
}

// Deps are the long-lived services the bot is built from.
type Deps struct {
	Storage  *storage.Storage
	Keywords *storage.KeywordStore
	Registry *command.Registry
	Jobs     *jobmgr.Manager
	Events   *EventBus
	Owners   *Owners
	Metrics  *metrics.Metrics
}

// NewBot creates a bot for token. Nothing connects until Run.
func NewBot(cfg *config.Config, token string, deps Deps) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	hist, err := history.New(cfg.CommandMapSize, dg)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		dg:        dg,
		cfg:       cfg,
		storage:   deps.Storage,
		keywords:  deps.Keywords,
		historian: hist,
		registry:  deps.Registry,
		jobs:      deps.Jobs,
		events:    deps.Events,
		waiter:    NewWaiter(),
		owners:    deps.Owners,
		started:   time.Now(),
		ctx:       context.Background(),
	}
	if b.owners == nil {
		b.owners = NewOwners(cfg.OwnerIDs...)
	}
	if b.events == nil {
		b.events = NewEventBus()
	}

	b.dispatcher = &Dispatcher{
		Registry:      deps.Registry,
		Storage:       deps.Storage,
		Historian:     hist,
		Reporter:      NewErrorReporter(deps.Keywords, deps.Storage.Hook, dg),
		Waiter:        b.waiter,
		Sender:        dg,
		Session:       dg,
		PromptTimeout: cfg.PromptTimeout,
		Metrics:       deps.Metrics,
		BotID:         b.botID,
		Actor:         b.actorFor,
	}
	deps.Metrics.WatchCommandMap(hist.Len)
	return b, nil
}

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session { return b.dg }

// Historian returns the command map.
func (b *Bot) Historian() *history.Historian { return b.historian }

// Events returns the system event bus.
func (b *Bot) Events() *EventBus { return b.events }

// Dispatcher returns the message dispatcher.
func (b *Bot) Dispatcher() *Dispatcher { return b.dispatcher }

// Started returns when the bot came up.
func (b *Bot) Started() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.started
}

// IsOwner reports whether userID is a configured or discovered bot owner.
func (b *Bot) IsOwner(userID string) bool { return b.owners.Contains(userID) }

// Run connects and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	b.configureIntents()
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onMessageUpdate)
	b.dg.AddHandler(b.onMessageDelete)
	b.dg.AddHandler(b.onMessageDeleteBulk)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()
	if b.jobs != nil {
		defer b.jobs.StopAll()
	}

	go b.handleSystemEvents(ctx)

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, cleaning up")
	return nil
}

func (b *Bot) context() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
}

func (b *Bot) botID() string {
	if b.dg.State == nil || b.dg.State.User == nil {
		return ""
	}
	return b.dg.State.User.ID
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().Str("user", r.User.String()).Str("id", r.User.ID).Msg("reporting for duty")
	b.discoverOwners(s)
}

// discoverOwners adds the application owner, or the team members, to the
// configured owners.
func (b *Bot) discoverOwners(s *discordgo.Session) {
	app, err := s.Application("@me")
	if err != nil {
		log.Warn().Err(err).Msg("could not look up application owner")
		return
	}

	var found []string
	if app.Team != nil {
		for _, m := range app.Team.Members {
			if m.User != nil {
				found = append(found, m.User.ID)
			}
		}
	} else if app.Owner != nil {
		found = append(found, app.Owner.ID)
	}

	b.owners.Add(found...)
	log.Info().Strs("owners", found).Msg("application owners discovered")
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	b.waiter.Offer(m.Message)
	b.dispatcher.Handle(b.context(), m.Message)
}

func (b *Bot) onMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.Author != nil && m.Author.Bot {
		return
	}
	ctx := b.context()
	b.historian.Edited(ctx, m.Message, func(msg *discordgo.Message) {
		b.dispatcher.Reinvoke(ctx, msg)
	})
}

func (b *Bot) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	b.historian.Deleted(b.context(), m.ID)
}

func (b *Bot) onMessageDeleteBulk(s *discordgo.Session, m *discordgo.MessageDeleteBulk) {
	ctx := b.context()
	for _, id := range m.Messages {
		b.historian.Deleted(ctx, id)
	}
}

func (b *Bot) handleSystemEvents(ctx context.Context) {
	for {
		select {
		case ev := <-b.events.Events():
			switch ev.Type {
			case SystemEventConfigReloaded:
				b.syncConfig(ev.Source)
			case SystemEventCommandMapReset:
				log.Info().Str("by", ev.Source).Int("size", b.historian.MaxSize()).Msg("command map reset")
			}
		case <-ctx.Done():
			return
		}
	}
}

// syncConfig re-registers the nodes of all commands and reloads the keyword
// lines after the settings file was reloaded.
func (b *Bot) syncConfig(source string) {
	added, err := b.storage.EnsureNodes(b.registry.Nodes())
	if err != nil {
		log.Error().Err(err).Msg("failed to register permission nodes")
	} else if len(added) > 0 {
		log.Info().Strs("nodes", added).Msg("registered new permission nodes as owner only")
	}
	if b.keywords != nil {
		if err := b.keywords.Reload(); err != nil {
			log.Error().Err(err).Msg("failed to reload keywords")
		}
	}
	log.Info().Str("by", source).Msg("configuration reloaded")
}
