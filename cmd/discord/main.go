// cmd/discord/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/internal/commands/catalog"
	"charfred/internal/config"
	"charfred/internal/discord"
	"charfred/internal/logging"
	"charfred/internal/metrics"
	"charfred/internal/permission"
	"charfred/internal/storage"
	v "charfred/internal/version"
	"charfred/pkg/jobmgr"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const pruneInterval = 10 * time.Minute

func main() {
	var token, level string

	root := &cobra.Command{
		Use:           "charfred",
		Short:         "Runs the " + v.AppName + " Discord bot",
		Version:       v.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(token, level)
		},
	}
	root.Flags().StringVar(&token, "token", "", "bot token, overrides DISCORD_TOKEN and the settings file")
	root.Flags().StringVar(&level, "log-level", "", "log level, overrides LOG_LEVEL")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("bot exited with an error")
		os.Exit(1)
	}
}

func run(tokenFlag, levelFlag string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if levelFlag != "" {
		cfg.LogLevel = levelFlag
	}
	closer, err := logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	log.Info().Str("version", v.Version).Msgf("starting %s bot", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}
	keywords, err := storage.NewKeywords(cfg.KeywordsPath)
	if err != nil {
		return fmt.Errorf("failed to open keywords: %w", err)
	}
	cmdlog, err := storage.NewCommandLog(cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed to open command log: %w", err)
	}

	m := metrics.New()
	jobs := jobmgr.NewManager(ctx, func(ev jobmgr.Event) {
		m.ObserveJob(ev.Job, string(ev.State))
		if ev.Err != nil {
			log.Error().Err(ev.Err).Str("job", ev.Job).Msg("job failed")
			return
		}
		log.Debug().Str("job", ev.Job).Str("state", string(ev.State)).Msg("job state changed")
	})

	owners := discord.NewOwners(cfg.OwnerIDs...)
	resolver := permission.NewResolver(store, owners.Contains)
	cooldowns := command.NewCooldowns(cfg.CommandRate, cfg.CommandBurst)

	registry := command.NewRegistry(
		command.WithGroupAccessCheck(store),
		command.WithGuildOnly(),
		command.WithOwnerCheck(resolver),
		command.WithPermissionNode(resolver),
		command.WithCooldown(cooldowns, resolver),
		command.WithCommandLog(cmdlog),
	)

	token := cfg.ResolveToken(tokenFlag, store.Token())
	if token == "" {
		return fmt.Errorf("no bot token: pass --token, set DISCORD_TOKEN or run the setup wizard")
	}

	events := discord.NewEventBus()
	bot, err := discord.NewBot(cfg, token, discord.Deps{
		Storage:  store,
		Keywords: keywords,
		Registry: registry,
		Jobs:     jobs,
		Events:   events,
		Owners:   owners,
		Metrics:  m,
	})
	if err != nil {
		return err
	}

	if err := catalog.Register(commands.Deps{
		Registry:   registry,
		CommandLog: cmdlog,
		Historian:  bot.Historian(),
		Invoker:    bot.Dispatcher(),
		Events:     events,
		Jobs:       jobs,
		Started:    bot.Started,
	}); err != nil {
		return err
	}
	added, err := catalog.EnsureSettings(store, registry)
	if err != nil {
		return err
	}
	if len(added) > 0 {
		log.Info().Strs("nodes", added).Msg("registered new permission nodes as owner only")
	}

	if err := jobs.Start("cooldown-pruner", func(ctx context.Context) error {
		return cooldowns.RunPruner(ctx, pruneInterval)
	}); err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		if err := jobs.Start("metrics", func(ctx context.Context) error {
			return m.Serve(ctx, cfg.MetricsAddr)
		}); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
		runErr = <-errCh
	case runErr = <-errCh:
		cancel()
	}

	if runErr != nil {
		return runErr
	}
	log.Info().Msg("bot exited cleanly")
	return nil
}
