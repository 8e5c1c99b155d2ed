package process

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/pkg/util"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	// TargetsSetting names the cog setting listing the default processes.
	TargetsSetting = "process.targets"
	TargetsPrompt  = "# Please enter the process names or command line arguments to watch, separated by commas."

	infoWorkers = 4
	createdTpl  = "YYYY-MM-DD hh:mm:ss"
)

type StatusCommand struct {
	inspector Inspector
}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows whether the given server processes are running" }
func (c *StatusCommand) Aliases() []string   { return []string{} }
func (c *StatusCommand) Group() string       { return "process" }
func (c *StatusCommand) Node() string        { return "process.status" }

func (c *StatusCommand) Run(ctx *command.MessageContext) error {
	targets := ctx.Args
	if len(targets) == 0 {
		if cs, ok := ctx.Storage.CogSetting(TargetsSetting); ok {
			targets = splitTargets(cs.Value)
		}
	}
	targets = lo.Uniq(targets)
	if len(targets) == 0 {
		return commands.Markdown(ctx, "< No process given and %s is empty! >", TargetsSetting)
	}

	procs, err := c.inspector.List(ctx.Ctx())
	if err != nil {
		return err
	}

	matches := make(map[string][]Proc, len(targets))
	var pids []int32
	for _, t := range targets {
		matches[t] = Match(procs, t)
		pids = append(pids, lo.Map(matches[t], func(p Proc, _ int) int32 { return p.PID })...)
	}

	infos, err := c.collect(ctx.Ctx(), lo.Uniq(pids))
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(targets))
	for _, t := range targets {
		lines = append(lines, describe(t, matches[t], infos))
	}
	return commands.MarkdownText(ctx, strings.Join(lines, "\n"))
}

// collect looks up the details of every pid on a bounded set of workers.
// Processes that vanish or cannot be read are left out.
func (c *StatusCommand) collect(ctx context.Context, pids []int32) (map[int32]Info, error) {
	var mu sync.Mutex
	infos := make(map[int32]Info, len(pids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(infoWorkers)
	for _, pid := range pids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info, err := c.inspector.Info(gctx, pid)
			if err != nil {
				log.Debug().Err(err).Int32("pid", pid).Msg("could not inspect process")
				return nil
			}
			mu.Lock()
			infos[pid] = info
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}

func describe(target string, procs []Proc, infos map[int32]Info) string {
	if len(procs) == 0 {
		return fmt.Sprintf("< %s is not running! >", target)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s is running:", target)
	for _, p := range procs {
		info, ok := infos[p.PID]
		if !ok {
			fmt.Fprintf(&sb, "\n  PID %d: no details available", p.PID)
			continue
		}
		fmt.Fprintf(&sb, "\n  PID %d: %.1f%% CPU, %d threads, %s memory, up since %s",
			p.PID, info.CPU, info.Threads, naturalSize(info.RSS), util.FormatDateTpl(info.Created, createdTpl))
	}
	return sb.String()
}

func splitTargets(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string { return strings.TrimSpace(p) })
	return lo.Compact(parts)
}

// naturalSize formats n bytes with a binary unit.
func naturalSize(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Commands returns the process command group. A nil inspector reads the
// host the bot runs on.
func Commands(deps commands.Deps, inspector Inspector) []command.Command {
	if inspector == nil {
		inspector = Host{}
	}
	return []command.Command{
		&StatusCommand{inspector: inspector},
		&QMCommand{inspector: inspector},
	}
}
