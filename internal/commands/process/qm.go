package process

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/pkg/util"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// QMCommand groups the system resource commands.
type QMCommand struct {
	inspector Inspector
}

func (c *QMCommand) Name() string        { return "qm" }
func (c *QMCommand) Description() string { return "System resource information commands" }
func (c *QMCommand) Aliases() []string   { return []string{"quartermaster"} }
func (c *QMCommand) Group() string       { return "process" }
func (c *QMCommand) Node() string        { return "process.qm" }

func (c *QMCommand) Subcommands() []command.Command {
	return []command.Command{
		&ProfileCommand{inspector: c.inspector},
		&CharProfileCommand{inspector: c.inspector, pid: os.Getpid},
		&DiskUsageCommand{inspector: c.inspector},
		&MemInfoCommand{inspector: c.inspector},
	}
}

func (c *QMCommand) Run(ctx *command.MessageContext) error {
	return commands.Markdown(ctx, "> Try %shelp qm to see what I can look up!", ctx.Prefix)
}

type ProfileCommand struct {
	inspector Inspector
}

func (c *ProfileCommand) Name() string { return "profile" }
func (c *ProfileCommand) Description() string {
	return "Shows CPU and memory usage of a process given by pid, name or command line. Screen processes are left out."
}
func (c *ProfileCommand) Aliases() []string { return []string{} }
func (c *ProfileCommand) Group() string     { return "process" }

func (c *ProfileCommand) Run(ctx *command.MessageContext) error {
	target := strings.Join(ctx.Args, " ")
	if target == "" {
		return command.Missing("process")
	}

	procs, err := c.inspector.List(ctx.Ctx())
	if err != nil {
		return err
	}
	matches := Match(procs, target)
	if len(matches) == 0 {
		return commands.Markdown(ctx, "< No matching process found! >")
	}
	matches = lo.Reject(matches, func(p Proc, _ int) bool { return p.Name == "screen" })
	if len(matches) == 0 {
		return commands.Markdown(ctx, "< No matching non-screen processes found! >")
	}

	proc := matches[0]
	if len(matches) > 1 {
		picked, ok, err := choose(ctx, matches)
		if err != nil || !ok {
			return err
		}
		proc = picked
	}
	return profile(ctx, c.inspector, proc.PID)
}

// choose lets the author pick one of procs by its listed number. ok is false
// when the prompt timed out or the answer was not a listed number.
func choose(ctx *command.MessageContext, procs []Proc) (Proc, bool, error) {
	listing := lo.Map(procs, func(p Proc, i int) string {
		return fmt.Sprintf("%d: PID=%d, name=%s", i, p.PID, p.Name)
	})
	answer, timedOut, err := ctx.Reply.PromptInput(ctx.Ctx(),
		"< Multiple matching processes found! >\n\n"+
			strings.Join(listing, "\n")+
			"\n\n< Please select which one to profile by replying with the number listed "+
			"next to the process that best matches the one you are looking for. >")
	if err != nil || timedOut {
		return Proc{}, false, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || n < 0 || n >= len(procs) {
		return Proc{}, false, commands.Markdown(ctx, "< Invalid choice! >")
	}
	return procs[n], true, nil
}

func profile(ctx *command.MessageContext, inspector Inspector, pid int32) error {
	info, err := inspector.Profile(ctx.Ctx(), pid)
	if err != nil {
		log.Debug().Err(err).Int32("pid", pid).Msg("could not profile process")
		return commands.Markdown(ctx, "< PID %d is gone or can't be read! >", pid)
	}
	return commands.MarkdownText(ctx, formatInfo(info))
}

func formatInfo(info Info) string {
	return strings.Join([]string{
		fmt.Sprintf("# Process Information for PID: %d:", info.PID),
		info.Cmdline,
		"",
		"Created on:",
		util.FormatDateTpl(info.Created, createdTpl),
		"",
		fmt.Sprintf("# CPU Utilization: %.1f %% (highest value over %s)", info.CPU, profileSamples*sampleInterval),
		fmt.Sprintf("# Number of Threads: %d", info.Threads),
		"# Memory usage: " + naturalSize(info.RSS),
		"# Virtual Memory Size: " + naturalSize(info.VMS),
		"# Swap: " + naturalSize(info.Swap),
	}, "\n")
}

type CharProfileCommand struct {
	inspector Inspector
	pid       func() int
}

func (c *CharProfileCommand) Name() string        { return "charprofile" }
func (c *CharProfileCommand) Description() string { return "Shows CPU and memory usage of the bot itself" }
func (c *CharProfileCommand) Aliases() []string   { return []string{"chartop"} }
func (c *CharProfileCommand) Group() string       { return "process" }

func (c *CharProfileCommand) Run(ctx *command.MessageContext) error {
	pid := int32(c.pid())
	info, err := c.inspector.Profile(ctx.Ctx(), pid)
	if err != nil {
		log.Error().Err(err).Int32("pid", pid).Msg("could not profile own process")
		return commands.Markdown(ctx, "< Can't find my own process! >")
	}
	return commands.MarkdownText(ctx, formatInfo(info))
}

type DiskUsageCommand struct {
	inspector Inspector
}

func (c *DiskUsageCommand) Name() string { return "diskusage" }
func (c *DiskUsageCommand) Description() string {
	return "Shows disk usage per partition, over 80% is highlighted and under 20% dimmed"
}
func (c *DiskUsageCommand) Aliases() []string { return []string{"du"} }
func (c *DiskUsageCommand) Group() string     { return "process" }

func (c *DiskUsageCommand) Run(ctx *command.MessageContext) error {
	disks, err := c.inspector.Disks(ctx.Ctx())
	if err != nil {
		return err
	}
	if len(disks) == 0 {
		return commands.Markdown(ctx, "< No disk partitions found! >")
	}
	lines := []string{"# Disk Usage:", "> Device        Total     Used     Free     % Mount"}
	for _, d := range disks {
		pct := int(d.Percent)
		prefix, suffix := "  ", ""
		switch {
		case pct > 80:
			prefix, suffix = "< ", " >"
		case pct < 20:
			prefix = "> "
		}
		lines = append(lines, fmt.Sprintf("%s%-10s %8s %8s %8s %4d%% %s%s",
			prefix, d.Device, naturalSize(d.Total), naturalSize(d.Used), naturalSize(d.Free), pct, d.Mountpoint, suffix))
	}
	return commands.MarkdownText(ctx, strings.Join(lines, "\n"))
}

type MemInfoCommand struct {
	inspector Inspector
}

func (c *MemInfoCommand) Name() string        { return "meminfo" }
func (c *MemInfoCommand) Description() string { return "Shows memory and swap usage, over 80% is highlighted" }
func (c *MemInfoCommand) Aliases() []string   { return []string{"mem"} }
func (c *MemInfoCommand) Group() string       { return "process" }

func (c *MemInfoCommand) Run(ctx *command.MessageContext) error {
	m, err := c.inspector.Memory(ctx.Ctx())
	if err != nil {
		return err
	}
	mp, ms := highlight(m.Percent)
	sp, ss := highlight(m.SwapPercent)
	return commands.MarkdownText(ctx, strings.Join([]string{
		"# Memory Usage:",
		">     Total   Avail.      %",
		fmt.Sprintf("%s %8s %8s %5.1f%%%s", mp, naturalSize(m.Total), naturalSize(m.Available), m.Percent, ms),
		"",
		"# Swap:",
		">    Total     Used     %",
		fmt.Sprintf("%s%8s %8s %5.1f%%%s", sp, naturalSize(m.SwapTotal), naturalSize(m.SwapUsed), m.SwapPercent, ss),
	}, "\n"))
}

func highlight(pct float64) (prefix, suffix string) {
	if pct > 80 {
		return "< ", " >"
	}
	return "  ", ""
}
