package process

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	ps "github.com/shirou/gopsutil/v4/process"
)

const (
	profileSamples = 50
	sampleInterval = 100 * time.Millisecond
)

// Proc is a process as seen in the process table.
type Proc struct {
	PID     int32
	Name    string
	Cmdline []string
}

// Info is the resource usage of a running process.
type Info struct {
	PID     int32
	Cmdline string
	Created int64 // ms since epoch
	CPU     float64
	Threads int32
	RSS     uint64
	VMS     uint64
	Swap    uint64
}

// DiskUsage is the usage of one mounted partition.
type DiskUsage struct {
	Device     string
	Mountpoint string
	Total      uint64
	Used       uint64
	Free       uint64
	Percent    float64
}

// Memory is the virtual memory and swap usage of the host.
type Memory struct {
	Total       uint64
	Available   uint64
	Percent     float64
	SwapTotal   uint64
	SwapUsed    uint64
	SwapPercent float64
}

// Inspector reads the process table and system resources.
type Inspector interface {
	List(ctx context.Context) ([]Proc, error)
	Info(ctx context.Context, pid int32) (Info, error)
	// Profile is Info with CPU reported as the peak of repeated samples.
	Profile(ctx context.Context, pid int32) (Info, error)
	Disks(ctx context.Context) ([]DiskUsage, error)
	Memory(ctx context.Context) (Memory, error)
}

// Host inspects the machine the bot runs on.
type Host struct{}

func (Host) List(ctx context.Context) ([]Proc, error) {
	procs, err := ps.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	out := make([]Proc, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// gone already, or not ours to look at
			continue
		}
		cmdline, _ := p.CmdlineSliceWithContext(ctx)
		out = append(out, Proc{PID: p.Pid, Name: name, Cmdline: cmdline})
	}
	return out, nil
}

func (h Host) Info(ctx context.Context, pid int32) (Info, error) {
	p, err := ps.NewProcessWithContext(ctx, pid)
	if err != nil {
		return Info{}, err
	}
	info, err := details(ctx, p)
	if err != nil {
		return Info{}, err
	}
	if info.CPU, err = p.CPUPercentWithContext(ctx); err != nil {
		return Info{}, err
	}
	return info, nil
}

func (h Host) Profile(ctx context.Context, pid int32) (Info, error) {
	p, err := ps.NewProcessWithContext(ctx, pid)
	if err != nil {
		return Info{}, err
	}
	info, err := details(ctx, p)
	if err != nil {
		return Info{}, err
	}
	for i := 0; i < profileSamples; i++ {
		if err := ctx.Err(); err != nil {
			return Info{}, err
		}
		pct, err := p.PercentWithContext(ctx, sampleInterval)
		if err != nil {
			return Info{}, err
		}
		info.CPU = max(info.CPU, pct)
	}
	return info, nil
}

func details(ctx context.Context, p *ps.Process) (Info, error) {
	info := Info{PID: p.Pid}
	var err error
	if info.Cmdline, err = p.CmdlineWithContext(ctx); err != nil {
		return Info{}, err
	}
	if info.Created, err = p.CreateTimeWithContext(ctx); err != nil {
		return Info{}, err
	}
	if info.Threads, err = p.NumThreadsWithContext(ctx); err != nil {
		return Info{}, err
	}
	m, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return Info{}, err
	}
	info.RSS, info.VMS, info.Swap = m.RSS, m.VMS, m.Swap
	return info, nil
}

func (Host) Disks(ctx context.Context) ([]DiskUsage, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	out := make([]DiskUsage, 0, len(parts))
	for _, part := range parts {
		use, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil {
			log.Debug().Err(err).Str("mountpoint", part.Mountpoint).Msg("could not read disk usage")
			continue
		}
		out = append(out, DiskUsage{
			Device:     part.Device,
			Mountpoint: part.Mountpoint,
			Total:      use.Total,
			Used:       use.Used,
			Free:       use.Free,
			Percent:    use.UsedPercent,
		})
	}
	return out, nil
}

func (Host) Memory(ctx context.Context) (Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, fmt.Errorf("failed to read memory: %w", err)
	}
	sw, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, fmt.Errorf("failed to read swap: %w", err)
	}
	return Memory{
		Total:       vm.Total,
		Available:   vm.Available,
		Percent:     vm.UsedPercent,
		SwapTotal:   sw.Total,
		SwapUsed:    sw.Used,
		SwapPercent: sw.UsedPercent,
	}, nil
}

// Match returns the processes target refers to: a pid, a process name, a
// single command line argument or the whole command line.
func Match(procs []Proc, target string) []Proc {
	if pid, err := strconv.ParseInt(target, 10, 32); err == nil {
		return lo.Filter(procs, func(p Proc, _ int) bool { return p.PID == int32(pid) })
	}
	return lo.Filter(procs, func(p Proc, _ int) bool {
		return p.Name == target ||
			lo.Contains(p.Cmdline, target) ||
			strings.Join(p.Cmdline, " ") == target
	})
}
