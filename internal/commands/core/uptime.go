package core

import (
	"time"

	"charfred/internal/command"
	"charfred/internal/commands"
)

type UptimeCommand struct {
	started func() time.Time
	now     func() time.Time
}

func (c *UptimeCommand) Name() string        { return "uptime" }
func (c *UptimeCommand) Description() string { return "Shows how long the bot has been running" }
func (c *UptimeCommand) Aliases() []string   { return []string{} }
func (c *UptimeCommand) Group() string       { return "core" }

func (c *UptimeCommand) Run(ctx *command.MessageContext) error {
	d, h, m, s := splitDuration(c.now().Sub(c.started()))
	return commands.Markdown(ctx, "# I have been up for %d day(s), %d hour(s), %d minute(s) and %d second(s)!", d, h, m, s)
}

func splitDuration(up time.Duration) (days, hours, minutes, seconds int) {
	total := int(up / time.Second)
	days = total / 86400
	hours = total % 86400 / 3600
	minutes = total % 3600 / 60
	seconds = total % 60
	return
}

// Commands returns the core command group.
func Commands(deps commands.Deps) []command.Command {
	started := deps.Started
	if started == nil {
		boot := time.Now()
		started = func() time.Time { return boot }
	}
	return []command.Command{
		&HelpCommand{registry: deps.Registry},
		&UptimeCommand{started: started, now: time.Now},
	}
}
