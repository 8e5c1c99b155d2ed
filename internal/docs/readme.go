package docs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"charfred/internal/command"

	"github.com/rs/zerolog/log"
)

// DefaultTemplate is used when no template file is given.
const DefaultTemplate = `# Commands

Every command is invoked with one of the configured prefixes or by mentioning the bot.

{{.CommandSections}}`

// GroupWeights orders the sections, lower first. Unknown groups sort last
// by name.
var GroupWeights = map[string]int{
	"core":      0,
	"historian": 1,
	"process":   2,
	"admin":     3,
}

// Sections renders one markdown section per command group, subcommands
// included.
func Sections(reg *command.Registry, weights map[string]int) string {
	byGroup := map[string][]*command.Entry{}
	reg.Walk(func(e *command.Entry) {
		g := e.Command.Group()
		byGroup[g] = append(byGroup[g], e)
	})

	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		wi, oki := weights[groups[i]]
		wj, okj := weights[groups[j]]
		switch {
		case oki && okj && wi != wj:
			return wi < wj
		case oki != okj:
			return oki
		}
		return groups[i] < groups[j]
	})

	var buf bytes.Buffer
	for i, g := range groups {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "### %s\n\n", g)
		for _, e := range byGroup[g] {
			buf.WriteString(line(e))
		}
	}
	return buf.String()
}

func line(e *command.Entry) string {
	c := e.Command
	var notes []string
	if aliases := c.Aliases(); len(aliases) > 0 {
		notes = append(notes, "aliases: "+strings.Join(aliases, ", "))
	}
	switch {
	case command.IsOwnerOnly(c):
		notes = append(notes, "owner only")
	case command.NodeOf(c) != "":
		notes = append(notes, "node: `"+command.NodeOf(c)+"`")
	}
	if command.IsHidden(c) {
		notes = append(notes, "hidden")
	}

	s := fmt.Sprintf("- **%s**: %s", e.Qualified, c.Description())
	if len(notes) > 0 {
		s += " _(" + strings.Join(notes, "; ") + ")_"
	}
	return s + "\n"
}

// Render executes tmpl with the command sections of reg.
func Render(w io.Writer, reg *command.Registry, tmpl string) error {
	t, err := template.New("readme").Parse(tmpl)
	if err != nil {
		return err
	}
	data := struct {
		CommandSections string
	}{
		CommandSections: Sections(reg, GroupWeights),
	}
	return t.Execute(w, data)
}

// UpdateReadme writes the rendered template to outPath. An empty tmplPath
// uses DefaultTemplate.
func UpdateReadme(reg *command.Registry, tmplPath, outPath string) error {
	tmpl := DefaultTemplate
	if tmplPath != "" {
		b, err := os.ReadFile(tmplPath)
		if err != nil {
			return err
		}
		tmpl = string(b)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Render(f, reg, tmpl); err != nil {
		return err
	}
	log.Info().Str("path", outPath).Msg("command reference updated")
	return nil
}
