package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"charfred/internal/command"
	"charfred/internal/commands"
	"charfred/internal/commands/catalog"
	"charfred/internal/permission"
	"charfred/internal/storage"
)

var errAborted = errors.New("aborted")

// prompter asks questions on a terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) say(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}

// prompt asks until a non-empty answer is given. Whitespace inside the
// answer is kept, prefixes may end in a space.
func (p *prompter) prompt(question string) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s: ", question)
		line, err := p.in.ReadString('\n')
		answer := strings.TrimRight(line, "\r\n")
		if answer != "" {
			return answer, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errAborted
			}
			return "", err
		}
	}
}

func (p *prompter) confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "" && errors.Is(err, io.EOF) {
		return false, errAborted
	}
	return strings.HasPrefix(answer, "y"), nil
}

// wizard walks an operator through the settings document.
type wizard struct {
	p     *prompter
	store *storage.Storage
	reg   *command.Registry
}

func newWizard(p *prompter, store *storage.Storage) (*wizard, error) {
	reg := command.NewRegistry()
	if err := catalog.Register(commands.Deps{Registry: reg}); err != nil {
		return nil, err
	}
	return &wizard{p: p, store: store, reg: reg}, nil
}

// setup runs the full wizard: token, prefixes, webhook, then nodes and
// settings after a breakpoint.
func (w *wizard) setup() error {
	w.p.say("Beginning Charfred setup!\n" +
		"The basics come first. After them there is a breakpoint, you can stop\n" +
		"there and resume later with \"wizard nodes\".")
	ok, err := w.p.confirm("This overwrites token, prefixes and webhook already saved. Continue?")
	if err != nil || !ok {
		return orAborted(err)
	}

	if err := w.token(); err != nil {
		return err
	}
	if err := w.prefixes(); err != nil {
		return err
	}
	if err := w.hook(); err != nil {
		return err
	}

	w.p.say("Bot owners are discovered from the Discord application. Set OWNER_IDS\n" +
		"(comma separated user ids) in the environment to add more.")

	ok, err = w.p.confirm("The basics are saved. Continue with the permission nodes now?")
	if err != nil || !ok {
		return orAborted(err)
	}
	if err := w.nodes(false); err != nil {
		return err
	}
	if err := w.settings(); err != nil {
		return err
	}
	w.p.say("All done! You're ready to start Charfred now.")
	return nil
}

func (w *wizard) token() error {
	token, err := w.p.prompt("Please enter your bot token")
	if err != nil {
		return err
	}
	return w.store.SetToken(strings.TrimSpace(token))
}

func (w *wizard) prefixes() error {
	w.p.say("Now the prefixes Charfred listens to, one at a time.\n" +
		"Anything you enter, including whitespace, becomes a prefix.")
	var prefixes []string
	for {
		q := "Please enter the first prefix"
		if len(prefixes) > 0 {
			q = "Please enter another prefix"
		}
		prefix, err := w.p.prompt(q)
		if err != nil {
			return err
		}
		prefixes = append(prefixes, prefix)
		more, err := w.p.confirm("Add one more?")
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return w.store.SetPrefixes(prefixes)
}

func (w *wizard) hook() error {
	ok, err := w.p.confirm("Unexpected command errors can be sent to a Discord webhook.\n" +
		"Do you want to set a webhook url?")
	if err != nil {
		return err
	}
	url := ""
	if ok {
		if url, err = w.p.prompt("Please enter the webhook url"); err != nil {
			return err
		}
	}
	return w.store.SetHook(strings.TrimSpace(url))
}

// nodes asks for the requirement of every permission node. With onlyNew
// set, nodes already in the settings are skipped.
func (w *wizard) nodes(onlyNew bool) error {
	names := w.reg.Nodes()
	if onlyNew {
		var fresh []string
		for _, n := range names {
			if _, ok := w.store.Node(n); !ok {
				fresh = append(fresh, n)
			}
		}
		names = fresh
	}
	if len(names) == 0 {
		w.p.say("No new permission nodes found!")
		return nil
	}
	if _, err := w.store.EnsureNodes(names); err != nil {
		return err
	}
	for _, n := range names {
		if err := w.node(n); err != nil {
			return err
		}
	}
	w.p.say("Done with all permission nodes!")
	return nil
}

func (w *wizard) node(name string) error {
	req, err := w.askRequirement(name)
	if err != nil {
		return err
	}
	return w.store.SetNode(name, req)
}

func (w *wizard) askRequirement(name string) (permission.Requirement, error) {
	limit, err := w.p.confirm(fmt.Sprintf("Would you like to limit which roles may use %s commands?", name))
	if err != nil {
		return permission.OwnerOnly(), err
	}
	if limit {
		role, err := w.p.prompt(fmt.Sprintf("Please enter the minimum Discord role that may use %s commands", name))
		if err != nil {
			return permission.OwnerOnly(), err
		}
		return permission.MinRole(strings.TrimSpace(role)), nil
	}
	open, err := w.p.confirm(fmt.Sprintf("Should everyone be able to use %s commands? (no keeps them owner only)", name))
	if err != nil {
		return permission.OwnerOnly(), err
	}
	if open {
		return permission.Open(), nil
	}
	return permission.OwnerOnly(), nil
}

// edit lets the operator pick nodes to redo until they are done.
func (w *wizard) edit() error {
	for {
		for _, n := range w.store.Nodes() {
			w.p.say("%s: %s", n.Name, n.Requirement)
		}
		name, err := w.p.prompt("Which node would you like to edit")
		if err != nil {
			return err
		}
		if _, ok := w.store.Node(name); !ok {
			w.p.say("%s is not a registered node!", name)
			return nil
		}
		if err := w.node(name); err != nil {
			return err
		}
		w.p.say("Done editing permissions for %s!", name)
		more, err := w.p.confirm("Would you like to edit more?")
		if err != nil || !more {
			return err
		}
	}
}

// settings asks for the value of every cog setting.
func (w *wizard) settings() error {
	if _, err := catalog.EnsureSettings(w.store, w.reg); err != nil {
		return err
	}
	for _, cs := range w.store.CogSettings() {
		w.p.say("%s is currently %q.", cs.Name, cs.Value)
		change, err := w.p.confirm("Change it?")
		if err != nil {
			return err
		}
		if !change {
			continue
		}
		w.p.say("%s", strings.TrimPrefix(cs.Prompt, "# "))
		value, err := w.p.prompt(cs.Name)
		if err != nil {
			return err
		}
		if err := w.store.SetCogSetting(cs.Name, strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	return nil
}

func orAborted(err error) error {
	if err != nil {
		return err
	}
	return errAborted
}
