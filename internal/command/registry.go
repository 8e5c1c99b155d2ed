package command

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Entry is a registered command with its middleware applied.
type Entry struct {
	// Command runs the middleware chain. Use Root to reach the command itself.
	Command   Command
	Qualified string
	Parent    *Entry

	subs     map[string]*Entry
	subOrder []*Entry
}

// Subcommands returns the direct subcommands in registration order.
func (e *Entry) Subcommands() []*Entry { return e.subOrder }

// Registry maps names and aliases to commands.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Entry
	order    []*Entry
	mws      []Middleware
}

// NewRegistry returns a registry that applies mws to every command it is
// given, the first middleware being the outermost.
func NewRegistry(mws ...Middleware) *Registry {
	return &Registry{commands: make(map[string]*Entry), mws: mws}
}

// Register adds c, its aliases and its subcommands. Names must be unique.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.build(c, nil)
	if err != nil {
		return err
	}
	for _, key := range keys(c) {
		if _, dup := r.commands[key]; dup {
			return fmt.Errorf("command %q already registered", key)
		}
	}
	for _, key := range keys(c) {
		r.commands[key] = e
	}
	r.order = append(r.order, e)
	return nil
}

// MustRegister is Register for static command sets.
func (r *Registry) MustRegister(cmds ...Command) {
	for _, c := range cmds {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) build(c Command, parent *Entry) (*Entry, error) {
	effective := c
	qualified := c.Name()
	if parent != nil {
		effective = &inherited{Command: c, parent: Root(parent.Command)}
		qualified = parent.Qualified + " " + c.Name()
	}

	e := &Entry{
		Command:   apply(effective, r.mws...),
		Qualified: qualified,
		Parent:    parent,
		subs:      make(map[string]*Entry),
	}

	p, ok := c.(Parent)
	if !ok {
		return e, nil
	}
	for _, sub := range p.Subcommands() {
		se, err := r.build(sub, e)
		if err != nil {
			return nil, err
		}
		for _, key := range keys(sub) {
			if _, dup := e.subs[key]; dup {
				return nil, fmt.Errorf("subcommand %q of %q already registered", key, qualified)
			}
			e.subs[key] = se
		}
		e.subOrder = append(e.subOrder, se)
	}
	return e, nil
}

func keys(c Command) []string {
	return append([]string{c.Name()}, c.Aliases()...)
}

func apply(c Command, mws ...Middleware) Command {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

// Resolve finds the command addressed by args, descending into subcommands
// as long as the next argument names one. It returns the entry, the path as
// typed and how many arguments the path used.
func (r *Registry) Resolve(args []string) (*Entry, string, int) {
	if len(args) == 0 {
		return nil, "", 0
	}
	r.mu.RLock()
	e, ok := r.commands[args[0]]
	r.mu.RUnlock()
	if !ok {
		return nil, args[0], 1
	}

	used := 1
	for used < len(args) {
		sub, ok := e.subs[args[used]]
		if !ok {
			break
		}
		e = sub
		used++
	}
	return e, strings.Join(args[:used], " "), used
}

// Lookup resolves a space separated command path exactly.
func (r *Registry) Lookup(path string) (*Entry, bool) {
	fields := strings.Fields(path)
	e, _, used := r.Resolve(fields)
	if e == nil || used != len(fields) {
		return nil, false
	}
	return e, true
}

// All returns the top level commands sorted by name.
func (r *Registry) All() []*Entry {
	r.mu.RLock()
	list := make([]*Entry, len(r.order))
	copy(list, r.order)
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Qualified < list[j].Qualified })
	return list
}

// Walk calls fn for every entry, parents before their subcommands.
func (r *Registry) Walk(fn func(*Entry)) {
	var visit func(e *Entry)
	visit = func(e *Entry) {
		fn(e)
		for _, s := range e.subOrder {
			visit(s)
		}
	}
	for _, e := range r.All() {
		visit(e)
	}
}

// Nodes returns every permission node used by registered commands, sorted.
func (r *Registry) Nodes() []string {
	seen := map[string]bool{}
	r.Walk(func(e *Entry) {
		if n := NodeOf(e.Command); n != "" {
			seen[n] = true
		}
	})
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Groups returns the names of all command groups, sorted.
func (r *Registry) Groups() []string {
	seen := map[string]bool{}
	r.Walk(func(e *Entry) {
		if g := e.Command.Group(); g != "" {
			seen[g] = true
		}
	})
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
