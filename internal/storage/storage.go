// /internal/storage/storage.go
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"charfred/internal/permission"
	"charfred/pkg/jsonstore"
)

var (
	ErrExists   = errors.New("already exists")
	ErrNotFound = errors.New("not found")
)

// CogSetting is a per-cog configuration value together with the prompt shown
// when an operator edits it.
type CogSetting struct {
	Value  string `json:"value"`
	Prompt string `json:"prompt"`
}

// Settings is the bot configuration document.
type Settings struct {
	BotToken  string                            `json:"botToken"`
	Prefixes  []string                          `json:"prefixes"`
	Nodes     map[string]permission.Requirement `json:"nodes"`
	Hierarchy []string                          `json:"hierarchy"`
	CogCfgs   map[string]CogSetting             `json:"cogcfgs"`
	Hook      string                            `json:"hook,omitempty"`
	Disabled  []string                          `json:"disabled"`
}

func defaultSettings() Settings {
	return Settings{
		Prefixes:  []string{},
		Nodes:     map[string]permission.Requirement{},
		Hierarchy: []string{},
		CogCfgs:   map[string]CogSetting{},
		Disabled:  []string{},
	}
}

// Storage gives typed access to the persisted settings.
type Storage struct {
	settings *jsonstore.Store[Settings]
}

// New opens the settings document at path. A legacy botCfg.toml next to it
// is imported once.
func New(path string) (*Storage, error) {
	cfg := jsonstore.DefaultConfig(path)
	if ext := filepath.Ext(path); ext == ".json" {
		cfg.LegacyTOML = strings.TrimSuffix(path, ext) + ".toml"
	}
	st, err := jsonstore.Open(cfg, defaultSettings)
	if err != nil {
		return nil, err
	}
	// older documents may lack some sections
	if err := st.Update(func(doc *Settings) error {
		fillDefaults(doc)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", path, err)
	}
	return &Storage{settings: st}, nil
}

func fillDefaults(doc *Settings) {
	if doc.Prefixes == nil {
		doc.Prefixes = []string{}
	}
	if doc.Nodes == nil {
		doc.Nodes = map[string]permission.Requirement{}
	}
	if doc.Hierarchy == nil {
		doc.Hierarchy = []string{}
	}
	if doc.CogCfgs == nil {
		doc.CogCfgs = map[string]CogSetting{}
	}
	if doc.Disabled == nil {
		doc.Disabled = []string{}
	}
}

// Reload discards unsaved changes and re-reads the document from disk.
func (s *Storage) Reload() error {
	if err := s.settings.Load(); err != nil {
		return err
	}
	return s.settings.Update(func(doc *Settings) error {
		fillDefaults(doc)
		return nil
	})
}

// Path returns the settings file path.
func (s *Storage) Path() string { return s.settings.Path() }

// Token returns the stored bot token.
func (s *Storage) Token() string {
	var out string
	s.settings.View(func(doc *Settings) { out = doc.BotToken })
	return out
}

// SetToken stores the bot token.
func (s *Storage) SetToken(token string) error {
	return s.settings.Update(func(doc *Settings) error {
		doc.BotToken = token
		return nil
	})
}

// Prefixes returns the configured command prefixes in order.
func (s *Storage) Prefixes() []string {
	var out []string
	s.settings.View(func(doc *Settings) { out = slices.Clone(doc.Prefixes) })
	return out
}

// SetPrefixes replaces all prefixes.
func (s *Storage) SetPrefixes(prefixes []string) error {
	return s.settings.Update(func(doc *Settings) error {
		doc.Prefixes = slices.Clone(prefixes)
		return nil
	})
}

func (s *Storage) AddPrefix(prefix string) error {
	return s.settings.Update(func(doc *Settings) error {
		if slices.Contains(doc.Prefixes, prefix) {
			return ErrExists
		}
		doc.Prefixes = append(doc.Prefixes, prefix)
		return nil
	})
}

func (s *Storage) RemovePrefix(prefix string) error {
	return s.settings.Update(func(doc *Settings) error {
		i := slices.Index(doc.Prefixes, prefix)
		if i < 0 {
			return ErrNotFound
		}
		doc.Prefixes = slices.Delete(doc.Prefixes, i, i+1)
		return nil
	})
}

// Node returns the stored requirement of a permission node.
func (s *Storage) Node(name string) (permission.Requirement, bool) {
	var (
		req permission.Requirement
		ok  bool
	)
	s.settings.View(func(doc *Settings) { req, ok = doc.Nodes[name] })
	return req, ok
}

// NodeEntry is a node name and its requirement.
type NodeEntry struct {
	Name        string
	Requirement permission.Requirement
}

// Nodes returns all nodes sorted by name.
func (s *Storage) Nodes() []NodeEntry {
	var out []NodeEntry
	s.settings.View(func(doc *Settings) {
		out = make([]NodeEntry, 0, len(doc.Nodes))
		for k, v := range doc.Nodes {
			out = append(out, NodeEntry{Name: k, Requirement: v})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetNode stores the requirement of a registered node.
func (s *Storage) SetNode(name string, req permission.Requirement) error {
	return s.settings.Update(func(doc *Settings) error {
		if _, ok := doc.Nodes[name]; !ok {
			return ErrNotFound
		}
		doc.Nodes[name] = req
		return nil
	})
}

// EnsureNodes registers nodes that are not stored yet as owner only and
// returns the names that were added.
func (s *Storage) EnsureNodes(names []string) ([]string, error) {
	var added []string
	err := s.settings.Update(func(doc *Settings) error {
		for _, n := range names {
			if _, ok := doc.Nodes[n]; !ok {
				doc.Nodes[n] = permission.OwnerOnly()
				added = append(added, n)
			}
		}
		return nil
	})
	return added, err
}

// Hierarchy returns the role names taken into account for node checks.
func (s *Storage) Hierarchy() []string {
	var out []string
	s.settings.View(func(doc *Settings) { out = slices.Clone(doc.Hierarchy) })
	return out
}

func (s *Storage) AddToHierarchy(role string) error {
	return s.settings.Update(func(doc *Settings) error {
		if slices.Contains(doc.Hierarchy, role) {
			return ErrExists
		}
		doc.Hierarchy = append(doc.Hierarchy, role)
		return nil
	})
}

func (s *Storage) RemoveFromHierarchy(role string) error {
	return s.settings.Update(func(doc *Settings) error {
		i := slices.Index(doc.Hierarchy, role)
		if i < 0 {
			return ErrNotFound
		}
		doc.Hierarchy = slices.Delete(doc.Hierarchy, i, i+1)
		return nil
	})
}

// CogSetting returns a cog-specific setting.
func (s *Storage) CogSetting(name string) (CogSetting, bool) {
	var (
		cs CogSetting
		ok bool
	)
	s.settings.View(func(doc *Settings) { cs, ok = doc.CogCfgs[name] })
	return cs, ok
}

// CogSettingEntry is a named cog setting.
type CogSettingEntry struct {
	Name string
	CogSetting
}

// CogSettings returns all cog settings sorted by name.
func (s *Storage) CogSettings() []CogSettingEntry {
	var out []CogSettingEntry
	s.settings.View(func(doc *Settings) {
		out = make([]CogSettingEntry, 0, len(doc.CogCfgs))
		for k, v := range doc.CogCfgs {
			out = append(out, CogSettingEntry{Name: k, CogSetting: v})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetCogSetting changes the value of a registered cog setting.
func (s *Storage) SetCogSetting(name, value string) error {
	return s.settings.Update(func(doc *Settings) error {
		cs, ok := doc.CogCfgs[name]
		if !ok {
			return ErrNotFound
		}
		cs.Value = value
		doc.CogCfgs[name] = cs
		return nil
	})
}

// EnsureCogSetting registers a cog setting with a default value if missing.
// The prompt is refreshed either way.
func (s *Storage) EnsureCogSetting(name, value, prompt string) error {
	return s.settings.Update(func(doc *Settings) error {
		cs, ok := doc.CogCfgs[name]
		if !ok {
			cs.Value = value
		}
		cs.Prompt = prompt
		doc.CogCfgs[name] = cs
		return nil
	})
}

// Hook returns the debug webhook url, if any.
func (s *Storage) Hook() string {
	var out string
	s.settings.View(func(doc *Settings) { out = doc.Hook })
	return out
}

func (s *Storage) SetHook(url string) error {
	return s.settings.Update(func(doc *Settings) error {
		doc.Hook = url
		return nil
	})
}

// DisableGroup disables every command of a group.
func (s *Storage) DisableGroup(group string) error {
	return s.settings.Update(func(doc *Settings) error {
		if slices.Contains(doc.Disabled, group) {
			return nil
		}
		doc.Disabled = append(doc.Disabled, group)
		return nil
	})
}

func (s *Storage) EnableGroup(group string) error {
	return s.settings.Update(func(doc *Settings) error {
		doc.Disabled = slices.DeleteFunc(doc.Disabled, func(g string) bool { return g == group })
		return nil
	})
}

func (s *Storage) IsGroupDisabled(group string) bool {
	var out bool
	s.settings.View(func(doc *Settings) { out = slices.Contains(doc.Disabled, group) })
	return out
}

func (s *Storage) DisabledGroups() []string {
	var out []string
	s.settings.View(func(doc *Settings) { out = slices.Clone(doc.Disabled) })
	return out
}
